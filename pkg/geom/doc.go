// Package geom is the geometry kernel of the layout engine.
//
// It defines [Bounds], an immutable axis-aligned bounding box in canvas units,
// together with the overlap, intersection and transform operations the rest of
// the engine is built on. Every function is pure and total: degenerate boxes
// never panic, they simply report zero area and never overlap anything.
//
// The canvas uses a centered coordinate system: the origin is the middle of the
// frame, x grows to the right and y grows upward. Centers are expressed as
// [vec.Vec2] values and boxes convert to and from [rect.Rect], so results can
// be handed to code built on seehuhn.de/go/geom without conversion glue.
package geom
