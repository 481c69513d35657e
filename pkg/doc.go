// Package pkg holds the sceneguard libraries.
//
// # Overview
//
// Sceneguard keeps the elements of an educational animation inside the
// visible frame and free of overlaps for as long as they are on screen. The
// packages fall into four groups:
//
//  1. Geometry and frame: [geom], [frame]
//  2. Layout engine: [element], [posmap], [reflow]
//  3. Orchestration: [plan], [pipeline], [cache], [store], [config]
//  4. Output: [render], [export]
//
// # Architecture
//
// A plan flows through the engine scene by scene:
//
//	plan YAML
//	    ↓
//	[plan] (scenes and element specs)
//	    ↓
//	[reflow] (grade overflow, apply a remediation strategy)
//	    ↓
//	[posmap] (time-aware placement with conflict resolution)
//	    ↓
//	[pipeline] (escalation, continuation scenes, caching, run history)
//	    ↓
//	[render] SVG/PNG/PDF, [export] JSON or a Manim module
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/sceneguard/pkg/frame"
//	    "github.com/matzehuels/sceneguard/pkg/posmap"
//	)
//
//	pm := posmap.New(frame.Default(), posmap.DefaultOptions())
//	res, err := pm.AddElement(title)
//	if res.Degraded() {
//	    // placed, but still overlapping something
//	}
//	collisions := pm.CollisionsAt(2.5)
//
// Most callers go through the pipeline instead:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil, logger)
//	res, err := runner.Execute(ctx, p, pipeline.Options{})
//
// # Extension Points
//
//   - Storage: implement [cache.Cache] or [store.Store]
//   - Observability: register hooks with [observability]
package pkg
