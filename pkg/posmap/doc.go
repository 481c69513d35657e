// Package posmap implements the time-indexed position map: the registry of
// every positioned element of one rendering unit, with conflict detection,
// conflict resolution and whole-map optimization.
//
// # Registration
//
// [PositionMap.AddElement] validates an element, pulls it into the safe area
// and checks it against every registered element whose time window
// intersects its own. If bounds overlap beyond the collision tolerance the
// element is not inserted as-is; a fixed chain of strategies runs, each
// starting from the same original placement, and the first conflict-free
// candidate wins:
//
//  1. Grid: a 3 × 3 grid of centers inside the element's region
//  2. Region: each alternative region in the fixed fallback order, refitted
//  3. Scale: factors 0.9, 0.8, 0.7, 0.6 around the original center
//  4. Time shift: delays of 0.5, 1.0, 1.5, 2.0 applied to enter and exit
//
// When every candidate conflicts, the least-penalty candidate is inserted,
// the element is flagged Unresolved and a warning is logged. Registration
// never drops content for a layout conflict; the [Resolution] returned says
// whether the outcome was Resolved or Degraded.
//
// # Optimization
//
// [PositionMap.OptimizeLayout] repeatedly picks the worst overlapping pair and
// relocates its lower-priority member through the same chain. The pass is
// bounded by Options.MaxIterations and always terminates.
//
// # Determinism
//
// Elements are iterated in key order, candidate order is fixed and ties are
// broken by key. Two maps fed the same elements in the same order produce
// identical placements.
//
// # Concurrency
//
// A PositionMap is not safe for concurrent use. Independent scenes can be
// processed in parallel with one map each.
package posmap
