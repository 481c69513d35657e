// Package frame defines the safe drawing area of a canvas and its nine named
// placement regions.
//
// A [SafeFrame] is built once per rendering job from a canvas size and a
// margin fraction. The safe area is the canvas inset by the margin on every
// side; every visible element must stay inside it. The safe area is further
// split into nine overlapping [Region] rectangles used as coarse placement
// anchors:
//
//	┌──────────┬─────────────┬──────────┐
//	│ top_left │     top     │ top_right│
//	├──────┬───┴─────────────┴───┬──────┤
//	│ left │       center        │ right│
//	├──────┴───┬─────────────┬───┴──────┤
//	│bottom_lft│   bottom    │bottom_rgt│
//	└──────────┴─────────────┴──────────┘
//
// Center occupies the inner 60% × 60% of the safe area, edge regions are
// 40%-deep bands and corners are 50% × 50% quadrants. The table is computed in
// [New] and never changes, so two Position Maps built from equal configs
// resolve regions identically.
//
// Coordinates are centered on the canvas origin with y pointing up, matching
// Manim's scene coordinates. The default canvas is 14 × 8 units with a 6%
// margin.
package frame
