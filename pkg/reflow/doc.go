// Package reflow decides, per scene, whether the requested content is too
// much for one frame and picks a coarse remediation when it is.
//
// The position map fixes individual placements; reflow changes how much
// content a scene shows or how it is arranged. [Manager.CheckOverflow] grades
// a provisional element set and [Manager.ApplyReflowStrategy] walks a fixed
// fallback chain starting from the strategy matching the grade:
//
//	minor    -> ScaleDown
//	moderate -> Redistribute
//	severe   -> Paginate
//
//	ScaleDown -> Redistribute -> StackVertical -> Prioritize -> Paginate
//
// A strategy result is only kept when it does not raise the overflow score
// (collisions + out-of-bounds elements + crowded regions), so remediation never
// makes a scene worse than its input. Every invocation is appended to the
// manager's history as an [Operation].
//
// The manager also holds the continuity registry used by
// [Manager.PlanSceneTransition] to classify elements shared by adjacent
// scenes.
package reflow
