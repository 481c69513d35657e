// Package element defines the visual units placed by the layout engine.
//
// A [PositionedElement] carries identity, kind, a bounding box, the region it
// was anchored to, a visibility window and a lifecycle [State]. Elements are
// created from producer-supplied [Spec] values with [Build], which validates
// the kind-specific [Content] variant, estimates a first-guess footprint from
// the content and centers it in the requested region.
//
// # Time windows
//
// An element is visible on the half-open interval [Enter, Exit). Exit may be
// +Inf, meaning "until the end of the scene"; callers that know the scene
// duration clamp it. JSON encodes an infinite exit as null.
//
// # Lifecycle
//
// States advance strictly forward:
//
//	Planned → Entering → Active → Exiting → Hidden → Removed
//	                                      ↘ Removed
//
// The only move out of Hidden is to Removed. See [State.CanTransition].
package element
