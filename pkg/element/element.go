package element

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// PositionedElement is one visual unit with a footprint and a visibility
// window. Only the position map and the reflow manager mutate elements after
// registration.
type PositionedElement struct {
	Key          string       `json:"key"`
	Kind         Kind         `json:"kind"`
	Scene        string       `json:"scene,omitempty"`
	Bounds       geom.Bounds  `json:"bounds"`
	Region       frame.Region `json:"region"`
	State        State        `json:"state"`
	Enter        float64      `json:"enter"`
	Exit         float64      `json:"exit"` // +Inf until scene end
	Priority     int          `json:"priority"`
	Dependencies []string     `json:"dependencies,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	FontSize     float64      `json:"font_size,omitempty"`

	// Unresolved is set when conflict resolution was exhausted and the
	// element was inserted at its least-bad placement.
	Unresolved bool `json:"unresolved,omitempty"`
}

// Validate checks key, bounds, time window and region. It is the registration
// boundary: an element failing Validate is never added to a map.
func (e *PositionedElement) Validate() error {
	if err := errors.ValidateKey(e.Key); err != nil {
		return err
	}
	if !e.Bounds.Valid() {
		return errors.New(errors.ErrCodeInvalidBounds, "element %q: malformed bounds %v", e.Key, e.Bounds)
	}
	if math.IsNaN(e.Enter) || math.IsInf(e.Enter, 0) {
		return errors.New(errors.ErrCodeInvalidTimeWindow, "element %q: enter time must be finite, got %g", e.Key, e.Enter)
	}
	if math.IsNaN(e.Exit) || !(e.Exit > e.Enter) {
		return errors.New(errors.ErrCodeInvalidTimeWindow, "element %q: empty time window [%g, %g)", e.Key, e.Enter, e.Exit)
	}
	if !e.Region.Valid() {
		return errors.New(errors.ErrCodeInvalidRegion, "element %q: unknown region %d", e.Key, int(e.Region))
	}
	for _, dep := range e.Dependencies {
		if dep == e.Key {
			return errors.New(errors.ErrCodeInvalidElement, "element %q depends on itself", e.Key)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (e *PositionedElement) Clone() *PositionedElement {
	c := *e
	c.Dependencies = slices.Clone(e.Dependencies)
	return &c
}

// Duration returns Exit - Enter; +Inf for open windows.
func (e *PositionedElement) Duration() float64 { return e.Exit - e.Enter }

// OpenEnded reports whether the element stays until the end of its scene.
func (e *PositionedElement) OpenEnded() bool { return math.IsInf(e.Exit, 1) }

// InWindow reports whether t lies in [Enter, Exit).
func (e *PositionedElement) InWindow(t float64) bool {
	return e.Enter <= t && t < e.Exit
}

// VisibleAt reports whether the element is rendered at time t.
func (e *PositionedElement) VisibleAt(t float64) bool {
	return e.InWindow(t) && e.State.Visible()
}

// WindowsIntersect reports whether the visibility windows of a and b share
// any instant. Touching windows (a.Exit == b.Enter) do not intersect.
func WindowsIntersect(a, b *PositionedElement) bool {
	return !(a.Exit <= b.Enter || b.Exit <= a.Enter)
}

// Shift delays both ends of the window by dt, preserving the duration.
func (e *PositionedElement) Shift(dt float64) {
	e.Enter += dt
	e.Exit += dt
}

// ScaleBy resizes the bounds around their center and scales the font size
// with them, never below minFont. It returns the factor actually applied to
// the bounds.
func (e *PositionedElement) ScaleBy(factor, minFont float64) float64 {
	if e.FontSize > 0 && factor < 1 && e.FontSize*factor < minFont {
		if e.FontSize <= minFont {
			return 1
		}
		factor = minFont / e.FontSize
	}
	e.Bounds = e.Bounds.Scale(factor)
	if e.FontSize > 0 {
		e.FontSize *= factor
	}
	return factor
}

// DependsOn reports whether key is among the element's dependencies.
func (e *PositionedElement) DependsOn(key string) bool {
	return slices.Contains(e.Dependencies, key)
}

type elementJSON PositionedElement

type wireElement struct {
	*elementJSON
	Exit *float64 `json:"exit"`
}

// MarshalJSON encodes an infinite exit time as null.
func (e PositionedElement) MarshalJSON() ([]byte, error) {
	w := wireElement{elementJSON: (*elementJSON)(&e)}
	if !math.IsInf(e.Exit, 1) {
		exit := e.Exit
		w.Exit = &exit
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a null or missing exit time as +Inf.
func (e *PositionedElement) UnmarshalJSON(data []byte) error {
	w := wireElement{elementJSON: (*elementJSON)(e)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Exit == nil {
		e.Exit = math.Inf(1)
	} else {
		e.Exit = *w.Exit
	}
	return nil
}

// SortByPriority orders elements by priority descending, then key ascending.
func SortByPriority(els []*PositionedElement) {
	slices.SortStableFunc(els, func(a, b *PositionedElement) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
}

// Keys returns the keys of els in order.
func Keys(els []*PositionedElement) []string {
	out := make([]string, len(els))
	for i, e := range els {
		out[i] = e.Key
	}
	return out
}
