package posmap

import (
	"math"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
)

// StateChange records one lifecycle step taken by AdvanceTo.
type StateChange struct {
	Key  string        `json:"key"`
	From element.State `json:"from"`
	To   element.State `json:"to"`
	Time float64       `json:"time"`
}

// Now returns the time cursor, -Inf before the first AdvanceTo.
func (m *PositionMap) Now() float64 { return m.now }

// AdvanceTo moves the time cursor to t and steps every element's state
// forward to match it:
//
//	t < enter                  Planned
//	enter ≤ t < enter+ramp     Entering
//	enter+ramp ≤ t < exit-ramp Active
//	exit-ramp ≤ t < exit       Exiting
//	t ≥ exit                   Hidden
//
// The ramp shrinks to a third of the window for short windows. States never
// move backward and Removed elements are left alone. Moving the cursor
// backward is an error.
func (m *PositionMap) AdvanceTo(t float64) ([]StateChange, error) {
	if math.IsNaN(t) {
		return nil, errors.New(errors.ErrCodeInvalidTimeWindow, "time cursor cannot be NaN")
	}
	if t < m.now {
		return nil, errors.New(errors.ErrCodeInvalidStateTransition,
			"time cursor cannot move backward from %g to %g", m.now, t)
	}
	m.now = t

	var changes []StateChange
	for _, k := range m.keys {
		e := m.elements[k]
		if e.State.Terminal() {
			continue
		}
		target := m.stateAt(e, t)
		if target <= e.State {
			continue
		}
		path, ok := e.State.Path(target)
		if !ok {
			continue
		}
		for _, next := range path {
			changes = append(changes, StateChange{Key: k, From: e.State, To: next, Time: t})
			e.State = next
		}
	}
	return changes, nil
}

func (m *PositionMap) stateAt(e *element.PositionedElement, t float64) element.State {
	ramp := m.opts.Ramp
	if !e.OpenEnded() {
		ramp = math.Min(ramp, e.Duration()/3)
	}
	switch {
	case t < e.Enter:
		return element.StatePlanned
	case t < e.Enter+ramp:
		return element.StateEntering
	case e.OpenEnded() || t < e.Exit-ramp:
		return element.StateActive
	case t < e.Exit:
		return element.StateExiting
	default:
		return element.StateHidden
	}
}

// Transition moves one element a single legal lifecycle step.
func (m *PositionMap) Transition(key string, next element.State) error {
	e, ok := m.elements[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "element %q is not registered", key)
	}
	if !e.State.CanTransition(next) {
		return errors.New(errors.ErrCodeInvalidStateTransition,
			"element %q: cannot move from %s to %s", key, e.State, next)
	}
	e.State = next
	return nil
}
