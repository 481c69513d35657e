package element

import (
	"fmt"
	"strings"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// State is the lifecycle state of an element.
type State int

const (
	StatePlanned  State = iota // registered, bounds assigned
	StateEntering              // enter animation running
	StateActive                // steady visible
	StateExiting               // exit animation running
	StateHidden                // past exit, retained for continuity
	StateRemoved               // terminal
)

var stateNames = [...]string{"planned", "entering", "active", "exiting", "hidden", "removed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState parses a lower- or mixed-case state name.
func ParseState(v string) (State, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range stateNames {
		if name == v {
			return State(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown element state %q", v)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown element state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input decodes to
// StatePlanned.
func (s *State) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = StatePlanned
		return nil
	}
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Visible reports whether the state is rendered when its window covers the
// current time. Planned counts as visible: it is scheduled content.
func (s State) Visible() bool {
	return s >= StatePlanned && s <= StateExiting
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateRemoved }

// CanTransition reports whether moving from s to next is a legal single step.
// Staying in the same state is always legal.
func (s State) CanTransition(next State) bool {
	if s == next {
		return true
	}
	switch s {
	case StatePlanned:
		return next == StateEntering
	case StateEntering:
		return next == StateActive
	case StateActive:
		return next == StateExiting
	case StateExiting:
		return next == StateHidden || next == StateRemoved
	case StateHidden:
		return next == StateRemoved
	}
	return false
}

// Path returns the chain of single steps leading from s to target, excluding
// s itself. It returns false when target is not reachable.
func (s State) Path(target State) ([]State, bool) {
	if s == target {
		return nil, true
	}
	var out []State
	cur := s
	for cur != target {
		next := cur + 1
		if cur == StateExiting && target == StateRemoved {
			next = StateRemoved
		}
		if !cur.CanTransition(next) {
			return nil, false
		}
		out = append(out, next)
		cur = next
	}
	return out, true
}
