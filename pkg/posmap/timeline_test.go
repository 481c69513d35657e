package posmap

import (
	"math"
	"testing"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
)

func TestAdvanceToStates(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 1, 5))

	steps := []struct {
		at   float64
		want element.State
	}{
		{0, element.StatePlanned},
		{1.2, element.StateEntering},
		{2, element.StateActive},
		{4.5, element.StateExiting},
		{4.7, element.StateExiting},
		{6, element.StateHidden},
	}

	for _, s := range steps {
		if _, err := m.AdvanceTo(s.at); err != nil {
			t.Fatalf("AdvanceTo(%v) error: %v", s.at, err)
		}
		got, _ := m.Get("a")
		if got.State != s.want {
			t.Errorf("state at %v = %v, want %v", s.at, got.State, s.want)
		}
	}
}

func TestAdvanceToRecordsEveryStep(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 0, 2))

	changes, err := m.AdvanceTo(10)
	if err != nil {
		t.Fatal(err)
	}
	want := []element.State{element.StateEntering, element.StateActive, element.StateExiting, element.StateHidden}
	if len(changes) != len(want) {
		t.Fatalf("changes = %+v, want %d steps", changes, len(want))
	}
	from := element.StatePlanned
	for i, c := range changes {
		if c.From != from || c.To != want[i] || c.Time != 10 {
			t.Errorf("change %d = %+v, want %v -> %v at 10", i, c, from, want[i])
		}
		from = c.To
	}
}

func TestAdvanceToShortWindowRamp(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 0, 0.6)) // ramp shrinks to 0.2

	if _, err := m.AdvanceTo(0.3); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Get("a"); got.State != element.StateActive {
		t.Errorf("state = %v, want active", got.State)
	}
}

func TestAdvanceToOpenEnded(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 0, math.Inf(1)))

	if _, err := m.AdvanceTo(1e6); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Get("a"); got.State != element.StateActive {
		t.Errorf("state = %v, want active", got.State)
	}
}

func TestAdvanceToBackwardFails(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 0, 5))

	if _, err := m.AdvanceTo(3); err != nil {
		t.Fatal(err)
	}
	_, err := m.AdvanceTo(2)
	if !errors.Is(err, errors.ErrCodeInvalidStateTransition) {
		t.Errorf("AdvanceTo(2) error = %v, want INVALID_STATE_TRANSITION", err)
	}
	if m.Now() != 3 {
		t.Errorf("Now() = %v, want 3", m.Now())
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name string
		key  string
		to   element.State
		code errors.Code
	}{
		{"legal step", "a", element.StateEntering, ""},
		{"same state", "a", element.StatePlanned, ""},
		{"skip ahead", "a", element.StateActive, errors.ErrCodeInvalidStateTransition},
		{"backward", "a", element.StatePlanned - 1, errors.ErrCodeInvalidStateTransition},
		{"unknown key", "zz", element.StateEntering, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, Options{})
			mustAdd(t, m, box("a", 0, 0, 1, 1, 0, 5))

			err := m.Transition(tt.key, tt.to)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Transition() error: %v", err)
				}
				if got, _ := m.Get(tt.key); got.State != tt.to {
					t.Errorf("state = %v, want %v", got.State, tt.to)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Transition() error = %v, want %s", err, tt.code)
			}
		})
	}
}
