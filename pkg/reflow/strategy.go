package reflow

import (
	"fmt"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// Strategy is a scene-level remediation.
type Strategy int

const (
	ScaleDown Strategy = iota
	Redistribute
	StackVertical
	Prioritize
	Paginate
)

var strategyNames = [...]string{"scale_down", "redistribute", "stack_vertical", "prioritize", "paginate"}

// AllStrategies returns the strategies in fallback order.
func AllStrategies() []Strategy {
	return []Strategy{ScaleDown, Redistribute, StackVertical, Prioritize, Paginate}
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Fallback returns the strategy tried after s fails. Paginate has none.
func (s Strategy) Fallback() (Strategy, bool) {
	if s < ScaleDown || s >= Paginate {
		return 0, false
	}
	return s + 1, true
}

// ParseStrategy parses a strategy name such as "stack_vertical".
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown reflow strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Severity grades how far a scene overflows its frame.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
)

var severityNames = [...]string{"none", "minor", "moderate", "severe"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	for i, n := range severityNames {
		if n == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown overflow severity %q", b)
}

// Initial returns the first strategy tried for s. SeverityNone needs no
// strategy and reports false.
func (s Severity) Initial() (Strategy, bool) {
	switch s {
	case SeverityMinor:
		return ScaleDown, true
	case SeverityModerate:
		return Redistribute, true
	case SeveritySevere:
		return Paginate, true
	}
	return 0, false
}
