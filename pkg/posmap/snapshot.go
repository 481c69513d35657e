package posmap

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
)

// Snapshot is a flat, serializable record of a map for debugging and replay.
type Snapshot struct {
	Frame       frame.Config                 `json:"safe_frame"`
	Tolerance   float64                      `json:"collision_tolerance"`
	CurrentTime *float64                     `json:"current_time,omitempty"`
	Elements    []*element.PositionedElement `json:"elements"`
}

// Snapshot captures the frame, tolerance, cursor and element table.
func (m *PositionMap) Snapshot() Snapshot {
	s := Snapshot{
		Frame:     m.frame.Config(),
		Tolerance: m.opts.Tolerance,
		Elements:  m.Elements(),
	}
	if !math.IsInf(m.now, -1) {
		now := m.now
		s.CurrentTime = &now
	}
	return s
}

// Restore rebuilds a map from s without re-running conflict resolution.
// The snapshot's tolerance overrides opts.Tolerance.
func Restore(s Snapshot, opts Options) (*PositionMap, error) {
	f, err := frame.New(s.Frame)
	if err != nil {
		return nil, err
	}
	if s.Tolerance > 0 {
		opts.Tolerance = s.Tolerance
	}
	m := New(f, opts)
	if err := m.opts.Validate(); err != nil {
		return nil, err
	}
	for _, e := range s.Elements {
		if e == nil {
			continue
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.elements[e.Key]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "snapshot lists %q twice", e.Key)
		}
		m.insert(e.Clone())
	}
	if s.CurrentTime != nil {
		m.now = *s.CurrentTime
	}
	return m, nil
}

// WriteJSON encodes s as indented JSON.
func (s Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteJSON.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode snapshot")
	}
	return s, nil
}
