package posmap

import (
	"cmp"
	"slices"

	"github.com/matzehuels/sceneguard/pkg/element"
)

// Severity grades a collision by overlap area.
type Severity string

const (
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// Collision is an overlap between two visible elements at one instant.
// A is always the smaller key.
type Collision struct {
	Time        float64  `json:"time"`
	A           string   `json:"a"`
	B           string   `json:"b"`
	OverlapArea float64  `json:"overlap_area"`
	Severity    Severity `json:"severity"`
}

// Pair is a conflicting pair found by the optimizer.
type Pair struct {
	A, B    string
	Penalty float64
}

// CollisionsAt reports every pair of elements visible at t whose bounds
// overlap beyond the tolerance.
func (m *PositionMap) CollisionsAt(t float64) []Collision {
	var active []*element.PositionedElement
	for _, k := range m.keys {
		if e := m.elements[k]; e.VisibleAt(t) {
			active = append(active, e)
		}
	}
	var out []Collision
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if !a.Bounds.Overlaps(b.Bounds, m.opts.Tolerance) {
				continue
			}
			area := a.Bounds.IntersectionArea(b.Bounds)
			sev := SeverityModerate
			if area > m.opts.CriticalArea {
				sev = SeverityCritical
			}
			out = append(out, Collision{Time: t, A: a.Key, B: b.Key, OverlapArea: area, Severity: sev})
		}
	}
	return out
}

// SampleTimes returns the sorted, de-duplicated instants checked by
// DetectAllCollisions: every enter time, every finite exit time and every
// finite window midpoint.
func (m *PositionMap) SampleTimes() []float64 {
	var times []float64
	for _, k := range m.keys {
		e := m.elements[k]
		times = append(times, e.Enter)
		if !e.OpenEnded() {
			times = append(times, e.Exit, (e.Enter+e.Exit)/2)
		}
	}
	slices.Sort(times)
	return slices.Compact(times)
}

// DetectAllCollisions samples SampleTimes and reports every overlap found,
// ordered by time and then by key pair. The sample set is finite; overlaps
// strictly between samples are not reported.
func (m *PositionMap) DetectAllCollisions() []Collision {
	var out []Collision
	for _, t := range m.SampleTimes() {
		out = append(out, m.CollisionsAt(t)...)
	}
	return out
}

// conflictPairs lists every pair of visible elements with intersecting
// windows and a non-zero penalty, worst first. Ties break by key.
func (m *PositionMap) conflictPairs() []Pair {
	var pairs []Pair
	for i := 0; i < len(m.keys); i++ {
		a := m.elements[m.keys[i]]
		if !a.State.Visible() {
			continue
		}
		for j := i + 1; j < len(m.keys); j++ {
			b := m.elements[m.keys[j]]
			if !b.State.Visible() || !element.WindowsIntersect(a, b) {
				continue
			}
			if p := m.pairPenalty(a.Bounds, b.Bounds); p > 0 {
				pairs = append(pairs, Pair{A: a.Key, B: b.Key, Penalty: p})
			}
		}
	}
	slices.SortStableFunc(pairs, func(x, y Pair) int {
		if c := cmp.Compare(y.Penalty, x.Penalty); c != 0 {
			return c
		}
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return pairs
}

// ConflictPairs returns the pairs OptimizeLayout would work on, worst first.
func (m *PositionMap) ConflictPairs() []Pair { return m.conflictPairs() }
