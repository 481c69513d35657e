package posmap

import (
	"fmt"
	"math"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// =============================================================================
// Resolution status
// =============================================================================

// Status says whether a placement is conflict-free.
type Status int

const (
	StatusResolved Status = iota
	StatusDegraded
)

func (s Status) String() string {
	if s == StatusDegraded {
		return "degraded"
	}
	return "resolved"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "resolved", "":
		*s = StatusResolved
	case "degraded":
		*s = StatusDegraded
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown resolution status %q", b)
	}
	return nil
}

// Strategy names the step of the resolution chain that produced a placement.
type Strategy int

const (
	StrategyNone         Strategy = iota // no conflict to resolve
	StrategyGrid                         // local repositioning within the region
	StrategyRegion                       // moved to an alternative region
	StrategyScale                        // scaled down around the center
	StrategyTimeShift                    // delayed enter and exit
	StrategyLeastPenalty                 // exhausted; least-bad candidate kept
	StrategyKeep                         // exhausted during optimization; placement unchanged
)

var strategyNames = [...]string{"none", "grid", "region", "scale", "time_shift", "least_penalty", "keep"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	for i, name := range strategyNames {
		if name == string(b) {
			*s = Strategy(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown resolution strategy %q", b)
}

// Resolution is the outcome of placing one element.
type Resolution struct {
	Key      string   `json:"key"`
	Status   Status   `json:"status"`
	Strategy Strategy `json:"strategy"`
	Reason   string   `json:"reason,omitempty"`
}

// Degraded reports whether the element was placed with remaining conflicts.
func (r Resolution) Degraded() bool { return r.Status == StatusDegraded }

// =============================================================================
// Penalties
// =============================================================================

// proximityFloor is the penalty fraction charged for boxes that only violate
// the tolerance without intersecting.
const proximityFloor = 0.001

// pairPenalty returns 0 for boxes that keep the tolerance, otherwise the
// intersection as a fraction of the smaller area, scaled.
func (m *PositionMap) pairPenalty(a, b geom.Bounds) float64 {
	if !a.Overlaps(b, m.opts.Tolerance) {
		return 0
	}
	minArea := math.Min(a.Area(), b.Area())
	if minArea <= 0 {
		return 0
	}
	frac := math.Max(a.IntersectionArea(b)/minArea, proximityFloor)
	return frac * m.opts.PenaltyScale
}

// penalty sums the pair penalties of e against every other visible element
// whose window intersects e's. Zero means conflict-free.
func (m *PositionMap) penalty(e *element.PositionedElement) float64 {
	var total float64
	for _, k := range m.keys {
		if k == e.Key {
			continue
		}
		o := m.elements[k]
		if !o.State.Visible() || !element.WindowsIntersect(e, o) {
			continue
		}
		total += m.pairPenalty(e.Bounds, o.Bounds)
	}
	return total
}

// =============================================================================
// Resolution chain
// =============================================================================

type candidate struct {
	strategy  Strategy
	bounds    geom.Bounds
	region    frame.Region
	shift     float64
	fontScale float64
}

func (c candidate) apply(e *element.PositionedElement) {
	e.Bounds = c.bounds
	e.Region = c.region
	e.Shift(c.shift)
	if e.FontSize > 0 {
		e.FontSize *= c.fontScale
	}
}

// resolve runs the strategy chain on e and mutates it to the chosen placement.
// e may already be registered; penalties skip its own key. Every strategy
// starts from e's placement on entry. With keepBaseline the unchanged
// placement competes as a fallback candidate.
func (m *PositionMap) resolve(e *element.PositionedElement, keepBaseline bool) Resolution {
	orig := e.Clone()

	var (
		best    *candidate
		bestPen = math.Inf(1)
		tried   int
	)
	if keepBaseline {
		best = &candidate{strategy: StrategyKeep, bounds: orig.Bounds, region: orig.Region, fontScale: 1}
		bestPen = m.penalty(orig)
	}

	try := func(c candidate) bool {
		tried++
		trial := orig.Clone()
		c.apply(trial)
		p := m.penalty(trial)
		if p == 0 {
			c.apply(e)
			return true
		}
		if p < bestPen {
			cc := c
			best, bestPen = &cc, p
		}
		return false
	}
	resolved := func(s Strategy) Resolution {
		e.Unresolved = false
		m.logger.Debug("resolved conflict", "element", e.Key, "strategy", s, "candidates", tried)
		return Resolution{Key: e.Key, Status: StatusResolved, Strategy: s}
	}

	// 1. Local repositioning on a grid inside the current region.
	region := m.frame.RegionBounds(orig.Region)
	for _, pt := range region.Grid(m.opts.GridRows, m.opts.GridCols) {
		b := orig.Bounds.MoveTo(pt)
		if !region.Contains(b) {
			continue
		}
		if try(candidate{strategy: StrategyGrid, bounds: b, region: orig.Region, fontScale: 1}) {
			return resolved(StrategyGrid)
		}
	}

	// 2. Region reassignment.
	for _, alt := range orig.Region.Alternatives() {
		rb := m.frame.RegionBounds(alt)
		f := orig.Bounds.ScaleToFit(rb, m.opts.FitFill)
		c := candidate{strategy: StrategyRegion, bounds: orig.Bounds.FitInto(rb, m.opts.FitFill), region: alt, fontScale: f}
		if try(c) {
			return resolved(StrategyRegion)
		}
	}

	// 3. Progressive scale-down, never compounded.
	for _, f := range m.opts.ScaleSteps {
		if try(candidate{strategy: StrategyScale, bounds: orig.Bounds.Scale(f), region: orig.Region, fontScale: f}) {
			return resolved(StrategyScale)
		}
	}

	// 4. Time shift within the scene budget.
	for _, dt := range m.opts.TimeShifts {
		if !m.shiftAllowed(orig, dt) {
			continue
		}
		if try(candidate{strategy: StrategyTimeShift, bounds: orig.Bounds, region: orig.Region, shift: dt, fontScale: 1}) {
			return resolved(StrategyTimeShift)
		}
	}

	if best == nil {
		best = &candidate{strategy: StrategyNone, bounds: orig.Bounds, region: orig.Region, fontScale: 1}
	}
	from := best.strategy
	if best.strategy != StrategyKeep {
		best.strategy = StrategyLeastPenalty
	}
	*e = *orig
	best.apply(e)
	e.Unresolved = true

	reason := fmt.Sprintf("all %d candidates conflict; kept %s candidate with penalty %.3f", tried, from, bestPen)
	m.logger.Warn("unresolved conflict",
		"element", e.Key,
		"strategy", best.strategy,
		"bounds", e.Bounds,
		"region", e.Region,
		"penalty", bestPen)
	return Resolution{Key: e.Key, Status: StatusDegraded, Strategy: best.strategy, Reason: reason}
}

// shiftAllowed reports whether delaying e by dt keeps it inside the scene budget.
func (m *PositionMap) shiftAllowed(e *element.PositionedElement, dt float64) bool {
	if e.OpenEnded() {
		return e.Enter+dt < m.budgetHi
	}
	return e.Exit+dt <= m.budgetHi
}
