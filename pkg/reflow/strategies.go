package reflow

import (
	"math"
	"slices"

	"seehuhn.de/go/geom/vec"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
)

// Outcome is the result of running one strategy over a scene's elements.
type Outcome struct {
	Strategy Strategy

	// Elements stay in the scene, in input order.
	Elements []*element.PositionedElement

	// Deferred are moved to a continuation scene by Paginate.
	Deferred []*element.PositionedElement

	// Dropped are removed from the scene by Prioritize.
	Dropped []*element.PositionedElement

	// Applied reports whether the strategy found anything to change.
	Applied bool

	Affected []string
	Params   map[string]any
}

// Execute runs a single strategy on copies of els. It does not consult the
// fallback chain and does not record history.
func (m *Manager) Execute(s Strategy, els []*element.PositionedElement) Outcome {
	work := cloneAll(els)
	switch s {
	case ScaleDown:
		return m.scaleDown(work)
	case Redistribute:
		return m.redistribute(work)
	case StackVertical:
		return m.stackVertical(work)
	case Prioritize:
		return m.prioritize(work)
	case Paginate:
		return m.paginate(work)
	}
	return Outcome{Strategy: s, Elements: work}
}

// scaleDown shrinks every element at or below the priority threshold and
// pulls out-of-bounds elements into the safe area regardless of priority.
func (m *Manager) scaleDown(work []*element.PositionedElement) Outcome {
	out := Outcome{Strategy: ScaleDown, Elements: work}
	safe := m.frame.SafeBounds()
	var scaled, fitted int
	for _, e := range work {
		changed := false
		if e.Priority <= m.opts.PriorityThreshold {
			e.Bounds = e.Bounds.Scale(m.opts.ScaleFactor)
			scaleFont(e, m.opts.ScaleFactor, m.opts.MinFontSize)
			scaled++
			changed = true
		}
		if !safe.Contains(e.Bounds) {
			before := e.Bounds.Width()
			e.Bounds = e.Bounds.ClampInto(safe)
			if before > 0 {
				scaleFont(e, e.Bounds.Width()/before, m.opts.MinFontSize)
			}
			fitted++
			changed = true
		}
		if changed {
			out.Affected = append(out.Affected, e.Key)
		}
	}
	out.Applied = scaled+fitted > 0
	out.Params = map[string]any{
		"scale_factor":    m.opts.ScaleFactor,
		"elements_scaled": scaled,
		"elements_fitted": fitted,
	}
	return out
}

// redistribute moves the lowest-priority members of every region holding
// more than RedistributeThreshold concurrent elements into the least
// occupied region that still has room, alternatives first. Only members on
// screen at the region's peak instant are candidates.
func (m *Manager) redistribute(work []*element.PositionedElement) Outcome {
	out := Outcome{Strategy: Redistribute, Elements: work}
	limit := m.opts.RedistributeThreshold
	load := regionLoad(work)

	for _, r := range frame.AllRegions() {
		if load[r] <= limit {
			continue
		}
		_, live := regionPeak(work, r)
		element.SortByPriority(live)
		for _, e := range live[min(limit, len(live)):] {
			target, ok := leastOccupied(r, load, limit)
			if !ok {
				break
			}
			rb := m.frame.RegionBounds(target)
			f := e.Bounds.ScaleToFit(rb, m.opts.FitFill)
			e.Bounds = e.Bounds.FitInto(rb, m.opts.FitFill)
			scaleFont(e, f, m.opts.MinFontSize)
			e.Region = target
			load[target]++
			load[r]--
			out.Affected = append(out.Affected, e.Key)
		}
	}
	out.Applied = len(out.Affected) > 0
	out.Params = map[string]any{"elements_redistributed": len(out.Affected)}
	return out
}

func leastOccupied(from frame.Region, load map[frame.Region]int, limit int) (frame.Region, bool) {
	candidates := from.Alternatives()
	for _, r := range frame.AllRegions() {
		if r != from && !slices.Contains(candidates, r) {
			candidates = append(candidates, r)
		}
	}
	best, found := frame.Region(0), false
	for _, r := range candidates {
		if load[r] >= limit {
			continue
		}
		if !found || load[r] < load[best] {
			best, found = r, true
		}
	}
	return best, found
}

// stackVertical splits every region with more than one concurrent element
// into equal horizontal slices, highest priority on top, and shrinks
// elements that do not fit their slice.
func (m *Manager) stackVertical(work []*element.PositionedElement) Outcome {
	out := Outcome{Strategy: StackVertical, Elements: work}
	load := regionLoad(work)

	for _, r := range frame.AllRegions() {
		if load[r] <= 1 {
			continue
		}
		members := inRegion(work, r)
		element.SortByPriority(members)

		rb := m.frame.RegionBounds(r)
		slice := rb.Height() / float64(len(members))
		for i, e := range members {
			c := vec.Vec2{X: rb.Center().X, Y: rb.YMax - (float64(i)+0.5)*slice}
			e.Bounds = e.Bounds.MoveTo(c)

			f := 1.0
			if h := e.Bounds.Height(); h > slice*m.opts.StackFill {
				f = slice * m.opts.StackFill / h
			}
			if w := e.Bounds.Width(); w > rb.Width()*m.opts.FitFill {
				f = math.Min(f, rb.Width()*m.opts.FitFill/w)
			}
			if f < 1 {
				e.Bounds = e.Bounds.Scale(f)
				scaleFont(e, f, m.opts.StackMinFontSize)
			}
			out.Affected = append(out.Affected, e.Key)
		}
	}
	out.Applied = len(out.Affected) > 0
	out.Params = map[string]any{"elements_stacked": len(out.Affected)}
	return out
}

// prioritize keeps at most MaxPerRegion elements per region, highest
// priority first, and drops the rest along with anything depending on them.
func (m *Manager) prioritize(work []*element.PositionedElement) Outcome {
	sorted := slices.Clone(work)
	element.SortByPriority(sorted)

	counts := make(map[frame.Region]int)
	var kept, dropped []*element.PositionedElement
	for _, e := range sorted {
		if counts[e.Region] < m.opts.MaxPerRegion {
			kept = append(kept, e)
			counts[e.Region]++
		} else {
			dropped = append(dropped, e)
		}
	}
	kept, dropped = carryDependents(kept, dropped)

	out := Outcome{
		Strategy: Prioritize,
		Elements: inputOrder(work, kept),
		Dropped:  dropped,
		Applied:  len(dropped) > 0,
		Affected: element.Keys(dropped),
	}
	out.Params = map[string]any{"elements_kept": len(kept), "elements_removed": len(dropped)}
	return out
}

// paginate keeps the higher-priority half (rounded up) and defers the rest,
// with their dependents, to a continuation scene. The top element always
// stays.
func (m *Manager) paginate(work []*element.PositionedElement) Outcome {
	out := Outcome{Strategy: Paginate, Elements: work}
	if len(work) < 2 {
		out.Params = map[string]any{"elements_kept": len(work)}
		return out
	}
	sorted := slices.Clone(work)
	element.SortByPriority(sorted)

	keep := (len(sorted) + 1) / 2
	kept, deferred := carryDependents(slices.Clone(sorted[:keep]), slices.Clone(sorted[keep:]))

	out.Elements = inputOrder(work, kept)
	out.Deferred = deferred
	out.Applied = true
	out.Affected = element.Keys(deferred)
	out.Params = map[string]any{
		"elements_kept":     len(kept),
		"overflow_elements": element.Keys(deferred),
	}
	return out
}

// =============================================================================
// Helpers
// =============================================================================

// carryDependents moves every kept element that depends on a moved one into
// moved, transitively. kept[0] never moves.
func carryDependents(kept, moved []*element.PositionedElement) ([]*element.PositionedElement, []*element.PositionedElement) {
	gone := make(map[string]bool, len(moved))
	for _, e := range moved {
		gone[e.Key] = true
	}
	dependsOnGone := func(e *element.PositionedElement) bool {
		return slices.ContainsFunc(e.Dependencies, func(d string) bool { return gone[d] })
	}
	for changed := true; changed; {
		changed = false
		for i := 1; i < len(kept); i++ {
			if e := kept[i]; dependsOnGone(e) {
				gone[e.Key] = true
				moved = append(moved, e)
				kept = slices.Delete(kept, i, i+1)
				changed = true
				i--
			}
		}
	}
	return kept, moved
}

func inputOrder(all, subset []*element.PositionedElement) []*element.PositionedElement {
	keep := make(map[*element.PositionedElement]bool, len(subset))
	for _, e := range subset {
		keep[e] = true
	}
	out := make([]*element.PositionedElement, 0, len(subset))
	for _, e := range all {
		if keep[e] {
			out = append(out, e)
		}
	}
	return out
}

func inRegion(els []*element.PositionedElement, r frame.Region) []*element.PositionedElement {
	var out []*element.PositionedElement
	for _, e := range els {
		if e.Region == r {
			out = append(out, e)
		}
	}
	return out
}

// scaleFont follows a bounds scale of f, never taking the font below floor
// and never raising it.
func scaleFont(e *element.PositionedElement, f, floor float64) {
	if e.FontSize <= 0 || f >= 1 {
		return
	}
	e.FontSize = math.Max(math.Min(e.FontSize, floor), e.FontSize*f)
}

func cloneAll(els []*element.PositionedElement) []*element.PositionedElement {
	out := make([]*element.PositionedElement, len(els))
	for i, e := range els {
		out[i] = e.Clone()
	}
	return out
}
