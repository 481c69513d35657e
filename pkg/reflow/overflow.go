package reflow

import (
	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
)

// Pair is two elements whose bounds collide while both are on screen.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Overflow is the result of CheckOverflow.
type Overflow struct {
	OutOfBounds    []string       `json:"overflow_elements,omitempty"`
	Collisions     []Pair         `json:"collision_pairs,omitempty"`
	CrowdedRegions []frame.Region `json:"crowded_regions,omitempty"`
	Severity       Severity       `json:"severity"`
}

// HasOverflow reports whether any problem was found.
func (o Overflow) HasOverflow() bool { return o.Score() > 0 }

// Score counts collisions, out-of-bounds elements and crowded regions.
// Remediation never raises it.
func (o Overflow) Score() int {
	return len(o.OutOfBounds) + len(o.Collisions) + len(o.CrowdedRegions)
}

// CheckOverflow grades a provisional element set:
//
//	severe   more than 3 collisions or more than 2 out-of-bounds elements
//	moderate more than 1 collision or more than 1 crowded region
//	minor    any other problem
//
// Collisions only count for pairs whose time windows intersect. A region is
// crowded when more than CrowdedThreshold of its elements are on screen at
// once.
func (m *Manager) CheckOverflow(els []*element.PositionedElement) Overflow {
	var o Overflow
	safe := m.frame.SafeBounds()
	for _, e := range els {
		if !safe.Contains(e.Bounds) {
			o.OutOfBounds = append(o.OutOfBounds, e.Key)
		}
	}
	o.Collisions = collisions(els, m.opts.Buffer)

	load := regionLoad(els)
	for _, r := range frame.AllRegions() {
		if load[r] > m.opts.CrowdedThreshold {
			o.CrowdedRegions = append(o.CrowdedRegions, r)
		}
	}

	switch {
	case !o.HasOverflow():
		o.Severity = SeverityNone
	case len(o.Collisions) > 3 || len(o.OutOfBounds) > 2:
		o.Severity = SeveritySevere
	case len(o.Collisions) > 1 || len(o.CrowdedRegions) > 1:
		o.Severity = SeverityModerate
	default:
		o.Severity = SeverityMinor
	}
	return o
}

func collisions(els []*element.PositionedElement, buffer float64) []Pair {
	var out []Pair
	for i := 0; i < len(els); i++ {
		for j := i + 1; j < len(els); j++ {
			a, b := els[i], els[j]
			if element.WindowsIntersect(a, b) && a.Bounds.Overlaps(b.Bounds, buffer) {
				out = append(out, Pair{A: a.Key, B: b.Key})
			}
		}
	}
	return out
}

// regionLoad returns, per region, the largest number of its elements on
// screen at the same instant. Instants are sampled at every enter time, which
// is where concurrency can increase.
func regionLoad(els []*element.PositionedElement) map[frame.Region]int {
	load := make(map[frame.Region]int)
	for _, s := range els {
		n := 0
		for _, e := range els {
			if e.Region == s.Region && e.InWindow(s.Enter) {
				n++
			}
		}
		load[s.Region] = max(load[s.Region], n)
	}
	return load
}

// regionPeak returns the earliest instant at which region r holds the most
// elements, and the elements on screen there.
func regionPeak(els []*element.PositionedElement, r frame.Region) (float64, []*element.PositionedElement) {
	var at float64
	var live []*element.PositionedElement
	for _, s := range els {
		if s.Region != r {
			continue
		}
		var here []*element.PositionedElement
		for _, e := range els {
			if e.Region == r && e.InWindow(s.Enter) {
				here = append(here, e)
			}
		}
		if len(here) > len(live) || (len(here) == len(live) && s.Enter < at) {
			at, live = s.Enter, here
		}
	}
	return at, live
}
