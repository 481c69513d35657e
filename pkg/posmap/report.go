package posmap

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// overcrowdedRegion is the element count above which a region is reported as
// overcrowded.
const overcrowdedRegion = 3

// LayoutReport summarizes a map for diagnostics.
type LayoutReport struct {
	TotalElements      int                `json:"total_elements"`
	TotalCollisions    int                `json:"total_collisions"`
	CriticalCollisions int                `json:"critical_collisions"`
	CollidingPairs     int                `json:"colliding_pairs"`
	MaxConcurrent      int                `json:"max_concurrent_elements"`
	RegionUsage        map[string]int     `json:"region_usage"`
	RegionUtilization  map[string]float64 `json:"region_utilization"`
	PeakCoverage       float64            `json:"peak_coverage"`
	ContentExtent      geom.Bounds        `json:"content_extent"`
	OutOfBounds        []string           `json:"out_of_bounds,omitempty"`
	Unresolved         []string           `json:"unresolved,omitempty"`
	Efficiency         float64            `json:"layout_efficiency"`
	Collisions         []Collision        `json:"collisions,omitempty"`
	Recommendations    []string           `json:"recommendations,omitempty"`
}

// Report builds a LayoutReport from the current state of the map.
func (m *PositionMap) Report() LayoutReport {
	r := LayoutReport{
		TotalElements:     len(m.keys),
		RegionUsage:       make(map[string]int),
		RegionUtilization: make(map[string]float64),
	}

	r.Collisions = m.DetectAllCollisions()
	r.TotalCollisions = len(r.Collisions)
	pairs := make(map[[2]string]bool)
	for _, c := range r.Collisions {
		if c.Severity == SeverityCritical {
			r.CriticalCollisions++
		}
		pairs[[2]string{c.A, c.B}] = true
	}
	r.CollidingPairs = len(pairs)

	safe := m.frame.SafeBounds()
	covered := make(map[frame.Region]float64)
	var boxes []geom.Bounds
	for _, k := range m.keys {
		e := m.elements[k]
		r.RegionUsage[e.Region.String()]++
		covered[e.Region] += e.Bounds.IntersectionArea(m.frame.RegionBounds(e.Region))
		boxes = append(boxes, e.Bounds)
		if !safe.Contains(e.Bounds) {
			r.OutOfBounds = append(r.OutOfBounds, k)
		}
		if e.Unresolved {
			r.Unresolved = append(r.Unresolved, k)
		}
	}
	for region, area := range covered {
		if ra := m.frame.RegionBounds(region).Area(); ra > 0 {
			r.RegionUtilization[region.String()] = area / ra
		}
	}
	r.ContentExtent = geom.Union(boxes...)

	for _, t := range m.SampleTimes() {
		var n int
		var area float64
		for _, k := range m.keys {
			if e := m.elements[k]; e.VisibleAt(t) {
				n++
				area += e.Bounds.Area()
			}
		}
		r.MaxConcurrent = max(r.MaxConcurrent, n)
		if sa := safe.Area(); sa > 0 {
			r.PeakCoverage = math.Max(r.PeakCoverage, area/sa)
		}
	}

	r.Efficiency = math.Max(0, 1-0.2*float64(r.CriticalCollisions))
	r.Recommendations = recommendations(r)
	return r
}

func recommendations(r LayoutReport) []string {
	var out []string
	if r.TotalCollisions > 0 {
		out = append(out, fmt.Sprintf("Resolve %d element collisions", r.TotalCollisions))
	}
	if len(r.Unresolved) > 0 {
		out = append(out, fmt.Sprintf("Review degraded placements: %s", strings.Join(r.Unresolved, ", ")))
	}
	var crowded, unused []string
	for _, region := range frame.AllRegions() {
		n := r.RegionUsage[region.String()]
		switch {
		case n > overcrowdedRegion:
			crowded = append(crowded, region.String())
		case n == 0:
			unused = append(unused, region.String())
		}
	}
	if len(crowded) > 0 {
		out = append(out, fmt.Sprintf("Redistribute elements from overcrowded regions: %s", strings.Join(crowded, ", ")))
	}
	if len(unused) > 0 && len(r.RegionUsage) > 0 {
		out = append(out, fmt.Sprintf("Consider utilizing unused regions: %s", strings.Join(unused, ", ")))
	}
	if r.PeakCoverage > 1 {
		out = append(out, fmt.Sprintf("Peak coverage %.0f%% of the safe area; split dense moments across scenes", r.PeakCoverage*100))
	}
	return out
}
