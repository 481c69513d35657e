package frame

import (
	"fmt"
	"strings"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// Region names one of the nine placement anchors of the safe area.
// The zero value is RegionCenter.
type Region int

const (
	RegionCenter Region = iota
	RegionTop
	RegionBottom
	RegionLeft
	RegionRight
	RegionTopLeft
	RegionTopRight
	RegionBottomLeft
	RegionBottomRight

	numRegions
)

var regionNames = [numRegions]string{
	"center",
	"top",
	"bottom",
	"left",
	"right",
	"top_left",
	"top_right",
	"bottom_left",
	"bottom_right",
}

// AllRegions lists every region in declaration order. Iteration over regions
// always uses this order so reports and placements are deterministic.
func AllRegions() []Region {
	out := make([]Region, numRegions)
	for i := range out {
		out[i] = Region(i)
	}
	return out
}

// Valid reports whether r is one of the nine declared regions.
func (r Region) Valid() bool { return r >= 0 && r < numRegions }

func (r Region) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionNames[r]
}

// ParseRegion parses a region name. Matching ignores case and accepts '-' or
// ' ' in place of '_', so "Top-Left" and "top left" both parse.
func ParseRegion(s string) (Region, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for i, name := range regionNames {
		if name == norm {
			return Region(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidRegion, "unknown region %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Region) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidRegion, "unknown region %d", int(r))
	}
	return []byte(regionNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes
// to RegionCenter.
func (r *Region) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RegionCenter
		return nil
	}
	v, err := ParseRegion(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// alternatives is the fixed fallback order used when an element cannot be
// placed in its requested region.
var alternatives = [numRegions][]Region{
	RegionCenter:      {RegionTop, RegionBottom, RegionLeft, RegionRight},
	RegionTop:         {RegionCenter, RegionTopLeft, RegionTopRight},
	RegionBottom:      {RegionCenter, RegionBottomLeft, RegionBottomRight},
	RegionLeft:        {RegionCenter, RegionTopLeft, RegionBottomLeft},
	RegionRight:       {RegionCenter, RegionTopRight, RegionBottomRight},
	RegionTopLeft:     {RegionTop, RegionLeft, RegionCenter},
	RegionTopRight:    {RegionTop, RegionRight, RegionCenter},
	RegionBottomLeft:  {RegionBottom, RegionLeft, RegionCenter},
	RegionBottomRight: {RegionBottom, RegionRight, RegionCenter},
}

// Alternatives returns the ordered fallback regions for r. The result is a
// fresh slice; invalid regions fall back to center only.
func (r Region) Alternatives() []Region {
	if !r.Valid() {
		return []Region{RegionCenter}
	}
	return append([]Region(nil), alternatives[r]...)
}
