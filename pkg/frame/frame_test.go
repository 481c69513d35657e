package frame

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDefaultSafeBounds(t *testing.T) {
	f := Default()
	s := f.SafeBounds()

	// 14 × 8 canvas, 6% margin: 0.84 × 0.48 inset on each side.
	want := geom.Bounds{XMin: -6.16, YMin: -3.52, XMax: 6.16, YMax: 3.52}
	for _, pair := range [][2]float64{
		{s.XMin, want.XMin}, {s.YMin, want.YMin}, {s.XMax, want.XMax}, {s.YMax, want.YMax},
	} {
		if !approx(pair[0], pair[1]) {
			t.Fatalf("SafeBounds() = %v, want %v", s, want)
		}
	}
	if !f.Canvas().Contains(s) {
		t.Error("safe bounds escape the canvas")
	}
}

func TestRegionBoundsInsideSafeArea(t *testing.T) {
	f := Default()
	for _, r := range AllRegions() {
		t.Run(r.String(), func(t *testing.T) {
			b := f.RegionBounds(r)
			if b.Degenerate() {
				t.Fatalf("region %s is degenerate: %v", r, b)
			}
			if !f.InSafeArea(b) {
				t.Errorf("region %s = %v escapes safe area %v", r, b, f.SafeBounds())
			}
		})
	}
}

func TestRegionProportions(t *testing.T) {
	f := Default()
	s := f.SafeBounds()

	tests := []struct {
		region Region
		wFrac  float64
		hFrac  float64
	}{
		{RegionCenter, 0.6, 0.6},
		{RegionTop, 1, 0.4},
		{RegionBottom, 1, 0.4},
		{RegionLeft, 0.4, 0.6},
		{RegionRight, 0.4, 0.6},
		{RegionTopLeft, 0.5, 0.5},
		{RegionBottomRight, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.region.String(), func(t *testing.T) {
			b := f.RegionBounds(tt.region)
			if !approx(b.Width(), s.Width()*tt.wFrac) || !approx(b.Height(), s.Height()*tt.hFrac) {
				t.Errorf("%s size = %vx%v, want %vx%v", tt.region,
					b.Width(), b.Height(), s.Width()*tt.wFrac, s.Height()*tt.hFrac)
			}
		})
	}
}

func TestRegionTableDeterministic(t *testing.T) {
	a, _ := New(Config{Width: 16, Height: 9, Margin: 0.05})
	b, _ := New(Config{Width: 16, Height: 9, Margin: 0.05})
	for _, r := range AllRegions() {
		if a.RegionBounds(r) != b.RegionBounds(r) {
			t.Errorf("region %s differs between equal frames", r)
		}
	}
}

func TestUnknownRegionFallsBackToSafeArea(t *testing.T) {
	f := Default()
	if got := f.RegionBounds(Region(42)); got != f.SafeBounds() {
		t.Errorf("RegionBounds(42) = %v, want safe bounds", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"no margin", Config{Width: 10, Height: 10}, false},
		{"zero width", Config{Width: 0, Height: 8, Margin: 0.1}, true},
		{"negative height", Config{Width: 14, Height: -1, Margin: 0.1}, true},
		{"infinite", Config{Width: math.Inf(1), Height: 8}, true},
		{"nan margin", Config{Width: 14, Height: 8, Margin: math.NaN()}, true},
		{"half margin", Config{Width: 14, Height: 8, Margin: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("New() error code = %v", errors.GetCode(err))
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input   string
		want    Region
		wantErr bool
	}{
		{"center", RegionCenter, false},
		{"TOP", RegionTop, false},
		{"top-left", RegionTopLeft, false},
		{"bottom right", RegionBottomRight, false},
		{" right ", RegionRight, false},
		{"middle", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseRegion(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegionJSON(t *testing.T) {
	type doc struct {
		Region Region `json:"region"`
	}
	data, err := json.Marshal(doc{Region: RegionTopRight})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"region":"top_right"}` {
		t.Errorf("Marshal = %s", data)
	}

	var d doc
	if err := json.Unmarshal([]byte(`{"region":"Bottom-Left"}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Region != RegionBottomLeft {
		t.Errorf("Unmarshal region = %v, want bottom_left", d.Region)
	}

	if err := json.Unmarshal([]byte(`{"region":"nowhere"}`), &d); err == nil {
		t.Error("expected error for unknown region")
	}
}

func TestAlternatives(t *testing.T) {
	got := RegionCenter.Alternatives()
	want := []Region{RegionTop, RegionBottom, RegionLeft, RegionRight}
	if len(got) != len(want) {
		t.Fatalf("Alternatives(center) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Alternatives(center)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Returned slices must not alias the table.
	got[0] = RegionBottomRight
	if RegionCenter.Alternatives()[0] != RegionTop {
		t.Error("Alternatives() returned an aliased slice")
	}

	for _, r := range AllRegions() {
		for _, alt := range r.Alternatives() {
			if alt == r {
				t.Errorf("region %s lists itself as an alternative", r)
			}
		}
	}
}

func TestLocate(t *testing.T) {
	f := Default()
	for _, r := range AllRegions() {
		b := f.RegionBounds(r).Scale(0.2)
		if got := f.Locate(b); got != r {
			t.Errorf("Locate(center of %s) = %s", r, got)
		}
	}
}
