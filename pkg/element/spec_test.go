package element

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

func ptr(f float64) *float64 { return &f }

func TestSpecContent(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		kind    Kind
		wantErr bool
	}{
		{"text", Spec{Key: "t", Kind: KindText, Text: "hello"}, KindText, false},
		{"formula from tex", Spec{Key: "f", Kind: KindFormula, TeX: `e^{i\pi}`}, KindFormula, false},
		{"formula from text", Spec{Key: "f", Kind: KindFormula, Text: "a+b"}, KindFormula, false},
		{"plot default size", Spec{Key: "p", Kind: KindPlot}, KindPlot, false},
		{"image", Spec{Key: "i", Kind: KindImage, Source: "cat.png"}, KindImage, false},
		{"shape", Spec{Key: "s", Kind: KindShape, Width: 1, Height: 1}, KindShape, false},

		{"empty text", Spec{Key: "t", Kind: KindText, Text: "  "}, 0, true},
		{"empty formula", Spec{Key: "f", Kind: KindFormula}, 0, true},
		{"image without source", Spec{Key: "i", Kind: KindImage}, 0, true},
		{"half-set size", Spec{Key: "s", Kind: KindShape, Width: 1}, 0, true},
		{"negative font", Spec{Key: "t", Kind: KindText, Text: "x", FontSize: -3}, 0, true},
		{"unknown kind", Spec{Key: "u", Kind: Kind(9)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.spec.Content()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Content() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidElement) {
					t.Errorf("Content() error code = %v", errors.GetCode(err))
				}
				return
			}
			if c.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", c.Kind(), tt.kind)
			}
		})
	}
}

func TestTextSizeEstimate(t *testing.T) {
	region := geom.Bounds{XMin: 0, YMin: 0, XMax: 10, YMax: 5}

	// 48pt: char width 0.3, line height 0.6, wrap width 8 → 26 chars per line.
	short := Text{Content: "abcd", FontSize: 48}
	w, h := short.Size(region)
	if math.Abs(w-1.2) > 1e-9 || math.Abs(h-0.6) > 1e-9 {
		t.Errorf("short text size = %vx%v, want 1.2x0.6", w, h)
	}

	long := Text{Content: string(make([]rune, 52)), FontSize: 48}
	w, h = long.Size(region)
	if math.Abs(w-8) > 1e-9 || math.Abs(h-1.2) > 1e-9 {
		t.Errorf("wrapped text size = %vx%v, want 8x1.2", w, h)
	}
}

func TestBuild(t *testing.T) {
	f := frame.Default()

	t.Run("centered in region", func(t *testing.T) {
		e, err := Build(Spec{
			Key: "axes", Kind: KindPlot, Region: frame.RegionLeft,
			Enter: 1, Exit: ptr(4), DependsOn: []string{"title"}, Z: 2,
		}, f, "intro", 10)
		if err != nil {
			t.Fatal(err)
		}
		region := f.RegionBounds(frame.RegionLeft)
		if e.Bounds.Center() != region.Center() {
			t.Errorf("center = %v, want %v", e.Bounds.Center(), region.Center())
		}
		want := &PositionedElement{
			Key:          "axes",
			Kind:         KindPlot,
			Scene:        "intro",
			Bounds:       e.Bounds,
			Region:       frame.RegionLeft,
			State:        StatePlanned,
			Enter:        11,
			Exit:         14,
			Priority:     2,
			Dependencies: []string{"title"},
			Summary:      "plot",
		}
		if diff := cmp.Diff(want, e); diff != "" {
			t.Errorf("Build() mismatch (-want +got):\n%s", diff)
		}
		if e.Bounds.Z != 2 {
			t.Errorf("z index = %d, want 2", e.Bounds.Z)
		}
		if math.Abs(e.Bounds.Width()-region.Width()*0.7) > 1e-9 {
			t.Errorf("plot width = %v, want 70%% of region", e.Bounds.Width())
		}
	})

	t.Run("open ended and default font", func(t *testing.T) {
		e, err := Build(Spec{Key: "eq", Kind: KindFormula, TeX: "x^2"}, f, "s", 0)
		if err != nil {
			t.Fatal(err)
		}
		if !e.OpenEnded() {
			t.Errorf("exit = %v, want +Inf", e.Exit)
		}
		if e.FontSize != DefaultFontSize || e.Priority != 4 {
			t.Errorf("font/priority = %v/%d, want %v/4", e.FontSize, e.Priority, DefaultFontSize)
		}
	})

	t.Run("explicit size overrides estimate", func(t *testing.T) {
		e, err := Build(Spec{Key: "t", Kind: KindText, Text: "hi", Width: 3, Height: 2, Priority: 9}, f, "s", 0)
		if err != nil {
			t.Fatal(err)
		}
		if e.Bounds.Width() != 3 || e.Bounds.Height() != 2 || e.Priority != 9 {
			t.Errorf("got %v priority %d", e.Bounds, e.Priority)
		}
	})

	t.Run("invalid window rejected", func(t *testing.T) {
		_, err := Build(Spec{Key: "t", Kind: KindText, Text: "x", Enter: 3, Exit: ptr(1)}, f, "s", 0)
		if !errors.Is(err, errors.ErrCodeInvalidTimeWindow) {
			t.Errorf("error = %v, want INVALID_TIME_WINDOW", err)
		}
	})

	t.Run("invalid key rejected", func(t *testing.T) {
		_, err := Build(Spec{Key: "bad key", Kind: KindText, Text: "x"}, f, "s", 0)
		if !errors.Is(err, errors.ErrCodeInvalidElement) {
			t.Errorf("error = %v, want INVALID_ELEMENT", err)
		}
	})
}

func TestSpecYAML(t *testing.T) {
	doc := `
key: eq1
kind: MathTex
region: top-right
tex: "a^2 + b^2 = c^2"
enter: 0.5
exit: 6
depends_on: [title]
`
	var s Spec
	if err := yaml.Unmarshal([]byte(doc), &s); err != nil {
		t.Fatal(err)
	}
	want := Spec{
		Key:       "eq1",
		Kind:      KindFormula,
		Region:    frame.RegionTopRight,
		TeX:       "a^2 + b^2 = c^2",
		Enter:     0.5,
		Exit:      ptr(6),
		DependsOn: []string{"title"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("YAML decode mismatch (-want +got):\n%s", diff)
	}
}
