package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

// ignoreLoggers skips the runtime-only logger fields.
var ignoreLoggers = cmpopts.IgnoreFields(Config{}, "Layout.Logger", "Reflow.Logger")

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Frame != frame.DefaultConfig() {
		t.Errorf("Frame = %+v", c.Frame)
	}
	if c.Layout.Tolerance != posmap.DefaultTolerance || c.Reflow.ScaleFactor != reflow.DefaultScaleFactor {
		t.Errorf("engine defaults not applied: %+v %+v", c.Layout, c.Reflow)
	}
	if c.Pipeline.SceneDuration != DefaultSceneDuration || c.Pipeline.MaxEscalations != DefaultMaxEscalations {
		t.Errorf("Pipeline = %+v", c.Pipeline)
	}
	if c.Cache.Backend != BackendFile || c.Store.Backend != BackendSQLite {
		t.Errorf("backends = %q/%q", c.Cache.Backend, c.Store.Backend)
	}
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse(`
[frame]
width = 16.0
height = 9.0

[layout]
tolerance = 0.2
scale_steps = [0.75, 0.5]

[reflow]
min_font_size = 18.0

[pipeline]
scene_duration = 4.0
skip_optimize = true

[store]
backend = "none"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Margin is absent from the file and keeps its default.
	if want := (frame.Config{Width: 16, Height: 9, Margin: frame.DefaultMargin}); c.Frame != want {
		t.Errorf("Frame = %+v, want %+v", c.Frame, want)
	}
	if c.Layout.Tolerance != 0.2 {
		t.Errorf("Tolerance = %g", c.Layout.Tolerance)
	}
	if diff := cmp.Diff([]float64{0.75, 0.5}, c.Layout.ScaleSteps); diff != "" {
		t.Errorf("ScaleSteps (-want +got):\n%s", diff)
	}
	if c.Layout.MaxIterations != posmap.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want default", c.Layout.MaxIterations)
	}
	if c.Reflow.MinFontSize != 18 || c.Reflow.StackMinFontSize != reflow.DefaultStackMinFontSize {
		t.Errorf("Reflow = %+v", c.Reflow)
	}
	if c.Pipeline.SceneDuration != 4 || !c.Pipeline.SkipOptimize {
		t.Errorf("Pipeline = %+v", c.Pipeline)
	}
	if c.Store.Backend != BackendNone {
		t.Errorf("Store.Backend = %q", c.Store.Backend)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", `[frame`},
		{"unknown key", "[layout]\ntolerence = 0.2\n"},
		{"unknown section", "[render]\nstyle = 'x'\n"},
		{"bad frame", "[frame]\nmargin = 0.6\n"},
		{"bad layout", "[layout]\ntolerance = -1.0\n"},
		{"bad reflow", "[reflow]\nscale_factor = 1.5\n"},
		{"bad duration", "[pipeline]\nscene_duration = -2.0\n"},
		{"redis without url", "[cache]\nbackend = 'redis'\n"},
		{"unknown cache", "[cache]\nbackend = 'memcached'\n"},
		{"unknown store", "[store]\nbackend = 'postgres'\n"},
		{"mongo without uri", "[store]\nbackend = 'mongo'\n"},
		{"zero tolerance", "[layout]\ntolerance = 0.0\n"},
		{"zero buffer", "[reflow]\nbuffer = 0.0\n"},
		{"zero escalations", "[pipeline]\nmax_escalations = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	want := Default()
	want.Frame.Width = 12
	want.Layout.TimeShifts = []float64{0.25}
	want.Cache.Backend = BackendNone

	var buf bytes.Buffer
	if err := want.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Parse(buf.String())
	if err != nil {
		t.Fatalf("Parse(Write()) = %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(want, got, ignoreLoggers); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nmax_escalations = 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Pipeline.MaxEscalations != 1 {
		t.Errorf("MaxEscalations = %d, want 1", c.Pipeline.MaxEscalations)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load(explicit missing path) succeeded")
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	c := Default()
	c.Cache.Dir = filepath.Join(dir, "cache")
	c.Store.Path = filepath.Join(dir, "runs.db")

	cc, err := c.OpenCache()
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cc.Close()
	if _, ok := cc.(*cache.FileCache); !ok {
		t.Errorf("OpenCache = %T, want *cache.FileCache", cc)
	}

	st, err := c.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()
	if _, err := os.Stat(c.Store.Path); err != nil {
		t.Errorf("sqlite file not created: %v", err)
	}

	c.Store.Backend = BackendNone
	if st, err := c.OpenStore(); st != nil || err != nil {
		t.Errorf("OpenStore(none) = %v, %v; want nil, nil", st, err)
	}
	c.Cache.Backend = BackendNone
	if cc, _ := c.OpenCache(); cc != cache.NewNullCache() {
		t.Errorf("OpenCache(none) = %T", cc)
	}
}
