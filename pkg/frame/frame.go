package frame

import (
	"math"

	"seehuhn.de/go/geom/vec"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// Default canvas dimensions in scene units.
const (
	DefaultWidth  = 14.0
	DefaultHeight = 8.0
	DefaultMargin = 0.06
)

// Config is the serializable description of a safe frame.
type Config struct {
	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
	Margin float64 `json:"margin" yaml:"margin" toml:"margin"` // fraction of each dimension, per side
}

// DefaultConfig returns the 14 × 8 canvas with a 6% margin.
func DefaultConfig() Config {
	return Config{Width: DefaultWidth, Height: DefaultHeight, Margin: DefaultMargin}
}

// Validate checks that the canvas is finite and non-empty and that the margin
// leaves a non-empty safe area.
func (c Config) Validate() error {
	if !(c.Width > 0) || !(c.Height > 0) || math.IsInf(c.Width, 0) || math.IsInf(c.Height, 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "canvas size must be positive and finite, got %gx%g", c.Width, c.Height)
	}
	if !(c.Margin >= 0) || c.Margin >= 0.5 {
		return errors.New(errors.ErrCodeInvalidConfig, "margin must be in [0, 0.5), got %g", c.Margin)
	}
	return nil
}

// SafeFrame is an immutable canvas description with precomputed safe bounds
// and region rectangles. Use [New] or [Default] to construct one.
type SafeFrame struct {
	cfg     Config
	canvas  geom.Bounds
	safe    geom.Bounds
	regions [numRegions]geom.Bounds
}

// New validates cfg and builds the frame with its region table.
func New(cfg Config) (*SafeFrame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &SafeFrame{cfg: cfg}
	f.canvas = geom.FromCenter(vec.Vec2{}, cfg.Width, cfg.Height)
	f.safe = geom.FromCenter(vec.Vec2{}, cfg.Width*(1-2*cfg.Margin), cfg.Height*(1-2*cfg.Margin))
	f.regions = regionTable(f.safe)
	return f, nil
}

// Default returns a frame built from [DefaultConfig].
func Default() *SafeFrame {
	f, err := New(DefaultConfig())
	if err != nil {
		panic(err) // constant input
	}
	return f
}

func regionTable(s geom.Bounds) [numRegions]geom.Bounds {
	w, h := s.Width(), s.Height()
	box := func(x0, y0, x1, y1 float64) geom.Bounds {
		return geom.Bounds{XMin: x0, YMin: y0, XMax: x1, YMax: y1}
	}
	var t [numRegions]geom.Bounds
	t[RegionCenter] = box(s.XMin+0.2*w, s.YMin+0.2*h, s.XMax-0.2*w, s.YMax-0.2*h)
	t[RegionTop] = box(s.XMin, s.YMin+0.6*h, s.XMax, s.YMax)
	t[RegionBottom] = box(s.XMin, s.YMin, s.XMax, s.YMax-0.6*h)
	t[RegionLeft] = box(s.XMin, s.YMin+0.2*h, s.XMax-0.6*w, s.YMax-0.2*h)
	t[RegionRight] = box(s.XMin+0.6*w, s.YMin+0.2*h, s.XMax, s.YMax-0.2*h)
	t[RegionTopLeft] = box(s.XMin, s.YMin+0.5*h, s.XMax-0.5*w, s.YMax)
	t[RegionTopRight] = box(s.XMin+0.5*w, s.YMin+0.5*h, s.XMax, s.YMax)
	t[RegionBottomLeft] = box(s.XMin, s.YMin, s.XMax-0.5*w, s.YMax-0.5*h)
	t[RegionBottomRight] = box(s.XMin+0.5*w, s.YMin, s.XMax, s.YMax-0.5*h)
	return t
}

// Config returns the configuration the frame was built from.
func (f *SafeFrame) Config() Config { return f.cfg }

// Canvas returns the full canvas rectangle.
func (f *SafeFrame) Canvas() geom.Bounds { return f.canvas }

// SafeBounds returns the canvas inset by the margin on every side.
func (f *SafeFrame) SafeBounds() geom.Bounds { return f.safe }

// RegionBounds returns the rectangle for r. Unknown regions map to the whole
// safe area.
func (f *SafeFrame) RegionBounds(r Region) geom.Bounds {
	if !r.Valid() {
		return f.safe
	}
	return f.regions[r]
}

// InSafeArea reports whether b lies completely inside the safe area.
func (f *SafeFrame) InSafeArea(b geom.Bounds) bool {
	return f.safe.Contains(b)
}

// Locate returns the region whose center is nearest to the center of b.
// Ties resolve in [AllRegions] order.
func (f *SafeFrame) Locate(b geom.Bounds) Region {
	c := b.Center()
	best, bestDist := RegionCenter, math.Inf(1)
	for r := Region(0); r < numRegions; r++ {
		d := f.regions[r].Center().Sub(c)
		if dist := d.X*d.X + d.Y*d.Y; dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best
}
