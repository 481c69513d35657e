package reflow

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultBuffer                = 0.1
	DefaultCrowdedThreshold      = 3
	DefaultRedistributeThreshold = 2
	DefaultScaleFactor           = 0.85
	DefaultPriorityThreshold     = 3
	DefaultMinFontSize           = 24.0
	DefaultStackMinFontSize      = 20.0
	DefaultStackFill             = 0.8
	DefaultMaxPerRegion          = 2
	DefaultFitFill               = 0.9
)

// =============================================================================
// Options
// =============================================================================

// Options tunes a Manager. Zero values are replaced by defaults, so a zero
// buffer cannot be expressed; use a small positive value instead.
type Options struct {
	// Buffer is the clearance used when counting collisions.
	Buffer float64 `json:"buffer,omitempty" toml:"buffer"`

	// CrowdedThreshold is the concurrent element count above which a region
	// is crowded for CheckOverflow.
	CrowdedThreshold int `json:"crowded_threshold,omitempty" toml:"crowded_threshold"`

	// RedistributeThreshold is the concurrent element count above which
	// Redistribute empties a region. Target regions must hold fewer.
	RedistributeThreshold int `json:"redistribute_threshold,omitempty" toml:"redistribute_threshold"`

	ScaleFactor       float64 `json:"scale_factor,omitempty" toml:"scale_factor"`
	PriorityThreshold int     `json:"priority_threshold,omitempty" toml:"priority_threshold"`
	MinFontSize       float64 `json:"min_font_size,omitempty" toml:"min_font_size"`
	StackMinFontSize  float64 `json:"stack_min_font_size,omitempty" toml:"stack_min_font_size"`
	StackFill         float64 `json:"stack_fill,omitempty" toml:"stack_fill"`
	MaxPerRegion      int     `json:"max_per_region,omitempty" toml:"max_per_region"`
	FitFill           float64 `json:"fit_fill,omitempty" toml:"fit_fill"`

	Logger *log.Logger `json:"-" toml:"-"`
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	var o Options
	o.SetDefaults()
	return o
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Buffer == 0 {
		o.Buffer = DefaultBuffer
	}
	if o.CrowdedThreshold == 0 {
		o.CrowdedThreshold = DefaultCrowdedThreshold
	}
	if o.RedistributeThreshold == 0 {
		o.RedistributeThreshold = DefaultRedistributeThreshold
	}
	if o.ScaleFactor == 0 {
		o.ScaleFactor = DefaultScaleFactor
	}
	if o.PriorityThreshold == 0 {
		o.PriorityThreshold = DefaultPriorityThreshold
	}
	if o.MinFontSize == 0 {
		o.MinFontSize = DefaultMinFontSize
	}
	if o.StackMinFontSize == 0 {
		o.StackMinFontSize = DefaultStackMinFontSize
	}
	if o.StackFill == 0 {
		o.StackFill = DefaultStackFill
	}
	if o.MaxPerRegion == 0 {
		o.MaxPerRegion = DefaultMaxPerRegion
	}
	if o.FitFill == 0 {
		o.FitFill = DefaultFitFill
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate reports out-of-range tunables.
func (o *Options) Validate() error {
	switch {
	case o.Buffer < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "reflow buffer must be >= 0, got %g", o.Buffer)
	case o.CrowdedThreshold < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "crowded_threshold must be >= 1, got %d", o.CrowdedThreshold)
	case o.RedistributeThreshold < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "redistribute_threshold must be >= 1, got %d", o.RedistributeThreshold)
	case o.ScaleFactor <= 0 || o.ScaleFactor >= 1:
		return errors.New(errors.ErrCodeInvalidConfig, "scale_factor must be in (0, 1), got %g", o.ScaleFactor)
	case o.MinFontSize < 0 || o.StackMinFontSize < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "font floors must be >= 0")
	case o.StackFill <= 0 || o.StackFill > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "stack_fill must be in (0, 1], got %g", o.StackFill)
	case o.MaxPerRegion < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max_per_region must be >= 1, got %d", o.MaxPerRegion)
	case o.FitFill <= 0 || o.FitFill > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "fit_fill must be in (0, 1], got %g", o.FitFill)
	}
	return nil
}
