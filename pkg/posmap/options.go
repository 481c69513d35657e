package posmap

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultTolerance is the clearance two elements must keep, in canvas units.
	DefaultTolerance = 0.1

	// DefaultMaxIterations caps OptimizeLayout.
	DefaultMaxIterations = 10

	// DefaultCriticalArea is the overlap area above which a collision is critical.
	DefaultCriticalArea = 1.0

	// DefaultPenaltyScale multiplies the overlap fraction of the smaller element.
	DefaultPenaltyScale = 10.0

	// DefaultFitFill is the fraction of a region an element may fill after a
	// region refit.
	DefaultFitFill = 0.9

	// DefaultRamp is the enter and exit animation length used by AdvanceTo.
	DefaultRamp = 0.5

	// DefaultGridSize is the number of rows and columns of the local
	// repositioning grid.
	DefaultGridSize = 3
)

// DefaultScaleSteps are the scale-down factors, each applied to the original bounds.
var DefaultScaleSteps = []float64{0.9, 0.8, 0.7, 0.6}

// DefaultTimeShifts are the delays tried by the time-shift strategy.
var DefaultTimeShifts = []float64{0.5, 1.0, 1.5, 2.0}

// =============================================================================
// Options
// =============================================================================

// Options tunes a PositionMap. Zero values are replaced by defaults in
// SetDefaults, so a zero tolerance cannot be expressed; use a small positive
// value instead.
type Options struct {
	Tolerance     float64   `json:"tolerance,omitempty" toml:"tolerance"`
	MaxIterations int       `json:"max_iterations,omitempty" toml:"max_iterations"`
	CriticalArea  float64   `json:"critical_area,omitempty" toml:"critical_area"`
	PenaltyScale  float64   `json:"penalty_scale,omitempty" toml:"penalty_scale"`
	FitFill       float64   `json:"fit_fill,omitempty" toml:"fit_fill"`
	Ramp          float64   `json:"ramp,omitempty" toml:"ramp"`
	GridRows      int       `json:"grid_rows,omitempty" toml:"grid_rows"`
	GridCols      int       `json:"grid_cols,omitempty" toml:"grid_cols"`
	ScaleSteps    []float64 `json:"scale_steps,omitempty" toml:"scale_steps"`
	TimeShifts    []float64 `json:"time_shifts,omitempty" toml:"time_shifts"`

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
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.CriticalArea == 0 {
		o.CriticalArea = DefaultCriticalArea
	}
	if o.PenaltyScale == 0 {
		o.PenaltyScale = DefaultPenaltyScale
	}
	if o.FitFill == 0 {
		o.FitFill = DefaultFitFill
	}
	if o.Ramp == 0 {
		o.Ramp = DefaultRamp
	}
	if o.GridRows == 0 {
		o.GridRows = DefaultGridSize
	}
	if o.GridCols == 0 {
		o.GridCols = DefaultGridSize
	}
	if len(o.ScaleSteps) == 0 {
		o.ScaleSteps = slices.Clone(DefaultScaleSteps)
	}
	if len(o.TimeShifts) == 0 {
		o.TimeShifts = slices.Clone(DefaultTimeShifts)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate reports out-of-range tunables.
func (o *Options) Validate() error {
	switch {
	case o.Tolerance < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "tolerance must be >= 0, got %g", o.Tolerance)
	case o.MaxIterations < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max_iterations must be >= 1, got %d", o.MaxIterations)
	case o.CriticalArea <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "critical_area must be > 0, got %g", o.CriticalArea)
	case o.FitFill <= 0 || o.FitFill > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "fit_fill must be in (0, 1], got %g", o.FitFill)
	case o.Ramp < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "ramp must be >= 0, got %g", o.Ramp)
	case o.GridRows < 1 || o.GridCols < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "grid must be at least 1x1, got %dx%d", o.GridRows, o.GridCols)
	}
	for _, f := range o.ScaleSteps {
		if f <= 0 || f >= 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "scale steps must be in (0, 1), got %g", f)
		}
	}
	for _, d := range o.TimeShifts {
		if d <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "time shifts must be > 0, got %g", d)
		}
	}
	return nil
}
