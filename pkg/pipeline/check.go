package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

// SceneCheck is the overflow grade of one plan scene as written.
type SceneCheck struct {
	ID       string          `json:"id"`
	Duration float64         `json:"duration"`
	Elements int             `json:"elements"`
	Skipped  []string        `json:"skipped,omitempty"`
	Overflow reflow.Overflow `json:"overflow"`

	// Strategy is the remediation a layout run would try first, if any.
	Strategy string `json:"strategy,omitempty"`
}

// CheckResult grades every scene of a plan without placing anything.
type CheckResult struct {
	Plan   string       `json:"plan"`
	Scenes []SceneCheck `json:"scenes"`
}

// Clean reports whether no scene overflows and nothing was skipped.
func (c *CheckResult) Clean() bool {
	for _, s := range c.Scenes {
		if s.Overflow.HasOverflow() || len(s.Skipped) > 0 {
			return false
		}
	}
	return true
}

// Check builds each scene and runs overflow detection on it. It never
// remediates, places or caches; it answers "will this plan need reflow".
func Check(ctx context.Context, p *plan.Plan, opts Options) (*CheckResult, error) {
	if p == nil {
		return nil, fmt.Errorf("check: nil plan")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Frame != nil {
		opts.Frame = *p.Frame
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	f, err := frame.New(opts.Frame)
	if err != nil {
		return nil, err
	}
	mgr := reflow.NewManager(f, opts.Reflow)

	res := &CheckResult{Plan: p.Name, Scenes: make([]SceneCheck, 0, len(p.Scenes))}
	for _, sc := range p.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		duration := sceneDuration(sc, opts)
		els, skipped, err := buildScene(f, sc, duration, opts.Logger.With("scene", sc.ID))
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", sc.ID, err)
		}
		check := SceneCheck{
			ID:       sc.ID,
			Duration: duration,
			Elements: len(els),
			Skipped:  skipped,
			Overflow: mgr.CheckOverflow(els),
		}
		if s, ok := check.Overflow.Severity.Initial(); ok {
			check.Strategy = s.String()
		}
		res.Scenes = append(res.Scenes, check)
	}
	return res, nil
}
