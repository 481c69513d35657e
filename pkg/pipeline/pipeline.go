// Package pipeline runs a multi-scene plan through the layout engine.
//
// The pipeline is the single entry point used by the CLI and the HTTP API.
// Centralizing the per-scene sequence keeps both surfaces consistent:
//
//  1. Build: turn element specs into planned elements with scene-local times.
//  2. Reflow: grade the scene for overflow and remediate it with the reflow
//     manager. Paginated elements move to a continuation scene.
//  3. Place: register the survivors in a fresh position map, which resolves
//     conflicts one element at a time.
//  4. Optimize: run the global optimizer over the placed scene.
//  5. Escalate: if conflicts remain, reflow the placed scene again at a
//     higher severity and place it anew, up to MaxEscalations times.
//
// Scenes are independent until step 5 finishes, so they are processed
// concurrently. Afterwards the output scenes are laid end to end on one
// timeline and transitions are planned between neighbours.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, runs, logger)
//	result, err := runner.Execute(ctx, p, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range result.Scenes {
//	    fmt.Println(s.ID, s.Status)
//	}
package pipeline

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/reflow"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultSceneDuration applies to scenes that do not declare a duration.
	// Open-ended elements are clamped to it.
	DefaultSceneDuration = config.DefaultSceneDuration

	// DefaultMaxEscalations bounds the re-reflow rounds of a degraded scene.
	DefaultMaxEscalations = config.DefaultMaxEscalations

	// continuationSep joins a scene ID and its page number.
	continuationSep = "~"
)

// Scene status values.
const (
	StatusClean    = store.StatusClean
	StatusDegraded = store.StatusDegraded
)

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run.
type Options struct {
	// Frame is the canvas; a plan's own frame takes precedence.
	Frame frame.Config `json:"frame"`

	SceneDuration float64 `json:"scene_duration,omitempty"`

	// MaxEscalations < 0 disables escalation.
	MaxEscalations int `json:"max_escalations,omitempty"`

	// Concurrency caps scenes processed at once; 0 means no cap.
	Concurrency int `json:"concurrency,omitempty"`

	SkipOptimize bool `json:"skip_optimize,omitempty"`
	SkipReflow   bool `json:"skip_reflow,omitempty"`

	// Refresh bypasses cached results.
	Refresh bool `json:"refresh,omitempty"`

	Layout posmap.Options `json:"layout"`
	Reflow reflow.Options `json:"reflow"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// OptionsFromConfig maps a loaded config onto pipeline options.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Frame:          c.Frame,
		SceneDuration:  c.Pipeline.SceneDuration,
		MaxEscalations: c.Pipeline.MaxEscalations,
		Concurrency:    c.Pipeline.Concurrency,
		SkipOptimize:   c.Pipeline.SkipOptimize,
		SkipReflow:     c.Pipeline.SkipReflow,
		Layout:         c.Layout,
		Reflow:         c.Reflow,
	}
}

// ValidateAndSetDefaults applies defaults and checks every section.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Frame == (frame.Config{}) {
		o.Frame = frame.DefaultConfig()
	}
	if o.SceneDuration == 0 {
		o.SceneDuration = DefaultSceneDuration
	}
	if o.MaxEscalations == 0 {
		o.MaxEscalations = DefaultMaxEscalations
	}
	if o.MaxEscalations < 0 {
		o.MaxEscalations = 0
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Layout.Logger == nil {
		o.Layout.Logger = o.Logger
	}
	if o.Reflow.Logger == nil {
		o.Reflow.Logger = o.Logger
	}
	o.Layout.SetDefaults()
	o.Reflow.SetDefaults()

	if err := o.Frame.Validate(); err != nil {
		return err
	}
	if !(o.SceneDuration > 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "scene duration must be > 0, got %g", o.SceneDuration)
	}
	if o.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must be >= 0, got %d", o.Concurrency)
	}
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if err := o.Reflow.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// LayoutKeyOpts returns cache key options for a result. Everything that can
// change placement is folded into the config hash.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	data, _ := json.Marshal(struct {
		Frame          frame.Config   `json:"frame"`
		SceneDuration  float64        `json:"scene_duration"`
		MaxEscalations int            `json:"max_escalations"`
		Layout         posmap.Options `json:"layout"`
		Reflow         reflow.Options `json:"reflow"`
	}{o.Frame, o.SceneDuration, o.MaxEscalations, o.Layout, o.Reflow})
	return cache.LayoutKeyOpts{
		ConfigHash: cache.Hash(data),
		Optimize:   !o.SkipOptimize,
		Reflow:     !o.SkipReflow,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of a pipeline run. It is JSON-serializable and is
// what the cache, the run store and the HTTP API hold.
type Result struct {
	RunID    string       `json:"run_id,omitempty"`
	Plan     string       `json:"plan"`
	PlanHash string       `json:"plan_hash"`
	Frame    frame.Config `json:"frame"`

	// Duration is the length of the combined timeline.
	Duration float64 `json:"duration"`

	Scenes      []SceneResult            `json:"scenes"`
	Transitions []reflow.SceneTransition `json:"transitions,omitempty"`
	Continuity  []reflow.Continuity      `json:"continuity,omitempty"`
	Reflow      reflow.Report            `json:"reflow"`
	Stats       Stats                    `json:"stats"`

	// CacheInfo is runtime-only.
	CacheInfo CacheInfo `json:"-"`
}

// SceneResult is one output scene. A plan scene yields one SceneResult plus
// one per continuation page.
type SceneResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   int     `json:"page"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Status string  `json:"status"`

	// Overflow grades the scene as built, before any remediation.
	Overflow    reflow.Overflow    `json:"overflow"`
	Operations  []reflow.Operation `json:"operations,omitempty"`
	Escalations int                `json:"escalations,omitempty"`

	Resolutions []posmap.Resolution     `json:"resolutions"`
	Optimize    *posmap.OptimizeResult `json:"optimize,omitempty"`
	Report      posmap.LayoutReport    `json:"report"`

	// Snapshot holds the final placement with times on the combined timeline.
	Snapshot posmap.Snapshot `json:"snapshot"`

	Skipped  []string `json:"skipped,omitempty"`
	Deferred []string `json:"deferred,omitempty"`
	Dropped  []string `json:"dropped,omitempty"`
}

// Elements returns the final placements of the scene.
func (s *SceneResult) Elements() []*element.PositionedElement { return s.Snapshot.Elements }

// Map rebuilds the scene's position map without re-running resolution.
func (s *SceneResult) Map(opts posmap.Options) (*posmap.PositionMap, error) {
	return posmap.Restore(s.Snapshot, opts)
}

// Degraded reports whether the scene kept conflicts or failed remediation.
func (s *SceneResult) Degraded() bool { return s.Status == StatusDegraded }

// Scene returns the output scene with the given ID.
func (r *Result) Scene(id string) (*SceneResult, bool) {
	for i := range r.Scenes {
		if r.Scenes[i].ID == id {
			return &r.Scenes[i], true
		}
	}
	return nil, false
}

// Degraded reports whether any scene is degraded.
func (r *Result) Degraded() bool {
	for i := range r.Scenes {
		if r.Scenes[i].Degraded() {
			return true
		}
	}
	return false
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Scenes     int           `json:"scenes"`
	Elements   int           `json:"elements"`
	Collisions int           `json:"collisions"`
	Unresolved int           `json:"unresolved"`
	Reflows    int           `json:"reflows"`
	LayoutTime time.Duration `json:"layout_time"`
}

// CacheInfo tracks whether the result came from the cache.
type CacheInfo struct {
	LayoutHit bool
}

// ContinuationID names page n (n ≥ 2) of scene.
func ContinuationID(scene string, page int) string {
	if page <= 1 {
		return scene
	}
	return scene + continuationSep + strconv.Itoa(page)
}
