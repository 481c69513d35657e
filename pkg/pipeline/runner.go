package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/reflow"
	"github.com/matzehuels/sceneguard/pkg/store"
)

const keyTypeLayout = "layout"

// Runner encapsulates pipeline execution with caching and run recording.
// Both CLI and API use it so results are cached and recorded the same way.
//
// The Runner holds no layout state: every Execute builds its own reflow
// manager and position maps. Multiple goroutines can safely use the same
// Runner with different plans.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store // nil disables run recording
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, s store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  s,
		Logger: logger,
	}
}

// Execute lays out p with caching and records the run.
func (r *Runner) Execute(ctx context.Context, p *plan.Plan, opts Options) (*Result, error) {
	res, err := r.ExecuteWithCacheInfo(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	r.record(ctx, res)
	return res, nil
}

// ExecuteWithCacheInfo lays out p, consulting the cache first. The result's
// CacheInfo tells whether it was a hit. Nothing is recorded.
func (r *Runner) ExecuteWithCacheInfo(ctx context.Context, p *plan.Plan, opts Options) (*Result, error) {
	if p == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "plan is nil")
	}
	if p.Frame != nil {
		opts.Frame = *p.Frame
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	cacheKey := r.Keyer.LayoutKey(p.Hash(), opts.LayoutKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached Result
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeLayout)
				cached.CacheInfo.LayoutHit = true
				r.Logger.Debug("layout cache hit", "plan", p.Name)
				return &cached, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	}

	res, err := r.Layout(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err != nil {
			r.Logger.Debug("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}
	return res, nil
}

// Layout runs the pipeline without the cache.
func (r *Runner) Layout(ctx context.Context, p *plan.Plan, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Frame != nil {
		opts.Frame = *p.Frame
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	started := time.Now()

	f, err := frame.New(opts.Frame)
	if err != nil {
		return nil, err
	}
	mgr := reflow.NewManager(f, opts.Reflow)
	for _, c := range p.Continuity {
		if err := mgr.RegisterContinuity(c); err != nil {
			return nil, err
		}
	}

	perScene := make([][]SceneResult, len(p.Scenes))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, sc := range p.Scenes {
		g.Go(func() error {
			pages, err := processScene(gctx, f, mgr, sc, opts)
			if err != nil {
				return fmt.Errorf("scene %s: %w", sc.ID, err)
			}
			perScene[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Plan:       p.Name,
		PlanHash:   p.Hash(),
		Frame:      opts.Frame,
		Continuity: mgr.Continuities(),
	}

	// Lay the output scenes end to end.
	var cursor float64
	for _, pages := range perScene {
		for _, sr := range pages {
			shiftScene(&sr, cursor)
			cursor = sr.End
			res.Scenes = append(res.Scenes, sr)
		}
	}
	res.Duration = cursor

	for i := 1; i < len(res.Scenes); i++ {
		prev, cur := &res.Scenes[i-1], &res.Scenes[i]
		res.Transitions = append(res.Transitions,
			mgr.PlanSceneTransition(prev.ID, cur.ID, prev.Elements(), cur.Elements()))
	}
	res.Reflow = mgr.GenerateReflowReport()
	res.Reflow.SceneTransitions = len(res.Transitions)

	res.Stats = Stats{
		Scenes:     len(res.Scenes),
		Reflows:    len(mgr.History()),
		LayoutTime: time.Since(started),
	}
	for i := range res.Scenes {
		rep := &res.Scenes[i].Report
		res.Stats.Elements += rep.TotalElements
		res.Stats.Collisions += rep.TotalCollisions
		res.Stats.Unresolved += len(rep.Unresolved)
	}

	r.Logger.Info("laid out plan",
		"plan", p.Name,
		"scenes", res.Stats.Scenes,
		"elements", res.Stats.Elements,
		"collisions", res.Stats.Collisions,
		"reflows", res.Stats.Reflows,
		"duration", res.Stats.LayoutTime)
	return res, nil
}

// record saves res to the run store and sets its RunID. Store failures are
// logged, not returned: a finished layout is still useful.
func (r *Runner) record(ctx context.Context, res *Result) {
	if r.Store == nil {
		return
	}
	res.RunID = uuid.NewString()
	data, err := json.Marshal(res)
	if err != nil {
		r.Logger.Warn("could not encode run", "err", err)
		res.RunID = ""
		return
	}

	status := StatusClean
	if res.Degraded() {
		status = StatusDegraded
	}
	run := &store.Run{
		ID:         res.RunID,
		Plan:       res.Plan,
		PlanHash:   res.PlanHash,
		Status:     status,
		Scenes:     res.Stats.Scenes,
		Elements:   res.Stats.Elements,
		Collisions: res.Stats.Collisions,
		Unresolved: res.Stats.Unresolved,
		Reflows:    res.Stats.Reflows,
		Result:     data,
	}
	if err := r.Store.Save(ctx, run); err != nil {
		r.Logger.Warn("could not record run", "err", err)
		res.RunID = ""
		return
	}
	r.Logger.Debug("recorded run", "id", run.ID)
}

// LoadRun reads a recorded run's result.
func (r *Runner) LoadRun(ctx context.Context, id string) (*Result, error) {
	if r.Store == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "run store disabled")
	}
	run, err := r.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(run.Result, &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &res, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
