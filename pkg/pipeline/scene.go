package pipeline

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

// processScene lays out one plan scene and its continuation pages. All times
// in the returned results are scene-local; Execute moves them onto the
// combined timeline.
func processScene(ctx context.Context, f *frame.SafeFrame, mgr *reflow.Manager, sc plan.Scene, opts Options) (pages []SceneResult, err error) {
	started := time.Now()
	observability.Pipeline().OnSceneStart(ctx, sc.ID, len(sc.Elements))
	defer func() {
		status := StatusClean
		for i := range pages {
			if pages[i].Degraded() {
				status = StatusDegraded
			}
		}
		observability.Pipeline().OnSceneComplete(ctx, sc.ID, status, time.Since(started), err)
	}()

	duration := sceneDuration(sc, opts)
	logger := opts.Logger.With("scene", sc.ID)

	pending, skipped, err := buildScene(f, sc, duration, logger)
	if err != nil {
		return nil, err
	}

	for page := 1; page == 1 || len(pending) > 0; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := ContinuationID(sc.ID, page)
		sr, deferred := placePage(f, mgr, id, pending, duration, opts, logger.With("page", page))
		sr.Source, sr.Page = sc.ID, page
		if page == 1 {
			sr.Skipped = append(sr.Skipped, skipped...)
		}

		if len(deferred) > 0 && len(deferred) >= len(pending) {
			// Paginate always keeps at least one element, so this only
			// guards against a stalled split.
			logger.Warn("pagination made no progress", "deferred", len(deferred))
			sr.Dropped = append(sr.Dropped, element.Keys(deferred)...)
			deferred = nil
		}
		pages = append(pages, sr)
		pending = deferred
	}

	logger.Info("scene laid out",
		"pages", len(pages),
		"elements", len(sc.Elements)-len(skipped),
		"duration", time.Since(started))
	return pages, nil
}

func sceneDuration(sc plan.Scene, opts Options) float64 {
	if sc.Duration == 0 {
		return opts.SceneDuration
	}
	return sc.Duration
}

// buildScene turns the scene's specs into scene-local elements. Specs that
// fail validation are logged and returned in skipped.
func buildScene(f *frame.SafeFrame, sc plan.Scene, duration float64, logger *log.Logger) (els []*element.PositionedElement, skipped []string, err error) {
	els = make([]*element.PositionedElement, 0, len(sc.Elements))
	for _, spec := range sc.Elements {
		e, err := element.Build(spec, f, sc.ID, 0)
		if err == nil {
			err = clampToScene(e, duration)
		}
		if err != nil {
			if !errors.IsInvalid(err) {
				return nil, nil, err
			}
			logger.Warn("skipping element", "element", spec.Key, "reason", errors.UserMessage(err))
			skipped = append(skipped, spec.Key)
			continue
		}
		els = append(els, e)
	}
	return els, skipped, nil
}

// clampToScene ends open-ended elements with the scene.
func clampToScene(e *element.PositionedElement, duration float64) error {
	if e.Enter >= duration {
		return errors.New(errors.ErrCodeInvalidTimeWindow,
			"element %q enters at %g, after the scene ends at %g", e.Key, e.Enter, duration)
	}
	if e.OpenEnded() {
		e.Exit = duration
	}
	return nil
}

// placePage remediates, places and optimizes one output scene. It returns
// the scene and the elements deferred to the next page.
func placePage(f *frame.SafeFrame, mgr *reflow.Manager, id string, els []*element.PositionedElement, duration float64, opts Options, logger *log.Logger) (SceneResult, []*element.PositionedElement) {
	sr := SceneResult{ID: id, End: duration}
	sr.Overflow = mgr.CheckOverflow(els)

	var deferred []*element.PositionedElement
	remediate := func(work []*element.PositionedElement, info reflow.Overflow) []*element.PositionedElement {
		res := mgr.ApplyReflowStrategy(id, work, info)
		if res.Operation != nil {
			sr.Operations = append(sr.Operations, *res.Operation)
		}
		deferred = append(deferred, res.Deferred...)
		sr.Dropped = append(sr.Dropped, element.Keys(res.Dropped)...)
		return res.Elements
	}

	work := els
	if !opts.SkipReflow {
		work = remediate(work, sr.Overflow)
	}
	pm := sr.place(f, work, duration, opts, logger)

	for !opts.SkipReflow && sr.Escalations < opts.MaxEscalations && len(pm.ConflictPairs()) > 0 {
		placed := pm.Elements()
		info := mgr.CheckOverflow(placed)
		info.Severity = escalate(info.Severity, sr.Escalations)
		sr.Escalations++
		logger.Debug("escalating", "round", sr.Escalations, "severity", info.Severity)
		pm = sr.place(f, remediate(placed, info), duration, opts, logger)
	}

	sr.Report = pm.Report()
	sr.Snapshot = pm.Snapshot()
	sr.Deferred = element.Keys(deferred)
	sr.Status = StatusClean
	if len(pm.ConflictPairs()) > 0 || len(sr.Report.Unresolved) > 0 {
		sr.Status = StatusDegraded
		logger.Warn("scene still has conflicts",
			"collisions", sr.Report.TotalCollisions,
			"unresolved", sr.Report.Unresolved)
	}
	return sr, deferred
}

// place registers els in a fresh map, highest priority first, and optimizes
// it unless disabled. Earlier placements of sr are replaced.
func (sr *SceneResult) place(f *frame.SafeFrame, els []*element.PositionedElement, duration float64, opts Options, logger *log.Logger) *posmap.PositionMap {
	pm := posmap.New(f, opts.Layout)
	pm.SetSceneBudget(0, duration)

	ordered := slices.Clone(els)
	element.SortByPriority(ordered)
	sr.Resolutions = make([]posmap.Resolution, 0, len(ordered))
	for _, e := range ordered {
		res, err := pm.AddElement(e)
		if err != nil {
			logger.Warn("rejected element", "element", e.Key, "reason", errors.UserMessage(err))
			sr.Skipped = append(sr.Skipped, e.Key)
			continue
		}
		if res.Degraded() {
			logger.Debug("degraded placement", "element", e.Key, "reason", res.Reason)
		}
		sr.Resolutions = append(sr.Resolutions, res)
	}

	sr.Optimize = nil
	if !opts.SkipOptimize {
		o := pm.OptimizeLayout()
		sr.Optimize = &o
	}
	return pm
}

// escalate raises the severity for escalation round n: the first round
// starts no lower than moderate, later rounds go straight to severe.
func escalate(s reflow.Severity, round int) reflow.Severity {
	floor := reflow.SeverityModerate + reflow.Severity(round)
	return min(max(s+1, floor), reflow.SeveritySevere)
}

// shiftScene moves every time in sr by offset.
func shiftScene(sr *SceneResult, offset float64) {
	sr.Start += offset
	sr.End += offset
	for _, e := range sr.Snapshot.Elements {
		e.Shift(offset)
	}
	for i := range sr.Report.Collisions {
		sr.Report.Collisions[i].Time += offset
	}
}
