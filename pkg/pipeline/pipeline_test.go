package pipeline

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/reflow"
	"github.com/matzehuels/sceneguard/pkg/store"
)

func ptr[T any](v T) *T { return &v }

func lessonPlan() *plan.Plan {
	return &plan.Plan{
		Name: "lesson",
		Scenes: []plan.Scene{
			{ID: "a", Duration: 4, Elements: []element.Spec{
				{Key: "title", Kind: element.KindText, Region: frame.RegionTop, Text: "Limits"},
				{Key: "axes", Kind: element.KindPlot, Enter: 1},
			}},
			{ID: "b", Duration: 6, Elements: []element.Spec{
				{Key: "axes", Kind: element.KindPlot},
				{Key: "note", Kind: element.KindText, Region: frame.RegionBottom, Text: "h -> 0", Exit: ptr(3.0)},
			}},
		},
		Continuity: []reflow.Continuity{
			{Key: "axes", Type: reflow.Persistent, SourceScene: "a", TargetScenes: []string{"b"}},
		},
	}
}

func crowdPlan(n int) *plan.Plan {
	specs := make([]element.Spec, n)
	for i := range specs {
		specs[i] = element.Spec{Key: fmt.Sprintf("s%02d", i), Kind: element.KindShape, Width: 5, Height: 3}
	}
	return &plan.Plan{Name: "crowd", Scenes: []plan.Scene{{ID: "crowd", Duration: 5, Elements: specs}}}
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner(nil, nil, nil, nil)
}

func TestExecuteTimeline(t *testing.T) {
	res, err := newRunner(t).Execute(context.Background(), lessonPlan(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var ids []string
	for _, s := range res.Scenes {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Fatalf("scene IDs (-want +got):\n%s", diff)
	}
	a, b := res.Scenes[0], res.Scenes[1]
	if a.Start != 0 || a.End != 4 || b.Start != 4 || b.End != 10 || res.Duration != 10 {
		t.Errorf("timeline = a[%g,%g] b[%g,%g] total %g", a.Start, a.End, b.Start, b.End, res.Duration)
	}

	note := findElement(t, b.Elements(), "note")
	if note.Enter != 4 || note.Exit != 7 {
		t.Errorf("note window = [%g,%g), want [4,7)", note.Enter, note.Exit)
	}
	title := findElement(t, a.Elements(), "title")
	if title.Exit != 4 {
		t.Errorf("open-ended title exit = %g, want clamped to 4", title.Exit)
	}

	want := []reflow.SceneTransition{{
		From:       "a",
		To:         "b",
		Persistent: []string{"axes"},
		New:        []string{"note"},
		Removed:    []string{"title"},
		Effects: map[string]reflow.Effect{
			"axes":  reflow.EffectMaintain,
			"note":  reflow.EffectFadeIn,
			"title": reflow.EffectFadeOut,
		},
	}}
	if diff := cmp.Diff(want, res.Transitions); diff != "" {
		t.Errorf("Transitions (-want +got):\n%s", diff)
	}
	if res.Reflow.SceneTransitions != 1 || res.Reflow.ElementContinuities != 1 {
		t.Errorf("reflow report = %+v", res.Reflow)
	}
	if res.Stats.Scenes != 2 || res.Stats.Elements != 4 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestExecutePaginates(t *testing.T) {
	p := crowdPlan(8)
	res, err := newRunner(t).Execute(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Scenes) < 2 {
		t.Fatalf("got %d scenes, want a continuation", len(res.Scenes))
	}
	if s := res.Scenes[1]; s.ID != "crowd~2" || s.Source != "crowd" || s.Page != 2 {
		t.Errorf("continuation = %s (source %s, page %d)", s.ID, s.Source, s.Page)
	}
	if ops := res.Scenes[0].Operations; len(ops) == 0 || ops[0].Strategy != reflow.Paginate {
		t.Errorf("first page operations = %+v, want paginate", ops)
	}

	// Every element ends up placed on exactly one page or dropped.
	var seen []string
	sf := frame.Default()
	for i, s := range res.Scenes {
		if i > 0 && s.Start != res.Scenes[i-1].End {
			t.Errorf("scene %s starts at %g, previous ends at %g", s.ID, s.Start, res.Scenes[i-1].End)
		}
		for _, e := range s.Elements() {
			seen = append(seen, e.Key)
			if !sf.InSafeArea(e.Bounds) {
				t.Errorf("%s/%s outside safe area: %v", s.ID, e.Key, e.Bounds)
			}
			if e.Enter < s.Start || e.Enter >= s.End {
				t.Errorf("%s/%s enters at %g outside [%g,%g)", s.ID, e.Key, e.Enter, s.Start, s.End)
			}
		}
		seen = append(seen, s.Dropped...)
	}
	slices.Sort(seen)
	var want []string
	for _, spec := range p.Scenes[0].Elements {
		want = append(want, spec.Key)
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("element conservation (-want +got):\n%s", diff)
	}
}

func TestExecuteSkipsInvalidElements(t *testing.T) {
	p := &plan.Plan{Scenes: []plan.Scene{{ID: "s", Duration: 5, Elements: []element.Spec{
		{Key: "ok", Kind: element.KindText, Text: "fine"},
		{Key: "late", Kind: element.KindText, Text: "too late", Enter: 9},
		{Key: "blank", Kind: element.KindText},
	}}}}
	res, err := newRunner(t).Execute(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := res.Scenes[0]
	if diff := cmp.Diff([]string{"late", "blank"}, s.Skipped); diff != "" {
		t.Errorf("Skipped (-want +got):\n%s", diff)
	}
	if got := element.Keys(s.Elements()); !slices.Equal(got, []string{"ok"}) {
		t.Errorf("placed = %v, want [ok]", got)
	}
}

func TestExecuteEmptyScene(t *testing.T) {
	p := &plan.Plan{Scenes: []plan.Scene{{ID: "blank"}}}
	res, err := newRunner(t).Execute(context.Background(), p, Options{SceneDuration: 3})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Scenes) != 1 || res.Scenes[0].Status != StatusClean || res.Duration != 3 {
		t.Errorf("result = %+v", res.Scenes)
	}
}

func TestExecuteSkipReflow(t *testing.T) {
	res, err := newRunner(t).Execute(context.Background(), crowdPlan(6), Options{SkipReflow: true, SkipOptimize: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Scenes) != 1 {
		t.Fatalf("got %d scenes, want no pagination", len(res.Scenes))
	}
	s := res.Scenes[0]
	if len(s.Operations) != 0 || s.Optimize != nil || s.Escalations != 0 {
		t.Errorf("reflow or optimize ran: ops=%d optimize=%v escalations=%d", len(s.Operations), s.Optimize, s.Escalations)
	}
	if s.Overflow.Severity != reflow.SeveritySevere {
		t.Errorf("Overflow.Severity = %s, want severe", s.Overflow.Severity)
	}
}

func TestExecuteCaches(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil, nil)
	ctx := context.Background()

	first, err := r.Execute(ctx, lessonPlan(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit {
		t.Error("first run hit the cache")
	}
	second, err := r.Execute(ctx, lessonPlan(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run missed the cache")
	}
	if diff := cmp.Diff(first.Transitions, second.Transitions); diff != "" {
		t.Errorf("cached transitions differ (-first +second):\n%s", diff)
	}

	refreshed, err := r.Execute(ctx, lessonPlan(), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheInfo.LayoutHit {
		t.Error("refresh hit the cache")
	}

	// Different tuning is a different cache entry.
	other, err := r.Execute(ctx, lessonPlan(), Options{SceneDuration: 7})
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheInfo.LayoutHit {
		t.Error("changed options hit the cache")
	}
}

func TestExecuteRecordsRun(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(nil, nil, s, nil)
	ctx := context.Background()

	res, err := r.Execute(ctx, lessonPlan(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.RunID == "" {
		t.Fatal("RunID not set")
	}

	runs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || runs[0].Plan != "lesson" || runs[0].Scenes != 2 {
		t.Errorf("stored runs = %+v", runs)
	}

	loaded, err := r.LoadRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loaded.RunID != res.RunID || len(loaded.Scenes) != 2 {
		t.Errorf("LoadRun = %s with %d scenes", loaded.RunID, len(loaded.Scenes))
	}
	if _, err := loaded.Scenes[0].Map(posmap.Options{}); err != nil {
		t.Errorf("restore scene map: %v", err)
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRunner(t).Execute(ctx, crowdPlan(4), Options{}); err == nil {
		t.Error("Execute with canceled context succeeded")
	}
}

func TestExecuteRejects(t *testing.T) {
	tests := []struct {
		name string
		plan *plan.Plan
		opts Options
		code errors.Code
	}{
		{"nil plan", nil, Options{}, errors.ErrCodeInvalidInput},
		{"no scenes", &plan.Plan{}, Options{}, errors.ErrCodeInvalidPlan},
		{"negative duration", lessonPlan(), Options{SceneDuration: -1}, errors.ErrCodeInvalidConfig},
		{"negative concurrency", lessonPlan(), Options{Concurrency: -1}, errors.ErrCodeInvalidConfig},
		{"bad frame", lessonPlan(), Options{Frame: frame.Config{Width: 1, Height: 1, Margin: 0.7}}, errors.ErrCodeInvalidConfig},
		{"bad reflow", lessonPlan(), Options{Reflow: reflow.Options{ScaleFactor: 2}}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRunner(t).Execute(context.Background(), tt.plan, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("Execute = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestEscalate(t *testing.T) {
	tests := []struct {
		in    reflow.Severity
		round int
		want  reflow.Severity
	}{
		{reflow.SeverityNone, 0, reflow.SeverityModerate},
		{reflow.SeverityMinor, 0, reflow.SeverityModerate},
		{reflow.SeverityModerate, 0, reflow.SeveritySevere},
		{reflow.SeverityNone, 1, reflow.SeveritySevere},
		{reflow.SeveritySevere, 0, reflow.SeveritySevere},
		{reflow.SeverityMinor, 5, reflow.SeveritySevere},
	}
	for _, tt := range tests {
		if got := escalate(tt.in, tt.round); got != tt.want {
			t.Errorf("escalate(%s, %d) = %s, want %s", tt.in, tt.round, got, tt.want)
		}
	}
}

func TestContinuationID(t *testing.T) {
	tests := []struct {
		page int
		want string
	}{
		{0, "intro"},
		{1, "intro"},
		{2, "intro~2"},
		{12, "intro~12"},
	}
	for _, tt := range tests {
		if got := ContinuationID("intro", tt.page); got != tt.want {
			t.Errorf("ContinuationID(intro, %d) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestOptionsCacheKey(t *testing.T) {
	a, b := Options{}, Options{}
	if err := a.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := b.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if a.LayoutKeyOpts() != b.LayoutKeyOpts() {
		t.Error("equal options give different keys")
	}
	b.Layout.Tolerance = 0.3
	if a.LayoutKeyOpts() == b.LayoutKeyOpts() {
		t.Error("tolerance change did not change the key")
	}
}

func findElement(t *testing.T, els []*element.PositionedElement, key string) *element.PositionedElement {
	t.Helper()
	for _, e := range els {
		if e.Key == key {
			return e
		}
	}
	t.Fatalf("element %q not found", key)
	return nil
}
