package posmap

import (
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

func box(key string, cx, cy, w, h, enter, exit float64) *element.PositionedElement {
	return &element.PositionedElement{
		Key:      key,
		Kind:     element.KindShape,
		Bounds:   geom.FromCenter(vec.Vec2{X: cx, Y: cy}, w, h),
		Region:   frame.RegionCenter,
		Enter:    enter,
		Exit:     exit,
		Priority: 2,
	}
}

func mustAdd(t *testing.T, m *PositionMap, e *element.PositionedElement) Resolution {
	t.Helper()
	res, err := m.AddElement(e)
	if err != nil {
		t.Fatalf("AddElement(%s) error: %v", e.Key, err)
	}
	return res
}

func TestAddElementNoConflict(t *testing.T) {
	m := New(nil, Options{})
	res := mustAdd(t, m, box("a", 0, 0, 2, 1, 0, 5))

	if res.Status != StatusResolved || res.Strategy != StrategyNone {
		t.Errorf("resolution = %+v, want resolved/none", res)
	}
	got, ok := m.Get("a")
	if !ok {
		t.Fatal("element not registered")
	}
	if got.State != element.StatePlanned {
		t.Errorf("state = %v, want planned", got.State)
	}
}

// Two elements with identical centers and windows: the second must move and
// end up with zero overlap.
func TestAddElementIdenticalCenters(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 2, 1, 0, 5))
	res := mustAdd(t, m, box("b", 0, 0, 2, 1, 0, 5))

	if res.Status != StatusResolved {
		t.Fatalf("resolution = %+v, want resolved", res)
	}
	// Every grid point in the center region is within tolerance of a, so the
	// first alternative region (top) wins.
	if res.Strategy != StrategyRegion {
		t.Errorf("strategy = %v, want region", res.Strategy)
	}
	a, _ := m.Get("a")
	b, _ := m.Get("b")
	if b.Region != frame.RegionTop {
		t.Errorf("b.Region = %v, want top", b.Region)
	}
	if area := a.Bounds.IntersectionArea(b.Bounds); area != 0 {
		t.Errorf("overlap area = %v, want 0", area)
	}
	if a.Bounds.Overlaps(b.Bounds, m.Options().Tolerance) {
		t.Error("elements still within tolerance")
	}
	if b.Unresolved {
		t.Error("resolved element flagged unresolved")
	}
}

func TestAddElementGridStrategy(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 0.5, 0, 5))
	res := mustAdd(t, m, box("b", 0, 0, 1, 0.5, 0, 5))

	if res.Strategy != StrategyGrid {
		t.Fatalf("strategy = %v, want grid", res.Strategy)
	}
	b, _ := m.Get("b")
	c := b.Bounds.Center()
	if math.Abs(c.X+1.848) > 1e-9 || math.Abs(c.Y+1.056) > 1e-9 {
		t.Errorf("b center = %v, want first grid point (-1.848,-1.056)", c)
	}
	if b.Region != frame.RegionCenter {
		t.Errorf("grid move changed region to %v", b.Region)
	}
}

func TestAddElementScaleStrategy(t *testing.T) {
	m := New(nil, Options{})
	f := m.Frame()
	for _, r := range []frame.Region{frame.RegionTop, frame.RegionBottom, frame.RegionLeft, frame.RegionRight} {
		c := f.RegionBounds(r).Center()
		blk := box("blk-"+r.String(), c.X, c.Y, 0.4, 0.4, 0, 10)
		blk.Region = r
		mustAdd(t, m, blk)
	}

	orig := box("big", 0, 0, 7, 3.5, 0, 10)
	orig.FontSize = 40
	res := mustAdd(t, m, orig)
	if res.Strategy != StrategyScale {
		t.Fatalf("strategy = %v (%s), want scale", res.Strategy, res.Reason)
	}
	got, _ := m.Get("big")
	if math.Abs(got.Bounds.Width()-6.3) > 1e-9 || math.Abs(got.Bounds.Height()-3.15) > 1e-9 {
		t.Errorf("scaled size = %vx%v, want 6.3x3.15", got.Bounds.Width(), got.Bounds.Height())
	}
	if got.Bounds.Center() != orig.Bounds.Center() {
		t.Errorf("scale moved center to %v", got.Bounds.Center())
	}
	if math.Abs(got.FontSize-36) > 1e-9 {
		t.Errorf("font size = %v, want 36", got.FontSize)
	}
}

func TestAddElementTimeShift(t *testing.T) {
	m := New(nil, Options{})
	safe := m.Frame().SafeBounds()
	mustAdd(t, m, &element.PositionedElement{
		Key: "backdrop", Bounds: safe, Enter: 0, Exit: 1, Priority: 1,
	})
	res := mustAdd(t, m, box("label", 0, 0, 1, 1, 0, 1))

	if res.Strategy != StrategyTimeShift {
		t.Fatalf("strategy = %v (%s), want time_shift", res.Strategy, res.Reason)
	}
	got, _ := m.Get("label")
	// 0.5 still overlaps [0,1); 1.0 makes the windows touch.
	if got.Enter != 1 || got.Exit != 2 {
		t.Errorf("window = [%v,%v), want [1,2)", got.Enter, got.Exit)
	}
	if got.Bounds != box("label", 0, 0, 1, 1, 0, 1).Bounds {
		t.Error("time shift changed bounds")
	}
}

func TestAddElementExhausted(t *testing.T) {
	tests := []struct {
		name   string
		exit   float64
		budget float64
	}{
		{"open backdrop", math.Inf(1), math.Inf(1)},
		{"shift beyond budget", 1, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, Options{})
			m.SetSceneBudget(0, tt.budget)
			mustAdd(t, m, &element.PositionedElement{
				Key: "backdrop", Bounds: m.Frame().SafeBounds(), Enter: 0, Exit: tt.exit,
			})
			res := mustAdd(t, m, box("label", 0, 0, 1, 1, 0, 1))

			if res.Status != StatusDegraded {
				t.Fatalf("status = %v, want degraded", res.Status)
			}
			if res.Strategy != StrategyLeastPenalty {
				t.Errorf("strategy = %v, want least_penalty", res.Strategy)
			}
			if m.Len() != 2 {
				t.Errorf("Len() = %d, exhausted element must still be inserted", m.Len())
			}
			got, _ := m.Get("label")
			if !got.Unresolved {
				t.Error("Unresolved flag not set")
			}
			if got.Exit > tt.budget {
				t.Errorf("element delayed past budget: exit %v", got.Exit)
			}
		})
	}
}

func TestAddElementContainment(t *testing.T) {
	m := New(nil, Options{})
	e := box("huge", 10, 10, 30, 20, 0, 5)
	e.FontSize = 48
	mustAdd(t, m, e)

	got, _ := m.Get("huge")
	if !m.Frame().InSafeArea(got.Bounds) {
		t.Errorf("bounds %v escape safe area %v", got.Bounds, m.Frame().SafeBounds())
	}
	if math.Abs(got.Bounds.AspectRatio()-1.5) > 1e-9 {
		t.Errorf("aspect ratio = %v, want 1.5", got.Bounds.AspectRatio())
	}
	if got.FontSize >= 48 {
		t.Errorf("font size not scaled with bounds: %v", got.FontSize)
	}
	if e.Bounds.Width() != 30 {
		t.Error("AddElement mutated the caller's element")
	}
}

func TestAddElementInvalid(t *testing.T) {
	tests := []struct {
		name string
		e    *element.PositionedElement
		code errors.Code
	}{
		{"nil", nil, errors.ErrCodeInvalidElement},
		{"inverted bounds", &element.PositionedElement{
			Key: "x", Bounds: geom.Bounds{XMin: 1, XMax: 0, YMax: 1}, Exit: 1,
		}, errors.ErrCodeInvalidBounds},
		{"empty window", box("x", 0, 0, 1, 1, 2, 2), errors.ErrCodeInvalidTimeWindow},
		{"negative window", box("x", 0, 0, 1, 1, 3, 1), errors.ErrCodeInvalidTimeWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, Options{})
			_, err := m.AddElement(tt.e)
			if !errors.Is(err, tt.code) {
				t.Errorf("AddElement() error = %v, want %s", err, tt.code)
			}
			if m.Len() != 0 {
				t.Error("invalid element was registered")
			}
		})
	}
}

func TestAddElementReplacesDuplicateKey(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", 0, 0, 1, 1, 0, 5))
	res := mustAdd(t, m, box("a", 0, 0, 2, 2, 0, 5))

	if res.Strategy != StrategyNone {
		t.Errorf("replacement conflicted with its own previous version: %+v", res)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	got, _ := m.Get("a")
	if got.Bounds.Width() != 2 {
		t.Errorf("width = %v, want replacement's 2", got.Bounds.Width())
	}
}

func TestTimeSnapshots(t *testing.T) {
	m := New(nil, Options{})
	mustAdd(t, m, box("a", -4, 0, 1, 1, 0, 2))
	mustAdd(t, m, box("b", 4, 0, 1, 1, 2, math.Inf(1)))

	snaps := m.TimeSnapshots()
	if got := snaps[2]; len(got) != 2 {
		t.Errorf("snapshot at t=2 = %v, want a and b", got)
	}
	if got := m.SnapshotTimes(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("SnapshotTimes() = %v, want [0 2]", got)
	}

	m.Remove("a")
	if got := m.SnapshotTimes(); len(got) != 1 || got[0] != 2 {
		t.Errorf("SnapshotTimes() after remove = %v, want [2]", got)
	}
}

func TestSafeFrameContainmentAfterAdd(t *testing.T) {
	m := New(nil, Options{})
	for i, r := range frame.AllRegions() {
		e := box("e"+string(rune('a'+i)), 0, 0, 3, 1.5, 0, 4)
		e.Region = r
		rb := m.Frame().RegionBounds(r)
		e.Bounds = e.Bounds.MoveTo(rb.Center())
		mustAdd(t, m, e)
	}
	mustAdd(t, m, box("extra", 0, 0, 3, 1.5, 0, 4))

	for _, e := range m.Elements() {
		if !e.Unresolved && !m.Frame().InSafeArea(e.Bounds) {
			t.Errorf("%s at %v escapes the safe area without the unresolved flag", e.Key, e.Bounds)
		}
	}
}
