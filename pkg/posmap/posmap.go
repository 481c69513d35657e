package posmap

import (
	"math"
	"slices"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/observability"
)

// PositionMap is the registry of positioned elements for one scene or one
// multi-scene timeline.
type PositionMap struct {
	frame  *frame.SafeFrame
	opts   Options
	logger *log.Logger

	elements map[string]*element.PositionedElement
	keys     []string // sorted

	// snapshots maps enter/exit instants to the keys registered at them.
	// It is rebuilt lazily after registration changes.
	snapshots map[float64][]string
	dirty     bool

	now      float64
	budgetLo float64
	budgetHi float64
}

// New creates an empty map for f. A nil frame uses [frame.Default].
func New(f *frame.SafeFrame, opts Options) *PositionMap {
	if f == nil {
		f = frame.Default()
	}
	opts.SetDefaults()
	return &PositionMap{
		frame:    f,
		opts:     opts,
		logger:   opts.Logger,
		elements: make(map[string]*element.PositionedElement),
		now:      math.Inf(-1),
		budgetLo: math.Inf(-1),
		budgetHi: math.Inf(1),
	}
}

// Frame returns the safe frame the map places into.
func (m *PositionMap) Frame() *frame.SafeFrame { return m.frame }

// Options returns the map's tuning.
func (m *PositionMap) Options() Options { return m.opts }

// SetSceneBudget restricts time-shift resolution to [start, end]. Elements
// are never delayed past end.
func (m *PositionMap) SetSceneBudget(start, end float64) {
	m.budgetLo, m.budgetHi = start, end
}

// Len returns the number of registered elements.
func (m *PositionMap) Len() int { return len(m.keys) }

// Keys returns the registered keys in sorted order.
func (m *PositionMap) Keys() []string { return slices.Clone(m.keys) }

// Get returns a copy of the element registered under key.
func (m *PositionMap) Get(key string) (*element.PositionedElement, bool) {
	e, ok := m.elements[key]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Elements returns copies of all elements in key order.
func (m *PositionMap) Elements() []*element.PositionedElement {
	out := make([]*element.PositionedElement, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.elements[k].Clone())
	}
	return out
}

// ActiveAt returns copies of the elements visible at t, in key order.
func (m *PositionMap) ActiveAt(t float64) []*element.PositionedElement {
	var out []*element.PositionedElement
	for _, k := range m.keys {
		if e := m.elements[k]; e.VisibleAt(t) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// AddElement registers e, resolving conflicts with already-registered
// elements. The caller's value is not modified; use Get to read the final
// placement.
//
// Invalid input (malformed bounds, empty window, unknown region, bad key) is
// rejected with a coded error and nothing is registered. A conflict that no
// strategy clears is not an error: the element is inserted at its
// least-penalty placement and the returned Resolution is Degraded.
//
// Registering a key twice replaces the earlier element.
func (m *PositionMap) AddElement(e *element.PositionedElement) (Resolution, error) {
	if e == nil {
		return Resolution{}, errors.New(errors.ErrCodeInvalidElement, "element is nil")
	}
	if err := e.Validate(); err != nil {
		return Resolution{}, err
	}

	work := e.Clone()
	work.State = element.StatePlanned
	work.Unresolved = false

	if _, exists := m.elements[work.Key]; exists {
		m.logger.Warn("element already registered, replacing", "element", work.Key)
		m.remove(work.Key)
	}

	m.contain(work)

	var res Resolution
	if m.penalty(work) == 0 {
		res = Resolution{Key: work.Key, Status: StatusResolved, Strategy: StrategyNone}
	} else {
		res = m.resolve(work, false)
	}

	m.insert(work)
	observability.Layout().OnConflict(work.Key, res.Strategy.String(), res.Status == StatusDegraded)
	m.logger.Debug("added element",
		"element", work.Key,
		"region", work.Region,
		"bounds", work.Bounds,
		"strategy", res.Strategy)
	return res, nil
}

// Remove deletes key from the map. It reports whether the key was present.
func (m *PositionMap) Remove(key string) bool {
	if _, ok := m.elements[key]; !ok {
		return false
	}
	m.remove(key)
	return true
}

// Update replaces the stored element for e.Key without conflict resolution.
// It is used by callers that own placement decisions, such as reflow.
func (m *PositionMap) Update(e *element.PositionedElement) error {
	if _, ok := m.elements[e.Key]; !ok {
		return errors.New(errors.ErrCodeNotFound, "element %q is not registered", e.Key)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	m.elements[e.Key] = e.Clone()
	m.dirty = true
	return nil
}

// TimeSnapshots returns every registered enter or exit instant with the keys
// of elements entering or leaving at it. Open exits are not instants and are
// omitted. The result is a fresh copy.
func (m *PositionMap) TimeSnapshots() map[float64][]string {
	m.buildSnapshots()
	out := make(map[float64][]string, len(m.snapshots))
	for t, keys := range m.snapshots {
		out[t] = slices.Clone(keys)
	}
	return out
}

// SnapshotTimes returns the sorted instants of TimeSnapshots.
func (m *PositionMap) SnapshotTimes() []float64 {
	m.buildSnapshots()
	times := make([]float64, 0, len(m.snapshots))
	for t := range m.snapshots {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

func (m *PositionMap) buildSnapshots() {
	if !m.dirty && m.snapshots != nil {
		return
	}
	m.snapshots = make(map[float64][]string)
	for _, k := range m.keys {
		e := m.elements[k]
		m.snapshots[e.Enter] = append(m.snapshots[e.Enter], k)
		if !e.OpenEnded() {
			m.snapshots[e.Exit] = append(m.snapshots[e.Exit], k)
		}
	}
	m.dirty = false
}

func (m *PositionMap) insert(e *element.PositionedElement) {
	if _, ok := m.elements[e.Key]; !ok {
		i, _ := slices.BinarySearch(m.keys, e.Key)
		m.keys = slices.Insert(m.keys, i, e.Key)
	}
	m.elements[e.Key] = e
	m.dirty = true
}

func (m *PositionMap) remove(key string) {
	delete(m.elements, key)
	if i, ok := slices.BinarySearch(m.keys, key); ok {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
	m.dirty = true
}

// contain scales and translates e into the safe area if it sticks out.
func (m *PositionMap) contain(e *element.PositionedElement) {
	safe := m.frame.SafeBounds()
	if safe.Contains(e.Bounds) {
		return
	}
	before := e.Bounds
	e.Bounds = before.ClampInto(safe)
	if e.FontSize > 0 && before.Width() > 0 {
		e.FontSize *= e.Bounds.Width() / before.Width()
	}
	m.logger.Debug("pulled element into safe area", "element", e.Key, "from", before, "to", e.Bounds)
}
