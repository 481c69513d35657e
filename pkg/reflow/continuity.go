package reflow

import (
	"fmt"
	"slices"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
)

// ContinuityType says how an element relates to its later appearances.
type ContinuityType int

const (
	Persistent   ContinuityType = iota // stays on screen across scenes
	Transforming                       // changes but keeps its identity
	Referential                        // referenced later, may disappear
	Contextual                         // context for other elements
)

var continuityNames = [...]string{"persistent", "transforming", "referential", "contextual"}

func (c ContinuityType) String() string {
	if c < 0 || int(c) >= len(continuityNames) {
		return fmt.Sprintf("ContinuityType(%d)", int(c))
	}
	return continuityNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c ContinuityType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Empty input means
// Persistent.
func (c *ContinuityType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = Persistent
		return nil
	}
	for i, n := range continuityNames {
		if n == string(b) {
			*c = ContinuityType(i)
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown continuity type %q", b)
}

// Continuity declares that an element of SourceScene is the same object in
// each of TargetScenes.
type Continuity struct {
	Key          string         `json:"element_key" yaml:"element_key"`
	Type         ContinuityType `json:"continuity_type" yaml:"continuity_type"`
	SourceScene  string         `json:"source_scene" yaml:"source_scene"`
	TargetScenes []string       `json:"target_scenes,omitempty" yaml:"target_scenes,omitempty"`
	Priority     int            `json:"priority,omitempty" yaml:"priority,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// PersistsIn reports whether the element carries over into scene.
func (c Continuity) PersistsIn(scene string) bool {
	return slices.Contains(c.TargetScenes, scene)
}

// Validate checks the key, source scene and type.
func (c Continuity) Validate() error {
	if err := errors.ValidateKey(c.Key); err != nil {
		return err
	}
	if err := errors.ValidateSceneID(c.SourceScene); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPlan, err, "continuity %q", c.Key)
	}
	if c.Type < Persistent || c.Type > Contextual {
		return errors.New(errors.ErrCodeInvalidInput, "continuity %q: unknown type %d", c.Key, int(c.Type))
	}
	return nil
}

// RegisterContinuity adds or replaces the declaration for c.Key.
func (m *Manager) RegisterContinuity(c Continuity) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.TargetScenes = slices.Clone(c.TargetScenes)
	c.Dependencies = slices.Clone(c.Dependencies)

	m.mu.Lock()
	m.continuities[c.Key] = c
	m.mu.Unlock()

	m.logger.Debug("registered continuity", "element", c.Key, "type", c.Type, "targets", c.TargetScenes)
	return nil
}

// Continuity returns the declaration for key.
func (m *Manager) Continuity(key string) (Continuity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.continuities[key]
	return c, ok
}

// Continuities returns every declaration in key order.
func (m *Manager) Continuities() []Continuity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Continuity, 0, len(m.continuities))
	for _, c := range m.continuities {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Continuity) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// PersistentElements returns the keys declared to persist into scene, sorted.
func (m *Manager) PersistentElements(scene string) []string {
	var out []string
	for _, c := range m.Continuities() {
		if c.PersistsIn(scene) {
			out = append(out, c.Key)
		}
	}
	return out
}

// =============================================================================
// Scene transitions
// =============================================================================

// Effect is the animation applied to an element at a scene boundary.
type Effect string

const (
	EffectMaintain  Effect = "maintain"
	EffectTransform Effect = "transform"
	EffectFadeIn    Effect = "fade_in"
	EffectFadeOut   Effect = "fade_out"
)

// SceneTransition is the element diff between two adjacent scenes.
type SceneTransition struct {
	From       string            `json:"from_scene"`
	To         string            `json:"to_scene"`
	Persistent []string          `json:"persistent_elements"`
	New        []string          `json:"new_elements"`
	Removed    []string          `json:"removed_elements"`
	Effects    map[string]Effect `json:"transition_effects"`
}

// PlanSceneTransition diffs the keys of two adjacent scenes. A key present
// in both is persistent only if its continuity declaration targets to;
// otherwise it re-enters and counts as new. Key lists are sorted, so equal
// inputs give equal transitions. It reads the continuity registry and
// records nothing.
func (m *Manager) PlanSceneTransition(from, to string, fromEls, toEls []*element.PositionedElement) SceneTransition {
	inFrom := make(map[string]bool, len(fromEls))
	for _, e := range fromEls {
		inFrom[e.Key] = true
	}
	inTo := make(map[string]bool, len(toEls))
	for _, e := range toEls {
		inTo[e.Key] = true
	}

	t := SceneTransition{
		From:       from,
		To:         to,
		Persistent: []string{},
		New:        []string{},
		Removed:    []string{},
		Effects:    make(map[string]Effect),
	}

	m.mu.Lock()
	for k := range inTo {
		c, declared := m.continuities[k]
		switch {
		case inFrom[k] && declared && c.PersistsIn(to):
			t.Persistent = append(t.Persistent, k)
			if c.Type == Transforming {
				t.Effects[k] = EffectTransform
			} else {
				t.Effects[k] = EffectMaintain
			}
		default:
			t.New = append(t.New, k)
			t.Effects[k] = EffectFadeIn
		}
	}
	for k := range inFrom {
		if !inTo[k] {
			t.Removed = append(t.Removed, k)
			t.Effects[k] = EffectFadeOut
		}
	}
	slices.Sort(t.Persistent)
	slices.Sort(t.New)
	slices.Sort(t.Removed)
	m.mu.Unlock()

	m.logger.Debug("planned transition",
		"from", from,
		"to", to,
		"persistent", len(t.Persistent),
		"new", len(t.New),
		"removed", len(t.Removed))
	return t
}
