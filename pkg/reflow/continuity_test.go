package reflow

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
)

func keysAsElements(keys ...string) []*element.PositionedElement {
	out := make([]*element.PositionedElement, len(keys))
	for i, k := range keys {
		out[i] = el(k, 1, 0, 0, 1, 1)
	}
	return out
}

func TestPlanSceneTransition(t *testing.T) {
	tests := []struct {
		name       string
		continuity *Continuity
		want       SceneTransition
	}{
		{
			name:       "persistent",
			continuity: &Continuity{Key: "x", Type: Persistent, SourceScene: "s1", TargetScenes: []string{"s2"}},
			want: SceneTransition{
				From: "s1", To: "s2",
				Persistent: []string{"x"},
				New:        []string{"b"},
				Removed:    []string{"a"},
				Effects:    map[string]Effect{"x": EffectMaintain, "b": EffectFadeIn, "a": EffectFadeOut},
			},
		},
		{
			name:       "transforming",
			continuity: &Continuity{Key: "x", Type: Transforming, SourceScene: "s1", TargetScenes: []string{"s2", "s3"}},
			want: SceneTransition{
				From: "s1", To: "s2",
				Persistent: []string{"x"},
				New:        []string{"b"},
				Removed:    []string{"a"},
				Effects:    map[string]Effect{"x": EffectTransform, "b": EffectFadeIn, "a": EffectFadeOut},
			},
		},
		{
			name:       "other target",
			continuity: &Continuity{Key: "x", Type: Persistent, SourceScene: "s1", TargetScenes: []string{"s3"}},
			want: SceneTransition{
				From: "s1", To: "s2",
				Persistent: []string{},
				New:        []string{"b", "x"},
				Removed:    []string{"a"},
				Effects:    map[string]Effect{"x": EffectFadeIn, "b": EffectFadeIn, "a": EffectFadeOut},
			},
		},
		{
			name: "undeclared re-entry",
			want: SceneTransition{
				From: "s1", To: "s2",
				Persistent: []string{},
				New:        []string{"b", "x"},
				Removed:    []string{"a"},
				Effects:    map[string]Effect{"x": EffectFadeIn, "b": EffectFadeIn, "a": EffectFadeOut},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil, Options{})
			if tt.continuity != nil {
				if err := m.RegisterContinuity(*tt.continuity); err != nil {
					t.Fatal(err)
				}
			}
			from, to := keysAsElements("a", "x"), keysAsElements("x", "b")

			got := m.PlanSceneTransition("s1", "s2", from, to)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("transition mismatch (-want +got):\n%s", diff)
			}
			again := m.PlanSceneTransition("s1", "s2", from, to)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("second call differs:\n%s", diff)
			}
			if n := m.GenerateReflowReport().SceneTransitions; n != 0 {
				t.Errorf("planning recorded %d transitions in the manager", n)
			}
		})
	}
}

func TestRegisterContinuityValidates(t *testing.T) {
	tests := []struct {
		name string
		c    Continuity
		code errors.Code
	}{
		{"bad key", Continuity{Key: "", SourceScene: "s1"}, errors.ErrCodeInvalidElement},
		{"no source", Continuity{Key: "x"}, errors.ErrCodeInvalidPlan},
		{"bad type", Continuity{Key: "x", SourceScene: "s1", Type: 9}, errors.ErrCodeInvalidInput},
	}
	m := NewManager(nil, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.RegisterContinuity(tt.c); !errors.Is(err, tt.code) {
				t.Errorf("RegisterContinuity() = %v, want %s", err, tt.code)
			}
		})
	}
	if len(m.Continuities()) != 0 {
		t.Error("invalid declarations were registered")
	}
}

func TestPersistentElements(t *testing.T) {
	m := NewManager(nil, Options{})
	for _, c := range []Continuity{
		{Key: "title", SourceScene: "s1", TargetScenes: []string{"s2", "s3"}},
		{Key: "axes", Type: Transforming, SourceScene: "s1", TargetScenes: []string{"s2"}},
		{Key: "note", Type: Referential, SourceScene: "s2"},
	} {
		if err := m.RegisterContinuity(c); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"axes", "title"}, m.PersistentElements("s2")); diff != "" {
		t.Errorf("s2 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"title"}, m.PersistentElements("s3")); diff != "" {
		t.Errorf("s3 mismatch (-want +got):\n%s", diff)
	}
	if got := m.PersistentElements("s1"); len(got) != 0 {
		t.Errorf("s1 = %v, want none", got)
	}
}
