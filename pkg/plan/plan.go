// Package plan reads multi-scene layout plans.
//
// A plan lists scenes in playback order. Each scene declares its duration and
// the element specs a content producer wants on screen; the plan may also
// declare which elements carry over between scenes. Plans are written in YAML
// or JSON:
//
//	name: derivatives
//	frame: {width: 14, height: 8, margin: 0.06}
//	scenes:
//	  - id: intro
//	    duration: 6
//	    elements:
//	      - {key: title, kind: text, region: top, text: "The derivative"}
//	      - {key: axes, kind: plot, enter: 1}
//	continuity:
//	  - {element_key: axes, continuity_type: persistent, source_scene: intro, target_scenes: [slope]}
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

// Format is a plan document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Plan is an ordered list of scenes with their element declarations.
type Plan struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Frame overrides the configured canvas when set.
	Frame *frame.Config `json:"frame,omitempty" yaml:"frame,omitempty"`

	Scenes     []Scene             `json:"scenes" yaml:"scenes"`
	Continuity []reflow.Continuity `json:"continuity,omitempty" yaml:"continuity,omitempty"`
}

// Scene is one scene of a plan.
type Scene struct {
	ID string `json:"id" yaml:"id"`

	// Duration in seconds; 0 selects the pipeline default.
	Duration float64        `json:"duration,omitempty" yaml:"duration,omitempty"`
	Elements []element.Spec `json:"elements" yaml:"elements"`
}

// FormatFor guesses the encoding from a file name. Anything that is not
// .json is treated as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	p, err := Read(f, FormatFor(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "%s", filepath.Base(path))
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Read decodes and validates a plan. Unknown fields are rejected.
func Read(r io.Reader, format Format) (*Plan, error) {
	var p Plan
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "decode json plan")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "decode yaml plan")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "plan format %q", format)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Parse decodes a plan held in memory, sniffing JSON by its leading brace.
func Parse(data []byte) (*Plan, error) {
	format := FormatYAML
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		format = FormatJSON
	}
	return Read(bytes.NewReader(data), format)
}

// Validate checks scene IDs, durations, element keys and continuity
// declarations. Element content is validated when the pipeline builds it.
func (p *Plan) Validate() error {
	if len(p.Scenes) == 0 {
		return errors.New(errors.ErrCodeInvalidPlan, "plan has no scenes")
	}
	if p.Frame != nil {
		if err := p.Frame.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPlan, err, "frame")
		}
	}

	scenes := make(map[string]bool, len(p.Scenes))
	for i, s := range p.Scenes {
		if err := errors.ValidateSceneID(s.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPlan, err, "scene %d", i)
		}
		if strings.Contains(s.ID, "~") {
			return errors.New(errors.ErrCodeInvalidPlan, "scene %q: '~' is reserved for continuation scenes", s.ID)
		}
		if scenes[s.ID] {
			return errors.New(errors.ErrCodeInvalidPlan, "duplicate scene %q", s.ID)
		}
		scenes[s.ID] = true
		if !(s.Duration >= 0) {
			return errors.New(errors.ErrCodeInvalidPlan, "scene %q: negative duration %g", s.ID, s.Duration)
		}

		keys := make(map[string]bool, len(s.Elements))
		for _, spec := range s.Elements {
			if err := errors.ValidateKey(spec.Key); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPlan, err, "scene %q", s.ID)
			}
			if keys[spec.Key] {
				return errors.New(errors.ErrCodeInvalidPlan, "scene %q: duplicate element %q", s.ID, spec.Key)
			}
			keys[spec.Key] = true
		}
	}

	for _, c := range p.Continuity {
		if err := c.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPlan, err, "continuity")
		}
		if !scenes[c.SourceScene] {
			return errors.New(errors.ErrCodeInvalidPlan, "continuity %q: unknown source scene %q", c.Key, c.SourceScene)
		}
	}
	return nil
}

// SceneIDs lists the scene IDs in order.
func (p *Plan) SceneIDs() []string {
	ids := make([]string, len(p.Scenes))
	for i, s := range p.Scenes {
		ids[i] = s.ID
	}
	return ids
}

// ElementCount returns the number of element specs across all scenes.
func (p *Plan) ElementCount() int {
	n := 0
	for _, s := range p.Scenes {
		n += len(s.Elements)
	}
	return n
}

// Hash returns a content hash of the plan's canonical JSON form. Two
// documents that decode to the same plan share a hash regardless of
// encoding or formatting.
func (p *Plan) Hash() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
