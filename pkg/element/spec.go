package element

import (
	"math"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// Spec is a producer-supplied element declaration, the flat form found in
// plan documents. Kind selects which content fields are required.
type Spec struct {
	Key    string       `json:"key" yaml:"key"`
	Kind   Kind         `json:"kind" yaml:"kind"`
	Region frame.Region `json:"region,omitempty" yaml:"region,omitempty"`

	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	TeX      string  `json:"tex,omitempty" yaml:"tex,omitempty"`
	Source   string  `json:"source,omitempty" yaml:"source,omitempty"`
	FontSize float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Width    float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height   float64 `json:"height,omitempty" yaml:"height,omitempty"`

	// Enter is the offset from scene start; Exit is nil for "until scene end".
	Enter float64  `json:"enter,omitempty" yaml:"enter,omitempty"`
	Exit  *float64 `json:"exit,omitempty" yaml:"exit,omitempty"`

	// Priority 0 selects the kind's default.
	Priority  int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Z         int      `json:"z_index,omitempty" yaml:"z_index,omitempty"`
}

// Content builds and validates the content variant for s.Kind.
func (s Spec) Content() (Content, error) {
	var c Content
	switch s.Kind {
	case KindText:
		c = Text{Content: s.Text, FontSize: s.FontSize}
	case KindFormula:
		tex := s.TeX
		if tex == "" {
			tex = s.Text
		}
		c = Formula{TeX: tex, FontSize: s.FontSize}
	case KindPlot:
		c = Plot{Width: s.Width, Height: s.Height}
	case KindImage:
		c = Image{Source: s.Source, Width: s.Width, Height: s.Height}
	case KindShape:
		c = Shape{Width: s.Width, Height: s.Height}
	default:
		return nil, errors.New(errors.ErrCodeInvalidElement, "element %q: unknown kind %d", s.Key, int(s.Kind))
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidElement, err, "element %q", s.Key)
	}
	return c, nil
}

// Build turns a spec into a planned element centered in its region, with
// times relative to sceneStart. Text and formula footprints are estimated from
// their content unless Width and Height are both set.
func Build(s Spec, f *frame.SafeFrame, scene string, sceneStart float64) (*PositionedElement, error) {
	if err := errors.ValidateKey(s.Key); err != nil {
		return nil, err
	}
	if !s.Region.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidRegion, "element %q: unknown region %d", s.Key, int(s.Region))
	}
	c, err := s.Content()
	if err != nil {
		return nil, err
	}

	region := f.RegionBounds(s.Region)
	w, h := c.Size(region)
	if s.Width > 0 && s.Height > 0 {
		w, h = s.Width, s.Height
	}
	bounds := geom.FromCenter(region.Center(), w, h)
	bounds.Z = s.Z

	exit := math.Inf(1)
	if s.Exit != nil {
		exit = sceneStart + *s.Exit
	}
	prio := s.Priority
	if prio == 0 {
		prio = c.Kind().DefaultPriority()
	}
	var font float64
	switch s.Kind {
	case KindText, KindFormula:
		font = fontOrDefault(s.FontSize)
	}

	e := &PositionedElement{
		Key:          s.Key,
		Kind:         c.Kind(),
		Scene:        scene,
		Bounds:       bounds,
		Region:       s.Region,
		State:        StatePlanned,
		Enter:        sceneStart + s.Enter,
		Exit:         exit,
		Priority:     prio,
		Dependencies: append([]string(nil), s.DependsOn...),
		Summary:      c.Summary(),
		FontSize:     font,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
