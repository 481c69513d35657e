package element

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/geom"
)

// Kind identifies the content variant of an element.
type Kind int

const (
	KindText Kind = iota
	KindFormula
	KindPlot
	KindImage
	KindShape
)

var kindNames = [...]string{"text", "formula", "plot", "image", "shape"}

// kindAliases maps renderer class names to kinds.
var kindAliases = map[string]Kind{
	"text":     KindText,
	"tex":      KindText,
	"formula":  KindFormula,
	"mathtex":  KindFormula,
	"math":     KindFormula,
	"plot":     KindPlot,
	"axesplot": KindPlot,
	"axes":     KindPlot,
	"graph":    KindPlot,
	"image":    KindImage,
	"svg":      KindImage,
	"shape":    KindShape,
	"mobject":  KindShape,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts kind names and renderer class names such as "MathTex" or
// "AxesPlot", case-insensitively.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidElement, "unknown element kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, errors.New(errors.ErrCodeInvalidElement, "unknown element kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input decodes to
// KindText.
func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = KindText
		return nil
	}
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DefaultPriority returns the conflict-resolution priority used when a spec
// does not set one. Formulas outrank text, images yield first.
func (k Kind) DefaultPriority() int {
	switch k {
	case KindFormula:
		return 4
	case KindText:
		return 3
	case KindImage:
		return 1
	default:
		return 2
	}
}

// =============================================================================
// Content variants
// =============================================================================

// Content is the kind-specific payload of an element. Each variant validates
// its own required fields and estimates its footprint inside a region.
type Content interface {
	Kind() Kind
	Validate() error
	// Size returns the estimated width and height in canvas units when the
	// content is placed in region.
	Size(region geom.Bounds) (w, h float64)
	// Summary is a short human-readable description for reports.
	Summary() string
}

// Text estimation constants. Font sizes are in points; 96 points span one
// canvas unit.
const (
	DefaultFontSize  = 42.0
	pointsPerUnit    = 96.0
	charWidthFactor  = 0.6
	lineHeightFactor = 1.2
	textWrapFraction = 0.8
)

// Text is a plain text label or paragraph.
type Text struct {
	Content  string
	FontSize float64
}

func (Text) Kind() Kind { return KindText }

func (t Text) Validate() error {
	if strings.TrimSpace(t.Content) == "" {
		return errors.New(errors.ErrCodeInvalidElement, "text content cannot be empty")
	}
	return validateFontSize(t.FontSize)
}

func (t Text) Size(region geom.Bounds) (float64, float64) {
	return estimateText(utf8.RuneCountInString(t.Content), fontOrDefault(t.FontSize), region)
}

func (t Text) Summary() string { return truncate(t.Content, 40) }

// Formula is typeset TeX.
type Formula struct {
	TeX      string
	FontSize float64
}

func (Formula) Kind() Kind { return KindFormula }

func (f Formula) Validate() error {
	if strings.TrimSpace(f.TeX) == "" {
		return errors.New(errors.ErrCodeInvalidElement, "formula tex cannot be empty")
	}
	return validateFontSize(f.FontSize)
}

func (f Formula) Size(region geom.Bounds) (float64, float64) {
	return estimateText(utf8.RuneCountInString(f.TeX), fontOrDefault(f.FontSize), region)
}

func (f Formula) Summary() string { return truncate(f.TeX, 40) }

// Plot is a set of axes with graphs. Zero dimensions use 70% × 60% of the
// region.
type Plot struct {
	Width, Height float64
}

func (Plot) Kind() Kind { return KindPlot }

func (p Plot) Validate() error { return validateDims(p.Width, p.Height) }

func (p Plot) Size(region geom.Bounds) (float64, float64) {
	return dimsOr(p.Width, p.Height, region.Width()*0.7, region.Height()*0.6)
}

func (p Plot) Summary() string { return "plot" }

// Image is a raster or vector asset. Source is required.
type Image struct {
	Source        string
	Width, Height float64
}

func (Image) Kind() Kind { return KindImage }

func (i Image) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return errors.New(errors.ErrCodeInvalidElement, "image source cannot be empty")
	}
	return validateDims(i.Width, i.Height)
}

func (i Image) Size(region geom.Bounds) (float64, float64) {
	return dimsOr(i.Width, i.Height, region.Width()*0.5, region.Height()*0.3)
}

func (i Image) Summary() string { return i.Source }

// Shape is any other mobject with an explicit or default footprint.
type Shape struct {
	Width, Height float64
}

func (Shape) Kind() Kind { return KindShape }

func (s Shape) Validate() error { return validateDims(s.Width, s.Height) }

func (s Shape) Size(region geom.Bounds) (float64, float64) {
	return dimsOr(s.Width, s.Height, region.Width()*0.5, region.Height()*0.3)
}

func (s Shape) Summary() string { return "shape" }

func estimateText(chars int, fontSize float64, region geom.Bounds) (float64, float64) {
	chars = max(chars, 1)
	charW := fontSize * charWidthFactor / pointsPerUnit
	lineH := fontSize * lineHeightFactor / pointsPerUnit
	maxW := region.Width() * textWrapFraction
	perLine := max(1, int(maxW/charW))
	lines := math.Max(1, float64(chars)/float64(perLine))
	return math.Min(float64(chars)*charW, maxW), lines * lineH
}

func fontOrDefault(fs float64) float64 {
	if fs <= 0 {
		return DefaultFontSize
	}
	return fs
}

func validateFontSize(fs float64) error {
	if fs < 0 || math.IsNaN(fs) || math.IsInf(fs, 0) {
		return errors.New(errors.ErrCodeInvalidElement, "font size must be a positive number, got %g", fs)
	}
	return nil
}

// validateDims accepts zero (use defaults) or finite positive dimensions.
func validateDims(w, h float64) error {
	for _, v := range []float64{w, h} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(errors.ErrCodeInvalidElement, "dimensions must be finite and non-negative, got %gx%g", w, h)
		}
	}
	if (w == 0) != (h == 0) {
		return errors.New(errors.ErrCodeInvalidElement, "width and height must be set together, got %gx%g", w, h)
	}
	return nil
}

func dimsOr(w, h, dw, dh float64) (float64, float64) {
	if w > 0 && h > 0 {
		return w, h
	}
	return dw, dh
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
