// Package snapshot renders a position map at one instant as SVG.
//
// The drawing shows the canvas, the safe area, optionally the nine placement
// regions, every element visible at the chosen time and the overlaps that
// remain between them. Scene coordinates grow upwards; the SVG is flipped so
// the picture matches what the animation shows.
package snapshot

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"

	svg "github.com/ajstarks/svgo"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
	"github.com/matzehuels/sceneguard/pkg/posmap"
)

// DefaultScale is the number of pixels per scene unit.
const DefaultScale = 80.0

var kindFill = map[element.Kind]string{
	element.KindText:    "#4e79a7",
	element.KindFormula: "#f28e2b",
	element.KindPlot:    "#59a14f",
	element.KindImage:   "#b07aa1",
	element.KindShape:   "#9c755f",
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	scale    float64
	regions  bool
	inactive bool
	title    string
}

// WithScale sets pixels per scene unit.
func WithScale(px float64) Option { return func(r *renderer) { r.scale = px } }

// WithRegions outlines the placement regions.
func WithRegions() Option { return func(r *renderer) { r.regions = true } }

// WithInactive draws elements outside their window as dashed ghosts.
func WithInactive() Option { return func(r *renderer) { r.inactive = true } }

// WithTitle sets the caption drawn in the top-left corner.
func WithTitle(s string) Option { return func(r *renderer) { r.title = s } }

// RenderSVG draws pm at time t.
func RenderSVG(pm *posmap.PositionMap, t float64, opts ...Option) []byte {
	r := renderer{scale: DefaultScale}
	for _, opt := range opts {
		opt(&r)
	}
	if r.scale <= 0 {
		r.scale = DefaultScale
	}

	f := pm.Frame()
	canvasBox := f.Canvas()
	w, h := r.px(canvasBox.Width()), r.px(canvasBox.Height())

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(w, h)
	canvas.Title(fmt.Sprintf("t = %.2fs", t))
	canvas.Rect(0, 0, w, h, "fill:#fafafa;stroke:#333;stroke-width:1")

	r.box(canvas, canvasBox, f.SafeBounds(), "fill:none;stroke:#999;stroke-width:1;stroke-dasharray:6,4")
	if r.regions {
		for _, reg := range frame.AllRegions() {
			b := f.RegionBounds(reg)
			r.box(canvas, canvasBox, b, "fill:none;stroke:#ccc;stroke-width:0.5;stroke-dasharray:2,3")
			x, y := r.point(canvasBox, b.XMin, b.YMax)
			canvas.Text(x+3, y+10, reg.String(), "font-size:9px;fill:#aaa;font-family:sans-serif")
		}
	}

	if r.inactive {
		for _, e := range pm.Elements() {
			if e.VisibleAt(t) {
				continue
			}
			r.box(canvas, canvasBox, e.Bounds, "fill:none;stroke:#bbb;stroke-width:1;stroke-dasharray:4,4")
		}
	}

	active := pm.ActiveAt(t)
	slices.SortStableFunc(active, func(a, b *element.PositionedElement) int {
		return cmp.Or(cmp.Compare(a.Bounds.Z, b.Bounds.Z), cmp.Compare(a.Key, b.Key))
	})
	bounds := make(map[string]geom.Bounds, len(active))
	for _, e := range active {
		bounds[e.Key] = e.Bounds
		r.element(canvas, canvasBox, e)
	}

	for _, c := range pm.CollisionsAt(t) {
		a, b := bounds[c.A], bounds[c.B]
		overlap := geom.Bounds{
			XMin: math.Max(a.XMin, b.XMin),
			YMin: math.Max(a.YMin, b.YMin),
			XMax: math.Min(a.XMax, b.XMax),
			YMax: math.Min(a.YMax, b.YMax),
		}
		if overlap.Degenerate() || !overlap.Valid() {
			continue
		}
		fill := "#e15759"
		if c.Severity == posmap.SeverityCritical {
			fill = "#b2182b"
		}
		r.box(canvas, canvasBox, overlap, fmt.Sprintf("fill:%s;fill-opacity:0.55;stroke:none", fill))
	}

	if r.title != "" {
		canvas.Text(8, 18, r.title, "font-size:14px;font-family:sans-serif;fill:#333")
	}
	canvas.Text(w-8, 18, fmt.Sprintf("t = %.2fs", t), "font-size:12px;font-family:monospace;fill:#666;text-anchor:end")
	canvas.End()
	return buf.Bytes()
}

func (r *renderer) element(canvas *svg.SVG, origin geom.Bounds, e *element.PositionedElement) {
	fill, ok := kindFill[e.Kind]
	if !ok {
		fill = "#bab0ac"
	}
	stroke := "#333"
	if e.Unresolved {
		stroke = "#d62728"
	}
	canvas.Gid("el-" + e.Key)
	r.box(canvas, origin, e.Bounds, fmt.Sprintf("fill:%s;fill-opacity:0.35;stroke:%s;stroke-width:1.5", fill, stroke))
	c := e.Bounds.Center()
	x, y := r.point(origin, c.X, c.Y)
	canvas.Text(x, y+4, e.Key, "font-size:11px;font-family:sans-serif;fill:#222;text-anchor:middle")
	canvas.Gend()
}

// box draws b as a rectangle.
func (r *renderer) box(canvas *svg.SVG, origin, b geom.Bounds, style string) {
	x, y := r.point(origin, b.XMin, b.YMax)
	canvas.Rect(x, y, max(r.px(b.Width()), 1), max(r.px(b.Height()), 1), style)
}

// point maps scene coordinates to pixels with the y axis pointing down.
func (r *renderer) point(origin geom.Bounds, x, y float64) (int, int) {
	return r.px(x - origin.XMin), r.px(origin.YMax - y)
}

func (r *renderer) px(v float64) int {
	return int(math.Round(v * r.scale))
}
