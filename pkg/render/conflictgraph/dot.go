package conflictgraph

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/render"
)

// Options configures conflict graph rendering.
type Options struct {
	// Detailed adds kind, region, window and priority to node labels.
	Detailed bool

	// Dependencies draws an arrow from each element to the elements it depends on.
	Dependencies bool
}

// Edge aggregates every sampled collision between one pair of elements.
type Edge struct {
	A, B     string
	Count    int
	MaxArea  float64
	Severity posmap.Severity
}

var kindColor = map[element.Kind]string{
	element.KindText:    "#dbe7f3",
	element.KindFormula: "#fde3c8",
	element.KindPlot:    "#d9ecd5",
	element.KindImage:   "#ecdde8",
	element.KindShape:   "#e8ddd5",
}

// Edges folds pm's sampled collisions into one edge per pair, ordered by key.
func Edges(pm *posmap.PositionMap) []Edge {
	byPair := make(map[[2]string]*Edge)
	for _, c := range pm.DetectAllCollisions() {
		k := [2]string{c.A, c.B}
		e, ok := byPair[k]
		if !ok {
			e = &Edge{A: c.A, B: c.B, Severity: c.Severity}
			byPair[k] = e
		}
		e.Count++
		e.MaxArea = max(e.MaxArea, c.OverlapArea)
		if c.Severity == posmap.SeverityCritical {
			e.Severity = posmap.SeverityCritical
		}
	}

	out := make([]Edge, 0, len(byPair))
	for _, e := range byPair {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(x, y Edge) int {
		return cmp.Or(cmp.Compare(x.A, y.A), cmp.Compare(x.B, y.B))
	})
	return out
}

// ToDOT converts pm to Graphviz DOT. The result can be rendered with
// [RenderSVG], [RenderPDF] or [RenderPNG].
//
// Elements left unresolved by conflict resolution get a bold red outline.
func ToDOT(pm *posmap.PositionMap, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [dir=none, fontsize=10];\n")
	buf.WriteString("\n")

	els := pm.Elements()
	for _, e := range els {
		fmt.Fprintf(&buf, "  %q [%s];\n", e.Key, strings.Join(fmtAttrs(e, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range Edges(pm) {
		color := "orange"
		if e.Severity == posmap.SeverityCritical {
			color = "red"
		}
		fmt.Fprintf(&buf, "  %q -> %q [color=%s, penwidth=%.1f, label=\"%d\"];\n",
			e.A, e.B, color, penWidth(e.MaxArea), e.Count)
	}

	if opts.Dependencies {
		known := make(map[string]bool, len(els))
		for _, e := range els {
			known[e.Key] = true
		}
		for _, e := range els {
			for _, dep := range e.Dependencies {
				if known[dep] {
					fmt.Fprintf(&buf, "  %q -> %q [dir=forward, style=dashed, color=grey];\n", e.Key, dep)
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(e *element.PositionedElement, detailed bool) string {
	if !detailed {
		return e.Key
	}
	window := fmt.Sprintf("%.2f–∞", e.Enter)
	if !e.OpenEnded() {
		window = fmt.Sprintf("%.2f–%.2f", e.Enter, e.Exit)
	}
	parts := []string{
		fmt.Sprintf("%s @ %s", e.Kind, e.Region),
		"t: " + window,
		fmt.Sprintf("priority: %d", e.Priority),
	}
	return e.Key + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(e *element.PositionedElement, detailed bool) []string {
	fill, ok := kindColor[e.Kind]
	if !ok {
		fill = "white"
	}
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(e, detailed)),
		fmt.Sprintf("fillcolor=%q", fill),
	}
	if e.Unresolved {
		attrs = append(attrs, "color=red", "penwidth=2.5")
	}
	return attrs
}

// penWidth grows with the overlap area and is capped so big overlaps stay legible.
func penWidth(area float64) float64 {
	return min(1+area, 6)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a
// zero-origin viewBox so the output scales cleanly.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via [render.ToPDF].
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via [render.ToPNG].
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
