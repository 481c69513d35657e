// Package render draws position maps for debugging and review.
//
// # Overview
//
// Two renderers live in subpackages:
//
//   - [snapshot]: the frame at one instant, with safe area, regions, element
//     boxes and the overlaps that remain (SVG via svgo)
//   - [conflictgraph]: elements as nodes and colliding pairs as edges
//     (DOT rendered by Graphviz)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg). Both renderers use them.
//
//	svg := snapshot.RenderSVG(pm, 2.5)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
package render

import (
	"fmt"
	"slices"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF}

// ValidateFormat checks that a format is supported. Matching is case-sensitive.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf)", format)
	}
	return nil
}

// Convert turns SVG into format. SVG input is returned unchanged.
func Convert(svg []byte, format string, scale float64) ([]byte, error) {
	switch format {
	case FormatSVG:
		return svg, nil
	case FormatPDF:
		return ToPDF(svg)
	case FormatPNG:
		return ToPNG(svg, scale)
	}
	return nil, ValidateFormat(format)
}
