// Package export turns pipeline results into renderer-facing documents.
//
// Two formats are produced from the same [Document]:
//
//   - positions JSON: every element's center, size and window per scene
//   - a Manim module defining ELEMENT_POSITIONS and a safe_position helper
//     that clips points into the safe area
//
// Times in a Document are relative to the start of their scene, which is
// what an animation script needs when it plays scenes one by one.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
)

// Formats.
const (
	FormatJSON  = "json"
	FormatManim = "manim"
)

// Document is the export view of a pipeline result.
type Document struct {
	Plan     string       `json:"plan"`
	Frame    frame.Config `json:"frame"`
	Safe     geom.Bounds  `json:"safe_area"`
	Duration float64      `json:"duration"`
	Scenes   []Scene      `json:"scenes"`
}

// Scene lists the placements of one output scene.
type Scene struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	Start    float64    `json:"start"`
	End      float64    `json:"end"`
	Status   string     `json:"status"`
	Elements []Position `json:"elements"`
}

// Position is one element's final placement.
type Position struct {
	Key        string       `json:"key"`
	Kind       element.Kind `json:"kind"`
	Region     frame.Region `json:"region"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Z          int          `json:"z_index"`
	Enter      float64      `json:"enter"`
	Exit       float64      `json:"exit"`
	FontSize   float64      `json:"font_size,omitempty"`
	Unresolved bool         `json:"unresolved,omitempty"`
}

// FromResult builds a Document. Open-ended exits are clamped to the end of
// their scene.
func FromResult(res *pipeline.Result) (*Document, error) {
	f, err := frame.New(res.Frame)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Plan:     res.Plan,
		Frame:    res.Frame,
		Safe:     f.SafeBounds(),
		Duration: res.Duration,
		Scenes:   make([]Scene, 0, len(res.Scenes)),
	}
	for i := range res.Scenes {
		sr := &res.Scenes[i]
		sc := Scene{
			ID:       sr.ID,
			Source:   sr.Source,
			Start:    sr.Start,
			End:      sr.End,
			Status:   sr.Status,
			Elements: make([]Position, 0, len(sr.Elements())),
		}
		for _, e := range sr.Elements() {
			sc.Elements = append(sc.Elements, position(e, sr.Start, sr.End))
		}
		doc.Scenes = append(doc.Scenes, sc)
	}
	return doc, nil
}

func position(e *element.PositionedElement, start, end float64) Position {
	c := e.Bounds.Center()
	exit := e.Exit
	if e.OpenEnded() || exit > end {
		exit = end
	}
	return Position{
		Key:        e.Key,
		Kind:       e.Kind,
		Region:     e.Region,
		X:          c.X,
		Y:          c.Y,
		Width:      e.Bounds.Width(),
		Height:     e.Bounds.Height(),
		Z:          e.Bounds.Z,
		Enter:      e.Enter - start,
		Exit:       exit - start,
		FontSize:   e.FontSize,
		Unresolved: e.Unresolved,
	}
}

// Write encodes doc in format.
func Write(w io.Writer, doc *Document, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatManim:
		return WriteManim(w, doc)
	}
	return fmt.Errorf("invalid export format: %q (must be json or manim)", format)
}

// WriteJSON encodes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode positions: %w", err)
	}
	return nil
}
