package export

import (
	"fmt"
	"io"
	"strconv"
	"text/template"
)

var manimTemplate = template.Must(template.New("manim").Funcs(template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"str": strconv.Quote,
}).Parse(`# Generated positioning code for {{str .Plan}}.
from manim import *
import numpy as np

SAFE_X = ({{num .Safe.XMin}}, {{num .Safe.XMax}})
SAFE_Y = ({{num .Safe.YMin}}, {{num .Safe.YMax}})


def safe_position(pos):
    """Clip pos into the safe area."""
    x = float(np.clip(pos[0], *SAFE_X))
    y = float(np.clip(pos[1], *SAFE_Y))
    return np.array([x, y, pos[2] if len(pos) > 2 else 0])


SCENES = {
{{- range .Scenes}}
    {{str .ID}}: {"start": {{num .Start}}, "end": {{num .End}}},
{{- end}}
}

ELEMENT_POSITIONS = {
{{- range .Scenes}}
    {{str .ID}}: {
{{- range .Elements}}
        {{str .Key}}: {"pos": [{{num .X}}, {{num .Y}}, 0], "size": [{{num .Width}}, {{num .Height}}], "enter": {{num .Enter}}, "exit": {{num .Exit}}, "z_index": {{.Z}}},
{{- end}}
    },
{{- end}}
}


def get_element_position(scene, key):
    """Safe position of key in scene, or ORIGIN when unknown."""
    entry = ELEMENT_POSITIONS.get(scene, {}).get(key)
    if entry is None:
        return ORIGIN
    return safe_position(entry["pos"])
`))

// WriteManim writes doc as an importable Manim module.
func WriteManim(w io.Writer, doc *Document) error {
	if err := manimTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render manim positions: %w", err)
	}
	return nil
}
