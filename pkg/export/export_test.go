package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/geom"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/plan"
)

func ptr(v float64) *float64 { return &v }

func layout(t *testing.T) *pipeline.Result {
	t.Helper()
	p := &plan.Plan{
		Name: "lesson",
		Scenes: []plan.Scene{
			{ID: "a", Duration: 4, Elements: []element.Spec{
				{Key: "title", Kind: element.KindText, Region: frame.RegionTop, Text: "Limits"},
			}},
			{ID: "b", Duration: 6, Elements: []element.Spec{
				{Key: "note", Kind: element.KindText, Region: frame.RegionBottom, Text: "h -> 0", Enter: 1, Exit: ptr(3)},
			}},
		},
	}
	res, err := pipeline.NewRunner(nil, nil, nil, nil).Execute(context.Background(), p, pipeline.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func TestFromResult(t *testing.T) {
	doc, err := FromResult(layout(t))
	if err != nil {
		t.Fatalf("FromResult: %v", err)
	}
	if doc.Plan != "lesson" || doc.Duration != 10 {
		t.Errorf("doc = %q/%v, want lesson/10", doc.Plan, doc.Duration)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(doc.Scenes))
	}

	b := doc.Scenes[1]
	if b.Start != 4 || b.End != 10 {
		t.Errorf("scene b spans [%v, %v], want [4, 10]", b.Start, b.End)
	}
	if len(b.Elements) != 1 {
		t.Fatalf("scene b has %d elements, want 1", len(b.Elements))
	}
	note := b.Elements[0]
	if note.Enter != 1 || note.Exit != 3 {
		t.Errorf("note window = [%v, %v), want scene-relative [1, 3)", note.Enter, note.Exit)
	}

	title := doc.Scenes[0].Elements[0]
	if title.Exit != 4 {
		t.Errorf("open-ended title exit = %v, want scene length 4", title.Exit)
	}
	if doc.Safe.Width() >= doc.Frame.Width {
		t.Errorf("safe area %v not inside canvas", doc.Safe)
	}
}

func TestWrite(t *testing.T) {
	doc, err := FromResult(layout(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{FormatJSON, `"safe_area"`, false},
		{FormatManim, "ELEMENT_POSITIONS = {", false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := Write(&buf, doc, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Write() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestWriteJSONDecodes(t *testing.T) {
	doc, err := FromResult(layout(t))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, doc); err != nil {
		t.Fatal(err)
	}
	var back Document
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Scenes[0].Elements[0].Region != frame.RegionTop {
		t.Errorf("region = %v, want top", back.Scenes[0].Elements[0].Region)
	}
}

const wantManim = `# Generated positioning code for "derivatives".
from manim import *
import numpy as np

SAFE_X = (-6.16, 6.16)
SAFE_Y = (-3.52, 3.52)


def safe_position(pos):
    """Clip pos into the safe area."""
    x = float(np.clip(pos[0], *SAFE_X))
    y = float(np.clip(pos[1], *SAFE_Y))
    return np.array([x, y, pos[2] if len(pos) > 2 else 0])


SCENES = {
    "intro": {"start": 0.00, "end": 6.00},
}

ELEMENT_POSITIONS = {
    "intro": {
        "title": {"pos": [0.00, 2.75, 0], "size": [4.00, 0.60], "enter": 0.00, "exit": 6.00, "z_index": 0},
        "axes": {"pos": [0.00, 0.00, 0], "size": [6.00, 3.50], "enter": 1.00, "exit": 6.00, "z_index": 0},
    },
}


def get_element_position(scene, key):
    """Safe position of key in scene, or ORIGIN when unknown."""
    entry = ELEMENT_POSITIONS.get(scene, {}).get(key)
    if entry is None:
        return ORIGIN
    return safe_position(entry["pos"])
`

func TestWriteManim(t *testing.T) {
	doc := &Document{
		Plan:  "derivatives",
		Frame: frame.DefaultConfig(),
		Safe:  geom.Bounds{XMin: -6.16, YMin: -3.52, XMax: 6.16, YMax: 3.52},
		Scenes: []Scene{{
			ID: "intro", Start: 0, End: 6,
			Elements: []Position{
				{Key: "title", Kind: element.KindText, Region: frame.RegionTop, Y: 2.75, Width: 4, Height: 0.6, Exit: 6},
				{Key: "axes", Kind: element.KindPlot, Width: 6, Height: 3.5, Enter: 1, Exit: 6},
			},
		}},
	}
	var buf bytes.Buffer
	if err := WriteManim(&buf, doc); err != nil {
		t.Fatalf("WriteManim: %v", err)
	}
	if diff := cmp.Diff(wantManim, buf.String()); diff != "" {
		t.Errorf("manim module mismatch (-want +got):\n%s", diff)
	}
}
