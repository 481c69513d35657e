package render

import (
	"bytes"
	"testing"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestConvertSVGPassesThrough(t *testing.T) {
	in := []byte("<svg/>")
	out, err := Convert(in, FormatSVG, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("Convert(svg) = %q", out)
	}
	if _, err := Convert(in, "bmp", 1); err == nil {
		t.Error("Convert(bmp) succeeded")
	}
}
