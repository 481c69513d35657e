package errors

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "title", false},
		{"with dash", "eq-1", false},
		{"with underscore", "axes_plot", false},
		{"namespaced", "scene1:title", false},
		{"continuation", "intro~2", false},
		{"digit first", "1st", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"space", "my title", true},
		{"tab", "a\tb", true},
		{"null byte", "foo\x00bar", true},
		{"slash", "foo/bar", true},
		{"leading dash", "-x", true},
		{"quote", `a"b`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidElement) {
				t.Errorf("ValidateKey(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateSceneID(t *testing.T) {
	if err := ValidateSceneID("scene_1"); err != nil {
		t.Errorf("ValidateSceneID(scene_1) = %v", err)
	}
	err := ValidateSceneID("")
	if !Is(err, ErrCodeInvalidPlan) {
		t.Errorf("ValidateSceneID(\"\") = %v, want INVALID_PLAN", err)
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "runs/abc.json", false},
		{"valid filename only", "layout.json", false},
		{"valid with dots", "v1.2.3/result.json", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidBounds,
		ErrCodeInvalidTimeWindow,
		ErrCodeInvalidElement,
		ErrCodeInvalidRegion,
		ErrCodeInvalidStateTransition,
		ErrCodeInvalidPlan,
		ErrCodeInvalidConfig,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
