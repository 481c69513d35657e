package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "plain",
			err:  New(ErrCodeInvalidBounds, "element %q: x_max < x_min", "title"),
			want: `INVALID_BOUNDS: element "title": x_max < x_min`,
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeInvalidPlan, errors.New("yaml: line 3"), "decode %s", "lesson.yaml"),
			want: "INVALID_PLAN: decode lesson.yaml: yaml: line 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeInternal, cause, "save run")

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIsAndGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		wantIs   bool
		wantCode Code
	}{
		{"direct", New(ErrCodeInvalidRegion, "x"), ErrCodeInvalidRegion, true, ErrCodeInvalidRegion},
		{"other code", New(ErrCodeInvalidRegion, "x"), ErrCodeInvalidBounds, false, ErrCodeInvalidRegion},
		{"outermost wins", Wrap(ErrCodeInvalidPlan, New(ErrCodeInvalidElement, "inner"), "outer"), ErrCodeInvalidPlan, true, ErrCodeInvalidPlan},
		{"behind fmt wrap", fmt.Errorf("scene intro: %w", New(ErrCodeInvalidTimeWindow, "x")), ErrCodeInvalidTimeWindow, true, ErrCodeInvalidTimeWindow},
		{"plain", errors.New("plain"), ErrCodeInvalidInput, false, ""},
		{"nil", nil, ErrCodeInvalidInput, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.wantIs {
				t.Errorf("Is() = %v, want %v", got, tt.wantIs)
			}
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeNotFound, "run %q", "abc")); got != `run "abc"` {
		t.Errorf("UserMessage(coded) = %q", got)
	}
	wrapped := fmt.Errorf("load: %w", New(ErrCodeInvalidConfig, "unknown keys: x"))
	if got := UserMessage(wrapped); got != "unknown keys: x" {
		t.Errorf("UserMessage(wrapped) = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"bounds", New(ErrCodeInvalidBounds, "x"), true},
		{"window", New(ErrCodeInvalidTimeWindow, "x"), true},
		{"wrapped state", Wrap(ErrCodeInvalidStateTransition, errors.New("cause"), "x"), true},
		{"not found", New(ErrCodeNotFound, "x"), false},
		{"internal", New(ErrCodeInternal, "x"), false},
		{"plain", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalid(tt.err); got != tt.expected {
				t.Errorf("IsInvalid() = %v, want %v", got, tt.expected)
			}
		})
	}
}
