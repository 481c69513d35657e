package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const maxKeyLength = 128

// keyRegex matches element keys and scene IDs: a letter or digit followed by
// letters, digits and the separators . _ - ~ :
var keyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~:-]*$`)

// ValidateKey validates an element key.
// Keys end up in renderer source and file names, so the rules are conservative:
//   - No empty keys
//   - No control characters or whitespace
//   - Maximum length of 128 characters
//   - Only letters, digits and . _ - ~ :
func ValidateKey(key string) error {
	return validateIdent(ErrCodeInvalidElement, "element key", key)
}

// ValidateSceneID validates a scene identifier with the same rules as keys.
func ValidateSceneID(id string) error {
	return validateIdent(ErrCodeInvalidPlan, "scene id", id)
}

func validateIdent(code Code, what, s string) error {
	if s == "" {
		return New(code, "%s cannot be empty", what)
	}
	if len(s) > maxKeyLength {
		return New(code, "%s too long (max %d characters)", what, maxKeyLength)
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(code, "%s %q contains whitespace or control characters", what, s)
		}
	}
	if !keyRegex.MatchString(s) {
		return New(code, "invalid %s: %q", what, s)
	}
	return nil
}

// ValidatePath validates a relative output path, such as a store record name.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
