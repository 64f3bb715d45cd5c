package artifact

import "errors"

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrCorrupted is returned when decompression fails or the stored
	// payload no longer matches its content hash. Fatal for that
	// artifact; never retried.
	ErrCorrupted = errors.New("artifact corrupted")

	// ErrInvalidName is returned when the artifact name contains path
	// separators or otherwise fails security validation.
	ErrInvalidName = errors.New("invalid artifact name")

	// ErrInvalidType is returned when the artifact type is not one of
	// the closed Type set.
	ErrInvalidType = errors.New("invalid artifact type")

	// ErrTooLarge is returned when the payload exceeds the configured
	// maximum artifact size.
	ErrTooLarge = errors.New("artifact too large")
)

// ValidateName checks that name is safe to embed in storage keys.
// Returns ErrInvalidName if validation fails.
//
// Validation rules:
//   - Must not be empty
//   - Must not exceed 255 characters
//   - Must not contain path separators (/, \) or null bytes
//   - Must not be "." or ".." (path traversal)
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > 255 {
		return ErrInvalidName
	}
	for _, c := range name {
		if c == '/' || c == '\\' || c == '\x00' {
			return ErrInvalidName
		}
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
