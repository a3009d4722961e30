// Package security guards the files the CLI reads and writes on the user's
// behalf: calendar imports and exports, and scheduling profiles.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths that are empty or carry control or
// shell characters.
var ErrUnsafePath = errors.New("unsafe file path")

const forbidden = ";&|$`<>\x00\n\r"

// CleanPath returns path as an absolute, cleaned path with symlinks of
// existing files resolved.
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsafePath)
	}
	if i := strings.IndexAny(path, forbidden); i >= 0 {
		return "", fmt.Errorf("%w: %q contains %q", ErrUnsafePath, path, path[i])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, os.ErrNotExist):
		return abs, nil
	default:
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
}

// ReadFile reads the file at a cleaned path.
func ReadFile(path string) ([]byte, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is cleaned above
	return os.ReadFile(clean)
}

// Open opens the file at a cleaned path for reading.
func Open(path string) (*os.File, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is cleaned above
	return os.Open(clean)
}

// Create truncates or creates the file at a cleaned path, readable only by
// its owner.
func Create(path string) (*os.File, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is cleaned above
	return os.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
}
