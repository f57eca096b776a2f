// Package security confines externally supplied paths to a base directory.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path resolves outside its base
// directory, either through ".." components or through a symlink.
var ErrOutsideDirectory = errors.New("path escapes base directory")

// canonical resolves symlinks in path. For a path that does not exist yet,
// the deepest existing parent is resolved and the rest is appended.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	for parent := filepath.Dir(path); ; parent = filepath.Dir(parent) {
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, path)
			return filepath.Join(resolved, rel)
		}
		if filepath.Dir(parent) == parent {
			return path
		}
	}
}

// ValidatePathWithinDirectory checks that filePath, after cleaning and
// symlink resolution, lies inside baseDir. baseDir must exist.
func ValidatePathWithinDirectory(filePath, baseDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory path: %w", err)
	}
	canonicalBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalBase, canonical(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s: %w %s", filePath, ErrOutsideDirectory, baseDir)
	}
	return nil
}

// ResolveWithin joins name onto baseDir and returns the result if it stays
// inside baseDir.
func ResolveWithin(baseDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%s: %w %s", name, ErrOutsideDirectory, baseDir)
	}
	path := filepath.Join(baseDir, name)
	if err := ValidatePathWithinDirectory(path, baseDir); err != nil {
		return "", err
	}
	return path, nil
}
