// Package pathguard enforces the library boundary for user-supplied paths.
// Every path entering a tool handler passes through Validate before any
// filesystem access.
package pathguard

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/braindrive/library/pkg/mcperr"
)

// Validate normalizes a user-supplied relative path and returns the absolute
// path inside libraryRoot. Absolute paths, traversal segments, and symlinked
// components are rejected with stable error codes.
func Validate(libraryRoot, rawPath string) (string, error) {
	normalized := strings.ReplaceAll(rawPath, "\\", "/")
	if strings.HasPrefix(normalized, "/") {
		return "", mcperr.New(
			"ABSOLUTE_PATH",
			"Absolute paths are not allowed.",
			map[string]any{"path": rawPath},
		)
	}

	parts := splitSegments(normalized)
	for _, part := range parts {
		if part == ".." {
			return "", mcperr.New(
				"PATH_TRAVERSAL",
				"Path traversal is not allowed.",
				map[string]any{"path": rawPath},
			)
		}
	}

	if containsSymlink(libraryRoot, parts) {
		return "", mcperr.New(
			"PATH_SYMLINK",
			"Symlinked paths are not allowed.",
			map[string]any{"path": rawPath},
		)
	}

	return filepath.Join(append([]string{libraryRoot}, parts...)...), nil
}

// Relative returns the slash-separated path of abs relative to libraryRoot.
func Relative(libraryRoot, abs string) string {
	rel, err := filepath.Rel(libraryRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}

	return filepath.ToSlash(rel)
}

// splitSegments breaks a slash path into its meaningful components,
// dropping empty and "." segments the way path normalization does.
func splitSegments(normalized string) []string {
	raw := strings.Split(normalized, "/")

	parts := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment == "" || segment == "." {
			continue
		}

		parts = append(parts, segment)
	}

	return parts
}

// containsSymlink walks each component under libraryRoot and reports whether
// any existing component is a symlink. Missing components are ignored.
func containsSymlink(libraryRoot string, parts []string) bool {
	current := libraryRoot
	for _, segment := range parts {
		current = filepath.Join(current, segment)

		info, err := os.Lstat(current)
		if err != nil {
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}

	return false
}
