// Package scope resolves request identity into a per-user library root.
package scope

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/braindrive/library/pkg/mcperr"
)

// Identity headers on every request.
const (
	UserIDHeader       = "X-BrainDrive-User-Id"
	RequestIDHeader    = "X-BrainDrive-Request-Id"
	ServiceTokenHeader = "X-BrainDrive-Service-Token"
)

// HealthPath is exempt from identity enforcement.
const HealthPath = "/health"

var validUserID = regexp.MustCompile(`^[A-Za-z0-9_]{3,128}$`)

// NormalizeUserID strips whitespace and hyphens from a raw user id and
// validates the result. Hyphen stripping lets UUID-formatted ids map onto
// one directory name.
func NormalizeUserID(raw string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if normalized == "" {
		return "", mcperr.New(
			"AUTH_REQUIRED",
			"Missing required user identity header.",
			map[string]any{"header": UserIDHeader},
		)
	}

	if !validUserID.MatchString(normalized) {
		return "", mcperr.New(
			"INVALID_USER_ID",
			"User id contains invalid characters.",
			map[string]any{"user_id": raw},
		)
	}

	return normalized, nil
}

// LibraryRoot returns the scoped library root for a normalized user id.
func LibraryRoot(baseRoot, userID string) string {
	return filepath.Join(baseRoot, "users", userID)
}

// EnsureLibraryRoot resolves and creates the per-user library root.
func EnsureLibraryRoot(baseRoot, rawUserID string) (string, error) {
	userID, err := NormalizeUserID(rawUserID)
	if err != nil {
		return "", err
	}

	root := LibraryRoot(baseRoot, userID)

	err = os.MkdirAll(root, 0o755)
	if err != nil {
		return "", fmt.Errorf("create library root: %w", err)
	}

	return root, nil
}
