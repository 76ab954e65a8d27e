package pathguard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/pathguard"
)

func TestValidate_AcceptsRelativePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	abs, err := pathguard.Validate(root, "projects/notes.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "projects", "notes.md"), abs)
}

func TestValidate_NormalizesDotAndEmptySegments(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	abs, err := pathguard.Validate(root, "a/./b//c.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b", "c.md"), abs)
}

func TestValidate_NormalizesBackslashes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	abs, err := pathguard.Validate(root, `projects\plan.md`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "projects", "plan.md"), abs)
}

func TestValidate_RejectsAbsolutePath(t *testing.T) {
	t.Parallel()

	_, err := pathguard.Validate(t.TempDir(), "/etc/passwd")
	require.Error(t, err)

	mcpErr, ok := mcperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "ABSOLUTE_PATH", mcpErr.Code)
	assert.Equal(t, "Absolute paths are not allowed.", mcpErr.Message)
	assert.Equal(t, "/etc/passwd", mcpErr.Details["path"])
}

func TestValidate_RejectsTraversal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	for _, raw := range []string{"../escape.md", "a/../../escape.md", "a/b/../../../x"} {
		_, err := pathguard.Validate(root, raw)
		require.Error(t, err, "path %q", raw)

		mcpErr, ok := mcperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "PATH_TRAVERSAL", mcpErr.Code)
		assert.Equal(t, "Path traversal is not allowed.", mcpErr.Message)
	}
}

func TestValidate_RejectsSymlinkedComponent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := pathguard.Validate(root, "link/notes.md")
	require.Error(t, err)

	mcpErr, ok := mcperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "PATH_SYMLINK", mcpErr.Code)
	assert.Equal(t, "Symlinked paths are not allowed.", mcpErr.Message)
}

func TestValidate_IgnoresMissingComponents(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	abs, err := pathguard.Validate(root, "does/not/exist.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "does", "not", "exist.md"), abs)
}

func TestRelative(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	abs := filepath.Join(root, "projects", "plan.md")

	assert.Equal(t, "projects/plan.md", pathguard.Relative(root, abs))
}
