package gitstore_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/gitstore"
)

var hexSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

func newStore(t *testing.T) (*gitstore.Store, string) {
	t.Helper()

	root := t.TempDir()

	store, err := gitstore.Ensure(root)
	require.NoError(t, err)
	t.Cleanup(store.Free)

	return store, root
}

func writeWorktreeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestEnsure_InitializesOnce(t *testing.T) {
	t.Parallel()

	store, root := newStore(t)
	assert.Equal(t, root, store.Root())
	assert.DirExists(t, filepath.Join(root, ".git"))

	// A second Ensure opens the existing repository instead of
	// reinitializing it.
	writeWorktreeFile(t, root, "a.md", "a\n")
	require.NoError(t, store.Stage("a.md"))

	sha, err := store.Commit("create_markdown: a.md")
	require.NoError(t, err)

	reopened, err := gitstore.Ensure(root)
	require.NoError(t, err)
	defer reopened.Free()

	assert.Equal(t, sha, gitstore.ResolveHead(root))
}

func TestStageCommit_AdvancesHead(t *testing.T) {
	t.Parallel()

	store, root := newStore(t)
	assert.Empty(t, gitstore.ResolveHead(root))

	writeWorktreeFile(t, root, "docs/readme.md", "Intro\n")
	require.NoError(t, store.Stage("docs/readme.md"))

	first, err := store.Commit("create_markdown: docs/readme.md")
	require.NoError(t, err)
	assert.Regexp(t, hexSHA, first)
	assert.Equal(t, first, gitstore.ResolveHead(root))

	writeWorktreeFile(t, root, "docs/readme.md", "Intro\nMore\n")
	require.NoError(t, store.Stage("docs/readme.md"))

	second, err := store.Commit("write_markdown: docs/readme.md")
	require.NoError(t, err)
	assert.Regexp(t, hexSHA, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, gitstore.ResolveHead(root))
}

func TestStage_MissingPathStagesDeletion(t *testing.T) {
	t.Parallel()

	store, root := newStore(t)

	writeWorktreeFile(t, root, "gone.md", "bye\n")
	require.NoError(t, store.Stage("gone.md"))

	first, err := store.Commit("create_markdown: gone.md")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.md")))
	require.NoError(t, store.Stage("gone.md"))

	second, err := store.Commit("delete_markdown: gone.md")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestStage_UntrackedMissingPathIgnored(t *testing.T) {
	t.Parallel()

	store, root := newStore(t)

	writeWorktreeFile(t, root, "kept.md", "keep\n")
	require.NoError(t, store.Stage("kept.md", "never-existed.md"))

	sha, err := store.Commit("create_markdown: kept.md")
	require.NoError(t, err)
	assert.Regexp(t, hexSHA, sha)
}

func TestRestoreHead_AfterCommit(t *testing.T) {
	t.Parallel()

	store, root := newStore(t)

	writeWorktreeFile(t, root, "a.md", "one\n")
	require.NoError(t, store.Stage("a.md"))

	first, err := store.Commit("create_markdown: a.md")
	require.NoError(t, err)

	before := gitstore.ReadHeadState(root)

	writeWorktreeFile(t, root, "a.md", "two\n")
	require.NoError(t, store.Stage("a.md"))

	_, err = store.Commit("write_markdown: a.md")
	require.NoError(t, err)

	gitstore.RestoreHead(root, before)
	assert.Equal(t, first, gitstore.ResolveHead(root))
}
