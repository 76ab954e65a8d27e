package gitstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/gitstore"
)

const (
	shaA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	shaB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// fakeGitDir lays out a minimal .git directory by hand so HEAD parsing can
// be tested without libgit2.
func fakeGitDir(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "refs", "heads"), 0o755))

	return root
}

func writeGitFile(t *testing.T, root string, rel, content string) {
	t.Helper()

	abs := filepath.Join(root, ".git", filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestReadHeadState_SymbolicRef(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", "ref: refs/heads/main\n")
	writeGitFile(t, root, "refs/heads/main", shaA+"\n")

	state := gitstore.ReadHeadState(root)
	assert.Equal(t, shaA, state.Commit)
	assert.Equal(t, filepath.Join(root, ".git", "refs", "heads", "main"), state.RefPath)
}

func TestReadHeadState_Detached(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", shaB+"\n")

	state := gitstore.ReadHeadState(root)
	assert.Equal(t, shaB, state.Commit)
	assert.Empty(t, state.RefPath)
}

func TestReadHeadState_PackedRefs(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", "ref: refs/heads/main\n")
	writeGitFile(t, root, "packed-refs",
		"# pack-refs with: peeled fully-peeled sorted\n"+
			shaB+" refs/heads/other\n"+
			shaA+" refs/heads/main\n"+
			"^"+shaB+"\n")

	state := gitstore.ReadHeadState(root)
	assert.Equal(t, shaA, state.Commit)
}

func TestReadHeadState_UnbornBranch(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", "ref: refs/heads/main\n")

	state := gitstore.ReadHeadState(root)
	assert.Empty(t, state.Commit)
	assert.NotEmpty(t, state.RefPath)
}

func TestReadHeadState_NoRepository(t *testing.T) {
	t.Parallel()

	state := gitstore.ReadHeadState(t.TempDir())
	assert.Empty(t, state.Commit)
	assert.Empty(t, state.RefPath)
}

func TestRestoreHead_RewindsRef(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", "ref: refs/heads/main\n")
	writeGitFile(t, root, "refs/heads/main", shaA+"\n")

	before := gitstore.ReadHeadState(root)

	// A commit lands, advancing the ref.
	writeGitFile(t, root, "refs/heads/main", shaB+"\n")
	require.Equal(t, shaB, gitstore.ResolveHead(root))

	gitstore.RestoreHead(root, before)
	assert.Equal(t, shaA, gitstore.ResolveHead(root))
}

func TestRestoreHead_UnbornDropsRef(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", "ref: refs/heads/main\n")

	before := gitstore.ReadHeadState(root)

	// The first commit creates the ref file; restoring the unborn state
	// must remove it again.
	writeGitFile(t, root, "refs/heads/main", shaA+"\n")

	gitstore.RestoreHead(root, before)
	assert.Empty(t, gitstore.ResolveHead(root))
	assert.NoFileExists(t, filepath.Join(root, ".git", "refs", "heads", "main"))
}

func TestRestoreHead_Detached(t *testing.T) {
	t.Parallel()

	root := fakeGitDir(t)
	writeGitFile(t, root, "HEAD", shaA+"\n")

	before := gitstore.ReadHeadState(root)
	writeGitFile(t, root, "HEAD", shaB+"\n")

	gitstore.RestoreHead(root, before)
	assert.Equal(t, shaA, gitstore.ResolveHead(root))
}
