package atomicfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/atomicfile"
)

func TestWriteText_CreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, atomicfile.WriteText(path, "hello\n"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestWriteText_ReplacesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	require.NoError(t, atomicfile.WriteText(path, "new"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestWriteBytes_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, atomicfile.WriteBytes(path, []byte{0x00, 0x01, 0x02}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.bin", entries[0].Name())
}

func TestWriteBytes_MissingDirectoryFails(t *testing.T) {
	t.Parallel()

	err := atomicfile.WriteBytes(filepath.Join(t.TempDir(), "missing", "x.md"), []byte("x"))
	require.Error(t, err)
}
