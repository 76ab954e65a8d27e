package journal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/journal"
)

func TestAppendAndRead(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	require.NoError(t, journal.Append(root, journal.NewEntry("create", "notes.md", "created", "abc123")))
	require.NoError(t, journal.Append(root, journal.NewEntry("write", "notes.md", "append", "def456")))

	entries, err := journal.Read(root, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "create", entries[0]["operation"])
	assert.Equal(t, "notes.md", entries[0]["path"])
	assert.Equal(t, "created", entries[0]["summary"])
	assert.Equal(t, "abc123", entries[0]["commitSha"])
	assert.Equal(t, "write", entries[1]["operation"])
}

func TestRead_MissingLogIsEmpty(t *testing.T) {
	t.Parallel()

	entries, err := journal.Read(t.TempDir(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRead_LimitKeepsNewest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	for _, op := range []string{"one", "two", "three"} {
		require.NoError(t, journal.Append(root, journal.NewEntry(op, "a.md", "", "")))
	}

	entries, err := journal.Read(root, nil, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0]["operation"])
	assert.Equal(t, "three", entries[1]["operation"])
}

func TestRead_SinceFiltersOldEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	old := journal.Entry{
		Timestamp: "2020-01-01T00:00:00.000000+00:00",
		Operation: "old",
		Path:      "a.md",
	}
	require.NoError(t, journal.Append(root, old))
	require.NoError(t, journal.Append(root, journal.NewEntry("new", "b.md", "", "")))

	since := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	entries, err := journal.Read(root, &since, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0]["operation"])
}

func TestRead_SkipsMalformedLinesKeepsUnparseableTimestamps(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	raw := "not json\n" +
		`{"timestamp":"garbage","operation":"odd","path":"x.md","summary":"","commitSha":""}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, journal.Filename), []byte(raw), 0o644))

	since := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	entries, err := journal.Read(root, &since, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "odd", entries[0]["operation"])
}

func TestNewEntry_StampsUTC(t *testing.T) {
	t.Parallel()

	entry := journal.NewEntry("write", "a.md", "s", "sha")

	parsed, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}
