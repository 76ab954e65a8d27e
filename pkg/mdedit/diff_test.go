package mdedit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/mdedit"
)

func TestUnifiedDiff_Identical(t *testing.T) {
	t.Parallel()

	diff, added, removed := mdedit.UnifiedDiff("a\nb\n", "a\nb\n", "notes.md")
	assert.Empty(t, diff)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestUnifiedDiff_SingleLineChange(t *testing.T) {
	t.Parallel()

	diff, added, removed := mdedit.UnifiedDiff("a\nb\nc\n", "a\nB\nc\n", "notes.md")
	require.NotEmpty(t, diff)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)

	lines := strings.Split(diff, "\n")
	assert.Equal(t, "--- notes.md", lines[0])
	assert.Equal(t, "+++ notes.md", lines[1])
	assert.Contains(t, lines, "-b")
	assert.Contains(t, lines, "+B")
	assert.Contains(t, lines, " a")
	assert.Contains(t, lines, " c")
}

func TestUnifiedDiff_PureAddition(t *testing.T) {
	t.Parallel()

	diff, added, removed := mdedit.UnifiedDiff("", "one\ntwo\n", "new.md")
	require.NotEmpty(t, diff)
	assert.Equal(t, 2, added)
	assert.Zero(t, removed)
	assert.Contains(t, diff, "+one")
	assert.Contains(t, diff, "+two")
}

func TestUnifiedDiff_PureRemoval(t *testing.T) {
	t.Parallel()

	diff, added, removed := mdedit.UnifiedDiff("one\ntwo\n", "", "gone.md")
	require.NotEmpty(t, diff)
	assert.Zero(t, added)
	assert.Equal(t, 2, removed)
	assert.Contains(t, diff, "-one")
	assert.Contains(t, diff, "-two")
}

func TestUnifiedDiff_DistantChangesSplitIntoHunks(t *testing.T) {
	t.Parallel()

	var before, after []string
	for i := 0; i < 30; i++ {
		line := string(rune('a' + i%26))
		before = append(before, line)
		after = append(after, line)
	}

	after[0] = "CHANGED-TOP"
	after[29] = "CHANGED-BOTTOM"

	diff, added, removed := mdedit.UnifiedDiff(
		strings.Join(before, "\n")+"\n",
		strings.Join(after, "\n")+"\n",
		"big.md",
	)
	require.NotEmpty(t, diff)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, strings.Count(diff, "@@ -"))
}

func TestUnifiedDiff_TrailingNewlineInsensitiveLineCount(t *testing.T) {
	t.Parallel()

	diff, added, removed := mdedit.UnifiedDiff("a\nb", "a\nb\n", "notes.md")
	assert.Empty(t, diff)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}
