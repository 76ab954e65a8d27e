package tools_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/journal"
	"github.com/braindrive/library/internal/tasks"
	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/pkg/gitstore"
)

func readLibraryFile(t *testing.T, ctx *tools.Context, rel string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(ctx.LibraryRoot, filepath.FromSlash(rel)))
	require.NoError(t, err)

	return string(data)
}

func journalEntries(t *testing.T, ctx *tools.Context) []map[string]any {
	t.Helper()

	entries, err := journal.Read(ctx.LibraryRoot, nil, 100)
	require.NoError(t, err)

	return entries
}

func TestWriteMarkdown_AppendCommitsAndJournals(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/readme.md", "Intro\n")

	data := callOK(t, "write_markdown", ctx, map[string]any{
		"path": "docs/readme.md",
		"operation": map[string]any{
			"type":    "append",
			"content": "More details\n",
		},
	})

	assert.Equal(t, true, data["success"])

	sha, ok := data["commitSha"].(string)
	require.True(t, ok)
	assert.Regexp(t, "^[0-9a-f]{40}$", sha)
	assert.Equal(t, sha, gitstore.ResolveHead(ctx.LibraryRoot))

	assert.Equal(t, "Intro\nMore details\n", readLibraryFile(t, ctx, "docs/readme.md"))

	entries := journalEntries(t, ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, "write_markdown", entries[0]["operation"])
	assert.Equal(t, "docs/readme.md", entries[0]["path"])
	assert.Equal(t, "append", entries[0]["summary"])
	assert.Equal(t, sha, entries[0]["commitSha"])
}

func TestEditMarkdown_ReplaceSectionLeavesSiblings(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "doc.md", "# Doc\n\n## Scope\nOld scope.\n\n## Details\nOther.\n")

	callOK(t, "edit_markdown", ctx, map[string]any{
		"path": "doc.md",
		"operation": map[string]any{
			"type":    "replace_section",
			"target":  "## Scope",
			"content": "## Scope\nNew scope.\n\nMore here.\n\n",
		},
	})

	content := readLibraryFile(t, ctx, "doc.md")
	assert.Contains(t, content, "New scope.")
	assert.NotContains(t, content, "Old scope.")
	assert.Contains(t, content, "## Details\nOther.\n")
}

func TestEditMarkdown_SectionNotFound(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "doc.md", "# Doc\n")

	callErr(t, "edit_markdown", ctx, map[string]any{
		"path": "doc.md",
		"operation": map[string]any{
			"type":    "replace_section",
			"target":  "## Absent",
			"content": "## Absent\nx\n",
		},
	}, "SECTION_NOT_FOUND")

	assert.Empty(t, gitstore.ResolveHead(ctx.LibraryRoot), "validation failures must not commit")
}

func TestCreateAndDeleteMarkdown(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)

	created := callOK(t, "create_markdown", ctx, map[string]any{
		"path":    "notes/new.md",
		"content": "# New\n",
	})
	assert.Equal(t, true, created["success"])
	assert.Equal(t, "# New\n", readLibraryFile(t, ctx, "notes/new.md"))

	callErr(t, "create_markdown", ctx, map[string]any{
		"path":    "notes/new.md",
		"content": "again",
	}, "PATH_EXISTS")

	callErr(t, "delete_markdown", ctx, map[string]any{"path": "notes/new.md"}, "CONFIRM_REQUIRED")

	deleted := callOK(t, "delete_markdown", ctx, map[string]any{
		"path":    "notes/new.md",
		"confirm": true,
	})
	assert.Equal(t, true, deleted["success"])
	assert.NoFileExists(t, filepath.Join(ctx.LibraryRoot, "notes", "new.md"))
	assert.NotEqual(t, created["commitSha"], deleted["commitSha"])

	entries := journalEntries(t, ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "create_markdown", entries[0]["operation"])
	assert.Equal(t, "delete_markdown", entries[1]["operation"])
}

func TestWriteMarkdown_JournalFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "doc.md", "before\n")

	// A directory where the activity log lives makes the append fail
	// after the commit has already landed.
	require.NoError(t, os.Mkdir(journal.Path(ctx.LibraryRoot), 0o755))

	headBefore := gitstore.ResolveHead(ctx.LibraryRoot)

	callErr(t, "write_markdown", ctx, map[string]any{
		"path": "doc.md",
		"operation": map[string]any{
			"type":    "append",
			"content": "after\n",
		},
	}, "LOG_ERROR")

	assert.Equal(t, "before\n", readLibraryFile(t, ctx, "doc.md"))
	assert.Equal(t, headBefore, gitstore.ResolveHead(ctx.LibraryRoot))
}

func TestWriteMarkdown_CommitFailureRollsBack(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "doc.md", "keep\n")

	callOK(t, "write_markdown", ctx, map[string]any{
		"path": "doc.md",
		"operation": map[string]any{
			"type":    "append",
			"content": "first\n",
		},
	})

	headBefore := gitstore.ResolveHead(ctx.LibraryRoot)
	contentBefore := readLibraryFile(t, ctx, "doc.md")

	// Replacing the index with a directory breaks staging.
	indexPath := filepath.Join(ctx.LibraryRoot, ".git", "index")
	require.NoError(t, os.Remove(indexPath))
	require.NoError(t, os.Mkdir(indexPath, 0o755))

	callErr(t, "write_markdown", ctx, map[string]any{
		"path": "doc.md",
		"operation": map[string]any{
			"type":    "append",
			"content": "second\n",
		},
	}, "GIT_ERROR")

	assert.Equal(t, contentBefore, readLibraryFile(t, ctx, "doc.md"))
	assert.Equal(t, headBefore, gitstore.ResolveHead(ctx.LibraryRoot))
	assert.Len(t, journalEntries(t, ctx), 1, "failed mutation must not journal")
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	now := time.Date(2026, time.August, 24, 12, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return now }

	created := callOK(t, "create_task", ctx, map[string]any{
		"title":    "Write tests",
		"project":  "demo",
		"priority": "p1",
	})

	task, ok := created["task"].(*tasks.Task)
	require.True(t, ok)
	assert.Equal(t, 1, task.ID)
	assert.Contains(t, readLibraryFile(t, ctx, "pulse/index.md"), "- [ ] T-001 | p1 |")

	updated := callOK(t, "update_task", ctx, map[string]any{
		"id":     1,
		"fields": map[string]any{"priority": "p0"},
	})

	task, ok = updated["task"].(*tasks.Task)
	require.True(t, ok)
	require.NotNil(t, task.Priority)
	assert.Equal(t, "p0", *task.Priority)

	callOK(t, "complete_task", ctx, map[string]any{"id": 1})
	assert.NotContains(t, readLibraryFile(t, ctx, "pulse/index.md"), "T-001")
	assert.Contains(t, readLibraryFile(t, ctx, "pulse/completed/2026-08.md"), "- [x] T-001")

	callErr(t, "complete_task", ctx, map[string]any{"id": 1}, "TASK_NOT_FOUND")

	reopened := callOK(t, "reopen_task", ctx, map[string]any{"id": 1})

	task, ok = reopened["task"].(*tasks.Task)
	require.True(t, ok)
	assert.Equal(t, " ", task.Status)
	assert.Contains(t, readLibraryFile(t, ctx, "pulse/index.md"), "- [ ] T-001")
	assert.NotContains(t, readLibraryFile(t, ctx, "pulse/completed/2026-08.md"), "T-001")

	// Ids never recycle across the open ledger and completion logs.
	next := callOK(t, "create_task", ctx, map[string]any{"title": "Another"})
	task, ok = next["task"].(*tasks.Task)
	require.True(t, ok)
	assert.Equal(t, 2, task.ID)
}

func TestBootstrapUserLibrary_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)

	first := callOK(t, "bootstrap_user_library", ctx, map[string]any{})
	assert.Equal(t, true, first["changed"])
	assert.FileExists(t, filepath.Join(ctx.LibraryRoot, "AGENT.md"))
	assert.FileExists(t, filepath.Join(ctx.LibraryRoot, ".braindrive", "schema-version.json"))
	assert.FileExists(t, filepath.Join(ctx.LibraryRoot, "life", "finances", "interview.md"))
	assert.FileExists(t, filepath.Join(ctx.LibraryRoot, "pulse", "index.md"))

	second := callOK(t, "bootstrap_user_library", ctx, map[string]any{})
	assert.Equal(t, false, second["changed"])
	assert.Empty(t, second["changed_paths"])
	assert.Nil(t, second["commitSha"])
}

func TestRollupDigestPeriod_Week(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	now := time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return now }

	// Both dates fall in ISO week 2026-W34.
	writeFile(t, ctx, "digest/daily/2026/08/2026-08-18.md", "# Tuesday\n\nDid things.\n")
	writeFile(t, ctx, "digest/daily/2026/08/2026-08-19.md", "# Wednesday\n\nMore things.\n")
	writeFile(t, ctx, "digest/daily/2026/08/notes.md", "not a daily entry\n")

	data := callOK(t, "rollup_digest_period", ctx, map[string]any{
		"period":      "week",
		"target_date": "2026-08-20",
	})

	assert.Equal(t, "2026-W34", data["label"])
	assert.Equal(t, "digest/weekly/2026/2026-W34.md", data["path"])
	assert.Equal(t, 2, data["daily_count"])
	assert.Equal(t, true, data["changed"])
	assert.Regexp(t, "^[0-9a-f]{40}$", data["commitSha"])

	weekly := readLibraryFile(t, ctx, "digest/weekly/2026/2026-W34.md")
	assert.Contains(t, weekly, "### 2026-08-18 (digest/daily/2026/08/2026-08-18.md)")
	assert.Contains(t, weekly, "Did things.")
	assert.Contains(t, weekly, "More things.")
	assert.NotContains(t, weekly, "not a daily entry")

	state := readLibraryFile(t, ctx, "digest/_meta/rollup-state.json")
	assert.Contains(t, state, `"last_weekly_rollup"`)
	assert.Contains(t, state, `"last_daily_ingest": "2026-08-19"`)

	require.Len(t, journalEntries(t, ctx), 1)

	// Re-running with identical inputs changes nothing and commits nothing.
	again := callOK(t, "rollup_digest_period", ctx, map[string]any{
		"period":      "week",
		"target_date": "2026-08-20",
	})
	assert.Equal(t, false, again["changed"])
	assert.Nil(t, again["commitSha"])
	assert.Len(t, journalEntries(t, ctx), 1)
}
