package tools_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/pkg/mcperr"
)

func newContext(t *testing.T) *tools.Context {
	t.Helper()

	return &tools.Context{LibraryRoot: t.TempDir()}
}

func writeFile(t *testing.T, ctx *tools.Context, rel, content string) {
	t.Helper()

	abs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func call(t *testing.T, name string, ctx *tools.Context, p map[string]any) (map[string]any, error) {
	t.Helper()

	handler, ok := tools.Lookup(name)
	require.True(t, ok, "tool %s not registered", name)

	return handler(ctx, p)
}

func callOK(t *testing.T, name string, ctx *tools.Context, p map[string]any) map[string]any {
	t.Helper()

	data, err := call(t, name, ctx, p)
	require.NoError(t, err)

	return data
}

func callErr(t *testing.T, name string, ctx *tools.Context, p map[string]any, code string) *mcperr.Error {
	t.Helper()

	_, err := call(t, name, ctx, p)
	require.Error(t, err)

	mcpErr, ok := mcperr.As(err)
	require.True(t, ok, "expected *mcperr.Error, got %T", err)
	assert.Equal(t, code, mcpErr.Code)

	return mcpErr
}

func TestReadMarkdown(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "notes/today.md", "# Today\n")

	data := callOK(t, "read_markdown", ctx, map[string]any{"path": "notes/today.md"})
	assert.Equal(t, "# Today\n", data["content"])

	metadata, ok := data["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes/today.md", metadata["path"])
	assert.EqualValues(t, 8, metadata["sizeBytes"])
}

func TestReadMarkdown_Errors(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "data.txt", "plain")
	writeFile(t, ctx, "bad.md", string([]byte{0xff, 0xfe, 0x01}))

	callErr(t, "read_markdown", ctx, map[string]any{}, "MISSING_PATH")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "missing.md"}, "FILE_NOT_FOUND")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "data.txt"}, "NOT_MARKDOWN")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "../escape.md"}, "PATH_TRAVERSAL")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "/abs.md"}, "ABSOLUTE_PATH")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "bad.md"}, "INVALID_ENCODING")
	callErr(t, "read_markdown", ctx, map[string]any{"path": "a.md", "extra": 1}, "UNKNOWN_FIELD")
}

func TestListMarkdownFiles(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/a.md", "a")
	writeFile(t, ctx, "docs/sub/b.md", "b")
	writeFile(t, ctx, "docs/skip.txt", "nope")

	data := callOK(t, "list_markdown_files", ctx, map[string]any{"path": "docs"})
	assert.Equal(t, []string{"docs/a.md", "docs/sub/b.md"}, data["files"])

	callErr(t, "list_markdown_files", ctx, map[string]any{"path": "missing"}, "FILE_NOT_FOUND")
	callErr(t, "list_markdown_files", ctx, map[string]any{"path": "docs/a.md"}, "INVALID_PATH")
}

func TestSearchMarkdown(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/one.md", "alpha\nneedle here\nomega\n")
	writeFile(t, ctx, "docs/two.md", "nothing\n")

	data := callOK(t, "search_markdown", ctx, map[string]any{"query": "needle"})
	results, ok := data["results"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/one.md", results[0]["path"])

	matches, ok := results[0]["matches"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0]["line"])
	assert.Equal(t, "needle here", matches[0]["snippet"])
}

func TestSearchMarkdown_ScopedAndInvalid(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/one.md", "needle\n")
	writeFile(t, ctx, "other/two.md", "needle\n")
	writeFile(t, ctx, "plain.txt", "needle\n")

	data := callOK(t, "search_markdown", ctx, map[string]any{"query": "needle", "path": "docs"})
	results := data["results"].([]map[string]any)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/one.md", results[0]["path"])

	callErr(t, "search_markdown", ctx, map[string]any{}, "MISSING_QUERY")
	callErr(t, "search_markdown", ctx, map[string]any{"query": "  "}, "INVALID_QUERY")
	callErr(t, "search_markdown", ctx, map[string]any{"query": "x", "path": "missing"}, "FILE_NOT_FOUND")
	callErr(t, "search_markdown", ctx, map[string]any{"query": "x", "path": "plain.txt"}, "NOT_MARKDOWN")
}

func TestPreviewMarkdownChange(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "plan.md", "# Plan\n\n## Steps\none\n")

	data := callOK(t, "preview_markdown_change", ctx, map[string]any{
		"path": "plan.md",
		"operation": map[string]any{
			"type":    "replace_section",
			"target":  "## Steps",
			"content": "## Steps\ntwo\nthree\n",
		},
	})

	diff, ok := data["diff"].(string)
	require.True(t, ok)
	assert.Contains(t, diff, "-one")
	assert.Contains(t, diff, "+two")
	assert.Equal(t, "replace_section (## Steps): +2 -1 lines", data["summary"])
	assert.Equal(t, "low", data["riskLevel"])

	content, err := os.ReadFile(filepath.Join(ctx.LibraryRoot, "plan.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n\n## Steps\none\n", string(content), "preview must not touch disk")
}

func TestPreviewBulkChanges(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "a.md", "line\n")

	data := callOK(t, "preview_bulk_changes", ctx, map[string]any{
		"changes": []any{
			map[string]any{
				"path":    "new.md",
				"action":  "create",
				"content": "fresh\ncontent\n",
			},
			map[string]any{
				"path":   "a.md",
				"action": "delete",
			},
		},
	})

	results := data["changes"].([]map[string]any)
	require.Len(t, results, 2)
	assert.Equal(t, "create file", results[0]["summary"])
	assert.Equal(t, "delete file", results[1]["summary"])

	summary := data["summary"].(map[string]any)
	assert.Equal(t, 2, summary["added"])
	assert.Equal(t, 1, summary["removed"])
	assert.Equal(t, "low", summary["riskLevel"])
}

func TestPreviewBulkChanges_Errors(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "a.md", "line\n")

	callErr(t, "preview_bulk_changes", ctx, map[string]any{}, "MISSING_CHANGES")
	callErr(t, "preview_bulk_changes", ctx, map[string]any{"changes": "nope"}, "INVALID_TYPE")
	callErr(t, "preview_bulk_changes", ctx, map[string]any{
		"changes": []any{map[string]any{"path": "a.md", "action": "merge"}},
	}, "INVALID_ACTION")
	callErr(t, "preview_bulk_changes", ctx, map[string]any{
		"changes": []any{map[string]any{"path": "a.md", "action": "create", "content": "x"}},
	}, "PATH_EXISTS")
	callErr(t, "preview_bulk_changes", ctx, map[string]any{
		"changes": []any{map[string]any{"action": "create"}},
	}, "MISSING_FIELDS")
}
