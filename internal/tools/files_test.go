package tools_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDirectory(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/a.md", "a")
	writeFile(t, ctx, "docs/sub/b.md", "b")

	data := callOK(t, "list_directory", ctx, map[string]any{"path": "docs"})
	assert.Equal(t, []string{"docs/a.md"}, data["files"])
	assert.Equal(t, []string{"docs/sub"}, data["directories"])

	recursive := callOK(t, "list_directory", ctx, map[string]any{"path": "docs", "recursive": true})
	assert.Equal(t, []string{"docs/a.md", "docs/sub/b.md"}, recursive["files"])

	filesOnly := callOK(t, "list_directory", ctx, map[string]any{"path": "docs", "include_dirs": false})
	assert.Empty(t, filesOnly["directories"])

	callErr(t, "list_directory", ctx, map[string]any{"path": "missing"}, "FILE_NOT_FOUND")
	callErr(t, "list_directory", ctx, map[string]any{"path": "docs/a.md"}, "INVALID_PATH")
}

func TestReadFileMetadata(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/a.md", "hello")

	data := callOK(t, "read_file_metadata", ctx, map[string]any{"path": "docs/a.md"})
	assert.Equal(t, "docs/a.md", data["path"])
	assert.Equal(t, false, data["isDir"])
	assert.Equal(t, true, data["isFile"])
	assert.EqualValues(t, 5, data["sizeBytes"])
	assert.NotEmpty(t, data["lastModified"])

	dirData := callOK(t, "read_file_metadata", ctx, map[string]any{"path": "docs"})
	assert.Equal(t, true, dirData["isDir"])

	callErr(t, "read_file_metadata", ctx, map[string]any{"path": "missing"}, "FILE_NOT_FOUND")
}

func TestPreviewMovePath(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "src/a.md", "a")
	writeFile(t, ctx, "src/deep/b.md", "b")
	writeFile(t, ctx, "dst/a.md", "existing")

	data := callOK(t, "preview_move_path", ctx, map[string]any{
		"from_path": "src",
		"to_path":   "dst",
	})

	mappings := data["mappings"].([]map[string]string)
	require.Len(t, mappings, 2)

	byFrom := map[string]string{}
	for _, mapping := range mappings {
		byFrom[mapping["from"]] = mapping["to"]
	}

	assert.Equal(t, "dst/a.md", byFrom["src/a.md"])
	assert.Equal(t, "dst/deep/b.md", byFrom["src/deep/b.md"])

	assert.Equal(t, []string{"dst/a.md"}, data["conflicts"])

	summary := data["summary"].(map[string]any)
	assert.Equal(t, 2, summary["files"])
}

func TestPreviewCopyPath_SingleFileIntoDir(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "src/a.md", "a")
	writeFile(t, ctx, "dst/.gitkeep", "")

	data := callOK(t, "preview_copy_path", ctx, map[string]any{
		"from_path": "src/a.md",
		"to_path":   "dst",
	})

	mappings := data["mappings"].([]map[string]string)
	require.Len(t, mappings, 1)
	assert.Equal(t, "src/a.md", mappings[0]["from"])
	assert.Equal(t, "dst/a.md", mappings[0]["to"])
	assert.Empty(t, data["conflicts"])
}

func TestPreviewTransfer_Errors(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)

	callErr(t, "preview_move_path", ctx, map[string]any{"from_path": "a"}, "MISSING_PATH")
	callErr(t, "preview_move_path", ctx, map[string]any{
		"from_path": "missing",
		"to_path":   "dst",
	}, "FILE_NOT_FOUND")
	callErr(t, "preview_move_path", ctx, map[string]any{
		"from_path": "../out",
		"to_path":   "dst",
	}, "PATH_TRAVERSAL")
}

func TestPreviewDeletePath(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	writeFile(t, ctx, "docs/a.md", "a")
	writeFile(t, ctx, "docs/b.md", "b")

	data := callOK(t, "preview_delete_path", ctx, map[string]any{"path": "docs", "recursive": true})
	assert.ElementsMatch(t, []string{"docs/a.md", "docs/b.md"}, data["paths"])

	summary := data["summary"].(map[string]any)
	assert.Equal(t, 2, summary["files"])

	callErr(t, "preview_delete_path", ctx, map[string]any{"path": "docs"}, "RECURSIVE_REQUIRED")
	callErr(t, "preview_delete_path", ctx, map[string]any{"path": "missing"}, "FILE_NOT_FOUND")
}
