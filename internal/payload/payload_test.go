package payload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/mcperr"
)

func requireCode(t *testing.T, err error, code string) *mcperr.Error {
	t.Helper()

	require.Error(t, err)

	mcpErr, ok := mcperr.As(err)
	require.True(t, ok, "expected *mcperr.Error, got %T", err)
	assert.Equal(t, code, mcpErr.Code)

	return mcpErr
}

func TestEnsureObject_AcceptsMap(t *testing.T) {
	t.Parallel()

	obj, err := payload.EnsureObject(map[string]any{"path": "notes.md"})
	require.NoError(t, err)
	assert.Equal(t, "notes.md", obj["path"])
}

func TestEnsureObject_RejectsNonObject(t *testing.T) {
	t.Parallel()

	_, err := payload.EnsureObject([]any{"notes.md"})
	mcpErr := requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "array", mcpErr.Details["type"])
}

func TestRejectUnknown_AllAllowed(t *testing.T) {
	t.Parallel()

	p := map[string]any{"path": "a.md", "content": "x"}
	require.NoError(t, payload.RejectUnknown(p, "path", "content"))
}

func TestRejectUnknown_ReportsSortedFields(t *testing.T) {
	t.Parallel()

	p := map[string]any{"zeta": 1, "alpha": 2, "path": "a.md"}
	err := payload.RejectUnknown(p, "path")
	mcpErr := requireCode(t, err, "UNKNOWN_FIELD")
	assert.Equal(t, "Unknown fields are not allowed.", mcpErr.Message)
	assert.Equal(t, []string{"alpha", "zeta"}, mcpErr.Details["fields"])
}

func TestRequire_MissingField(t *testing.T) {
	t.Parallel()

	_, err := payload.Require(map[string]any{}, "path", "MISSING_PATH", "Path is required.")
	mcpErr := requireCode(t, err, "MISSING_PATH")
	assert.Equal(t, "Path is required.", mcpErr.Message)
	assert.Equal(t, []string{"path"}, mcpErr.Details["fields"])
}

func TestRequire_PresentField(t *testing.T) {
	t.Parallel()

	v, err := payload.Require(map[string]any{"path": "a.md"}, "path", "MISSING_PATH", "Path is required.")
	require.NoError(t, err)
	assert.Equal(t, "a.md", v)
}

func TestString_RejectsNonString(t *testing.T) {
	t.Parallel()

	_, err := payload.String("path", 12.0)
	mcpErr := requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "path must be a string.", mcpErr.Message)
	assert.Equal(t, "number", mcpErr.Details["type"])
}

func TestOptString(t *testing.T) {
	t.Parallel()

	s, ok, err := payload.OptString(map[string]any{"owner": "ana"}, "owner")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ana", s)

	_, ok, err = payload.OptString(map[string]any{}, "owner")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = payload.OptString(map[string]any{"owner": nil}, "owner")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = payload.OptString(map[string]any{"owner": 7.0}, "owner")
	requireCode(t, err, "INVALID_TYPE")
}

func TestOptBool(t *testing.T) {
	t.Parallel()

	b, ok, err := payload.OptBool(map[string]any{"recursive": true}, "recursive")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)

	_, ok, err = payload.OptBool(map[string]any{}, "recursive")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = payload.OptBool(map[string]any{"recursive": "yes"}, "recursive")
	mcpErr := requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "recursive must be a boolean.", mcpErr.Message)
}

func TestOptInt_IntegralFloat(t *testing.T) {
	t.Parallel()

	n, ok, err := payload.OptInt(map[string]any{"limit": 25.0}, "limit")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 25, n)
}

func TestOptInt_RejectsFractional(t *testing.T) {
	t.Parallel()

	_, _, err := payload.OptInt(map[string]any{"limit": 2.5}, "limit")
	mcpErr := requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "limit must be an integer.", mcpErr.Message)
}

func TestOptStringSlice(t *testing.T) {
	t.Parallel()

	tags, ok, err := payload.OptStringSlice(map[string]any{"tags": []any{"a", "b"}}, "tags")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, tags)

	_, _, err = payload.OptStringSlice(map[string]any{"tags": "a"}, "tags")
	mcpErr := requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "tags must be a list.", mcpErr.Message)

	_, _, err = payload.OptStringSlice(map[string]any{"tags": []any{"a", 1.0}}, "tags")
	mcpErr = requireCode(t, err, "INVALID_TYPE")
	assert.Equal(t, "tags entries must be strings.", mcpErr.Message)
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "null", payload.TypeName(nil))
	assert.Equal(t, "boolean", payload.TypeName(true))
	assert.Equal(t, "string", payload.TypeName("x"))
	assert.Equal(t, "number", payload.TypeName(1.0))
	assert.Equal(t, "array", payload.TypeName([]any{}))
	assert.Equal(t, "object", payload.TypeName(map[string]any{}))
}

func TestParseOperation_Valid(t *testing.T) {
	t.Parallel()

	op, err := payload.ParseOperation(map[string]any{
		"type":    "replace_section",
		"content": "new body\n",
		"target":  "## Notes",
	})
	require.NoError(t, err)
	assert.Equal(t, "replace_section", op.Type)
	assert.Equal(t, "new body\n", op.Content)
	assert.Equal(t, "## Notes", op.Target)
}

func TestParseOperation_MissingType(t *testing.T) {
	t.Parallel()

	_, err := payload.ParseOperation(map[string]any{"content": "x"})
	mcpErr := requireCode(t, err, "MISSING_OPERATION_TYPE")
	assert.Equal(t, "Operation type is required.", mcpErr.Message)
}

func TestParseOperation_MissingContent(t *testing.T) {
	t.Parallel()

	_, err := payload.ParseOperation(map[string]any{"type": "append"})
	mcpErr := requireCode(t, err, "MISSING_CONTENT")
	assert.Equal(t, "Operation content is required.", mcpErr.Message)
}

func TestParseOperation_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := payload.ParseOperation(map[string]any{
		"type":    "append",
		"content": "x",
		"mode":    "force",
	})
	mcpErr := requireCode(t, err, "UNKNOWN_FIELD")
	assert.Equal(t, []string{"mode"}, mcpErr.Details["fields"])
}

func TestParseOperation_NonObject(t *testing.T) {
	t.Parallel()

	_, err := payload.ParseOperation("append")
	requireCode(t, err, "INVALID_TYPE")
}
