package toolspec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/toolspec"
)

const catalogueSize = 41

func TestLoad_ValidCatalogue(t *testing.T) {
	t.Parallel()

	tools, err := toolspec.Load()
	require.NoError(t, err)
	require.Len(t, tools, catalogueSize)

	for _, tool := range tools {
		assert.Equal(t, "function", tool["type"])

		function, ok := tool["function"].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, function["name"])
		assert.NotEmpty(t, function["description"])

		parameters, ok := function["parameters"].(map[string]any)
		require.True(t, ok, "tool %v lacks parameters", function["name"])
		assert.Equal(t, "object", parameters["type"])
	}
}

func TestNames_UniqueAndStable(t *testing.T) {
	t.Parallel()

	names, err := toolspec.Names()
	require.NoError(t, err)
	require.Len(t, names, catalogueSize)

	seen := map[string]struct{}{}
	for _, name := range names {
		_, dup := seen[name]
		assert.False(t, dup, "duplicate tool name %s", name)
		seen[name] = struct{}{}
	}

	for _, name := range []string{
		"read_markdown",
		"write_markdown",
		"create_task",
		"digest_snapshot",
		"bootstrap_user_library",
		"complete_topic_onboarding",
	} {
		assert.Contains(t, names, name)
	}
}
