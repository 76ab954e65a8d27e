package mcp_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/internal/mcp"
	"github.com/braindrive/library/internal/toolspec"
)

func TestNewServer_RegistersCatalogue(t *testing.T) {
	t.Parallel()

	srv, err := mcp.NewServer(mcp.ServerDeps{LibraryRoot: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, srv)

	declared, err := toolspec.Names()
	require.NoError(t, err)

	names := srv.ListToolNames()
	require.Len(t, names, len(declared))
	assert.True(t, sort.StringsAreSorted(names))

	sort.Strings(declared)
	assert.Equal(t, declared, names)
}
