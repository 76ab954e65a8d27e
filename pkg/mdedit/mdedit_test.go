package mdedit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
)

const sampleDoc = `# Title
intro
## A
a1
a2
## B
b1
`

func requireCode(t *testing.T, err error, code string) *mcperr.Error {
	t.Helper()

	require.Error(t, err)

	mcpErr, ok := mcperr.As(err)
	require.True(t, ok, "expected *mcperr.Error, got %T", err)
	assert.Equal(t, code, mcpErr.Code)

	return mcpErr
}

func TestApplyWrite_Append(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyWrite("existing", mdedit.Operation{Type: mdedit.OpAppend, Content: "more"})
	require.NoError(t, err)
	assert.Equal(t, "existing\nmore", out)
}

func TestApplyWrite_Prepend(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyWrite("existing\n", mdedit.Operation{Type: mdedit.OpPrepend, Content: "header\n"})
	require.NoError(t, err)
	assert.Equal(t, "header\nexisting\n", out)
}

func TestApplyWrite_RejectsSectionOp(t *testing.T) {
	t.Parallel()

	_, err := mdedit.ApplyWrite("x", mdedit.Operation{Type: mdedit.OpReplaceSection, Target: "## A"})
	requireCode(t, err, "INVALID_OPERATION")
}

func TestApplyEdit_ReplaceSection(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpReplaceSection,
		Target:  "## A",
		Content: "## A\nrewritten\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title\nintro\n## A\nrewritten\n## B\nb1\n", out)
}

func TestApplyEdit_InsertBefore(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpInsertBefore,
		Target:  "## B",
		Content: "bridge\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title\nintro\n## A\na1\na2\nbridge\n## B\nb1\n", out)
}

func TestApplyEdit_InsertAfter(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpInsertAfter,
		Target:  "## A",
		Content: "a3\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title\nintro\n## A\na1\na2\na3\n## B\nb1\n", out)
}

func TestApplyEdit_SectionRunsToEOF(t *testing.T) {
	t.Parallel()

	out, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpReplaceSection,
		Target:  "## B",
		Content: "## B\nfresh\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Title\nintro\n## A\na1\na2\n## B\nfresh\n", out)
}

func TestApplyEdit_MissingTarget(t *testing.T) {
	t.Parallel()

	_, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{Type: mdedit.OpReplaceSection, Content: "x"})
	requireCode(t, err, "MISSING_TARGET")
}

func TestApplyEdit_TargetNotAHeading(t *testing.T) {
	t.Parallel()

	_, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpReplaceSection,
		Target:  "plain text",
		Content: "x",
	})
	requireCode(t, err, "INVALID_TARGET")
}

func TestApplyEdit_SectionNotFound(t *testing.T) {
	t.Parallel()

	_, err := mdedit.ApplyEdit(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpReplaceSection,
		Target:  "## Missing",
		Content: "x",
	})
	mcpErr := requireCode(t, err, "SECTION_NOT_FOUND")
	assert.Equal(t, "## Missing", mcpErr.Details["target"])
}

func TestApplyPreview_MatchesApplyPaths(t *testing.T) {
	t.Parallel()

	appended, err := mdedit.ApplyPreview("a\n", mdedit.Operation{Type: mdedit.OpAppend, Content: "b\n"})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", appended)

	edited, err := mdedit.ApplyPreview(sampleDoc, mdedit.Operation{
		Type:    mdedit.OpInsertAfter,
		Target:  "## A",
		Content: "a3\n",
	})
	require.NoError(t, err)
	assert.Contains(t, edited, "a3\n## B")

	_, err = mdedit.ApplyPreview("x", mdedit.Operation{Type: "rewrite"})
	requireCode(t, err, "INVALID_OPERATION")
}

func TestJoinWithNewline(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb", mdedit.JoinWithNewline("a", "b"))
	assert.Equal(t, "a\nb", mdedit.JoinWithNewline("a\n", "b"))
	assert.Equal(t, "a\nb", mdedit.JoinWithNewline("a", "\nb"))
	assert.Equal(t, "b", mdedit.JoinWithNewline("", "b"))
	assert.Equal(t, "a", mdedit.JoinWithNewline("a", ""))
}

func TestOperationPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, mdedit.IsWriteOp(mdedit.OpAppend))
	assert.True(t, mdedit.IsWriteOp(mdedit.OpPrepend))
	assert.False(t, mdedit.IsWriteOp(mdedit.OpReplaceSection))

	assert.True(t, mdedit.IsSectionOp(mdedit.OpInsertBefore))
	assert.False(t, mdedit.IsSectionOp(mdedit.OpAppend))

	assert.True(t, mdedit.IsPreviewOp(mdedit.OpAppend))
	assert.True(t, mdedit.IsPreviewOp(mdedit.OpInsertAfter))
	assert.False(t, mdedit.IsPreviewOp("rewrite"))
}

func TestActivitySummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "append", mdedit.ActivitySummary(mdedit.Operation{Type: "append"}))
	assert.Equal(t, "replace_section (## A)",
		mdedit.ActivitySummary(mdedit.Operation{Type: "replace_section", Target: "## A"}))
}

func TestPreviewSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "append", mdedit.PreviewSummary("append", "", 0, 0))
	assert.Equal(t, "append: +3 -0 lines", mdedit.PreviewSummary("append", "", 3, 0))
	assert.Equal(t, "replace_section (## A): +2 -4 lines",
		mdedit.PreviewSummary("replace_section", "## A", 2, 4))
}

func TestRiskLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, mdedit.RiskLow, mdedit.RiskLevel(2, 3))
	assert.Equal(t, mdedit.RiskMedium, mdedit.RiskLevel(4, 2))
	assert.Equal(t, mdedit.RiskMedium, mdedit.RiskLevel(10, 10))
	assert.Equal(t, mdedit.RiskHigh, mdedit.RiskLevel(15, 6))
}
