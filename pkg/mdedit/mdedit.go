// Package mdedit applies structured operations to markdown documents:
// whole-file append/prepend, heading-scoped section edits, unified diff
// previews, and change risk classification.
package mdedit

import (
	"fmt"
	"strings"

	"github.com/braindrive/library/pkg/mcperr"
)

// Operation types.
const (
	OpAppend         = "append"
	OpPrepend        = "prepend"
	OpReplaceSection = "replace_section"
	OpInsertBefore   = "insert_before"
	OpInsertAfter    = "insert_after"
)

// Risk levels returned by RiskLevel.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

const (
	riskLowMaxChanges    = 5
	riskMediumMaxChanges = 20
)

// Operation is a validated markdown mutation.
type Operation struct {
	Type    string
	Content string
	Target  string
}

// IsSectionOp reports whether the type addresses a heading-scoped section.
func IsSectionOp(opType string) bool {
	switch opType {
	case OpReplaceSection, OpInsertBefore, OpInsertAfter:
		return true
	}

	return false
}

// IsWriteOp reports whether the type is a whole-file write operation.
func IsWriteOp(opType string) bool {
	return opType == OpAppend || opType == OpPrepend
}

// IsPreviewOp reports whether the type can be previewed.
func IsPreviewOp(opType string) bool {
	return IsWriteOp(opType) || IsSectionOp(opType)
}

// ApplyWrite applies an append or prepend operation.
func ApplyWrite(content string, op Operation) (string, error) {
	if !IsWriteOp(op.Type) {
		return "", mcperr.New(
			"INVALID_OPERATION",
			"Unsupported operation type.",
			map[string]any{"type": op.Type},
		)
	}

	if op.Type == OpAppend {
		return JoinWithNewline(content, op.Content), nil
	}

	return JoinWithNewline(op.Content, content), nil
}

// ApplyEdit applies a section operation against the target heading.
func ApplyEdit(content string, op Operation) (string, error) {
	if !IsSectionOp(op.Type) {
		return "", mcperr.New(
			"INVALID_OPERATION",
			"Unsupported operation type.",
			map[string]any{"type": op.Type},
		)
	}

	if op.Target == "" {
		return "", mcperr.New(
			"MISSING_TARGET",
			"Target is required for section operations.",
			map[string]any{"type": op.Type},
		)
	}

	return applySection(content, op)
}

// ApplyPreview applies any previewable operation and returns the updated
// content without touching disk.
func ApplyPreview(content string, op Operation) (string, error) {
	if !IsPreviewOp(op.Type) {
		return "", mcperr.New(
			"INVALID_OPERATION",
			"Unsupported operation type.",
			map[string]any{"type": op.Type},
		)
	}

	if IsSectionOp(op.Type) && op.Target == "" {
		return "", mcperr.New(
			"MISSING_TARGET",
			"Target is required for section operations.",
			map[string]any{"type": op.Type},
		)
	}

	switch op.Type {
	case OpAppend:
		return JoinWithNewline(content, op.Content), nil
	case OpPrepend:
		return JoinWithNewline(op.Content, content), nil
	}

	return applySection(content, op)
}

// JoinWithNewline concatenates two fragments, inserting a single newline at
// the seam only when neither side already provides one.
func JoinWithNewline(left, right string) string {
	if left == "" || right == "" {
		return left + right
	}

	if strings.HasSuffix(left, "\n") || strings.HasPrefix(right, "\n") {
		return left + right
	}

	return left + "\n" + right
}

// ActivitySummary renders the journal summary for an operation.
func ActivitySummary(op Operation) string {
	if op.Target != "" {
		return op.Type + " (" + op.Target + ")"
	}

	return op.Type
}

// PreviewSummary renders the human summary line for a previewed change.
func PreviewSummary(opType, target string, added, removed int) string {
	base := opType
	if target != "" {
		base = opType + " (" + target + ")"
	}

	if added == 0 && removed == 0 {
		return base
	}

	return fmt.Sprintf("%s: +%d -%d lines", base, added, removed)
}

// RiskLevel classifies a change by its total touched line count.
func RiskLevel(added, removed int) string {
	changes := added + removed
	if changes <= riskLowMaxChanges {
		return RiskLow
	}

	if changes <= riskMediumMaxChanges {
		return RiskMedium
	}

	return RiskHigh
}

func applySection(content string, op Operation) (string, error) {
	lines := splitKeepEnds(content)

	start, end, err := sectionBounds(lines, op.Target)
	if err != nil {
		return "", err
	}

	inserted := splitKeepEnds(op.Content)

	switch op.Type {
	case OpReplaceSection:
		return joinLines(lines[:start], inserted, lines[end:]), nil
	case OpInsertBefore:
		return joinLines(lines[:start], inserted, lines[start:]), nil
	}

	return joinLines(lines[:end], inserted, lines[end:]), nil
}

// sectionBounds locates the target heading and the extent of its section:
// from the heading line to the next heading of equal or shallower level.
func sectionBounds(lines []string, target string) (int, int, error) {
	targetLine := strings.TrimSpace(target)
	if targetLine == "" {
		return 0, 0, mcperr.New(
			"INVALID_TARGET",
			"Target must be a non-empty heading.",
			map[string]any{"target": target},
		)
	}

	if headingLevel(targetLine) == 0 {
		return 0, 0, mcperr.New(
			"INVALID_TARGET",
			"Target must be a markdown heading.",
			map[string]any{"target": target},
		)
	}

	for index, line := range lines {
		if strings.TrimSpace(line) != targetLine {
			continue
		}

		level := headingLevel(strings.TrimSpace(line))
		if level == 0 {
			continue
		}

		for next := index + 1; next < len(lines); next++ {
			nextLevel := headingLevel(strings.TrimRight(lines[next], "\r\n"))
			if nextLevel != 0 && nextLevel <= level {
				return index, next, nil
			}
		}

		return index, len(lines), nil
	}

	return 0, 0, mcperr.New(
		"SECTION_NOT_FOUND",
		"Target section not found.",
		map[string]any{"target": target},
	)
}

// headingLevel returns the markdown heading depth of a line, or 0 when the
// line is not a heading.
func headingLevel(line string) int {
	stripped := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(stripped, "#") {
		return 0
	}

	return len(stripped) - len(strings.TrimLeft(stripped, "#"))
}

// splitKeepEnds splits content into lines, keeping line terminators, the
// same way section offsets are counted when reassembling.
func splitKeepEnds(content string) []string {
	if content == "" {
		return nil
	}

	var lines []string

	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}

		lines = append(lines, content[start:i+1])
		start = i + 1
	}

	if start < len(content) {
		lines = append(lines, content[start:])
	}

	return lines
}

func joinLines(groups ...[]string) string {
	var sb strings.Builder
	for _, group := range groups {
		for _, line := range group {
			sb.WriteString(line)
		}
	}

	return sb.String()
}
