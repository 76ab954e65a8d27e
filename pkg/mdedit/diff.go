package mdedit

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines shown around each hunk.
const contextLines = 3

// UnifiedDiff renders a unified diff between two documents and returns the
// diff text plus the added and removed line counts. An empty diff means the
// documents are line-identical.
func UnifiedDiff(before, after, relPath string) (string, int, int) {
	beforeLines := splitLines(before)
	afterLines := splitLines(after)

	groups := groupOpcodes(lineOpcodes(beforeLines, afterLines), contextLines)
	if len(groups) == 0 {
		return "", 0, 0
	}

	var out []string
	out = append(out, "--- "+relPath, "+++ "+relPath)

	added := 0
	removed := 0

	for _, group := range groups {
		first := group[0]
		last := group[len(group)-1]
		out = append(out, fmt.Sprintf(
			"@@ -%s +%s @@",
			formatRange(first.i1, last.i2),
			formatRange(first.j1, last.j2),
		))

		for _, code := range group {
			switch code.tag {
			case tagEqual:
				for _, line := range beforeLines[code.i1:code.i2] {
					out = append(out, " "+line)
				}
			case tagDelete:
				for _, line := range beforeLines[code.i1:code.i2] {
					out = append(out, "-"+line)
					removed++
				}
			case tagInsert:
				for _, line := range afterLines[code.j1:code.j2] {
					out = append(out, "+"+line)
					added++
				}
			}
		}
	}

	return strings.Join(out, "\n"), added, removed
}

const (
	tagEqual  = 'e'
	tagDelete = 'd'
	tagInsert = 'i'
)

// opcode describes one run of the line diff: before[i1:i2] against
// after[j1:j2].
type opcode struct {
	tag            byte
	i1, i2, j1, j2 int
}

// lineOpcodes computes a line-level diff through diffmatchpatch's
// line-to-char encoding and converts it into index-range opcodes.
func lineOpcodes(beforeLines, afterLines []string) []opcode {
	dmp := diffmatchpatch.New()

	beforeText := joinForDiff(beforeLines)
	afterText := joinForDiff(afterLines)

	encodedBefore, encodedAfter, lineArray := dmp.DiffLinesToChars(beforeText, afterText)
	diffs := dmp.DiffMain(encodedBefore, encodedAfter, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var codes []opcode

	i, j := 0, 0

	for _, segment := range diffs {
		count := len(chunkLines(segment.Text))
		if count == 0 {
			continue
		}

		switch segment.Type {
		case diffmatchpatch.DiffEqual:
			codes = append(codes, opcode{tagEqual, i, i + count, j, j + count})
			i += count
			j += count
		case diffmatchpatch.DiffDelete:
			codes = append(codes, opcode{tagDelete, i, i + count, j, j})
			i += count
		case diffmatchpatch.DiffInsert:
			codes = append(codes, opcode{tagInsert, i, i, j, j + count})
			j += count
		}
	}

	return codes
}

// groupOpcodes trims long equal runs to the context width and splits the
// opcode stream into hunk groups. Returns nil when nothing changed.
func groupOpcodes(codes []opcode, n int) [][]opcode {
	if len(codes) == 0 {
		return nil
	}

	changed := false

	for _, code := range codes {
		if code.tag != tagEqual {
			changed = true

			break
		}
	}

	if !changed {
		return nil
	}

	// Trim leading and trailing context to n lines.
	first := codes[0]
	if first.tag == tagEqual {
		codes[0] = opcode{
			first.tag,
			max(first.i1, first.i2-n), first.i2,
			max(first.j1, first.j2-n), first.j2,
		}
	}

	last := codes[len(codes)-1]
	if last.tag == tagEqual {
		codes[len(codes)-1] = opcode{
			last.tag,
			last.i1, min(last.i2, last.i1+n),
			last.j1, min(last.j2, last.j1+n),
		}
	}

	var groups [][]opcode

	var group []opcode

	for _, code := range codes {
		if code.tag == tagEqual && code.i2-code.i1 > 2*n {
			group = append(group, opcode{
				code.tag,
				code.i1, min(code.i2, code.i1+n),
				code.j1, min(code.j2, code.j1+n),
			})
			groups = append(groups, group)

			group = []opcode{{
				code.tag,
				max(code.i1, code.i2-n), code.i2,
				max(code.j1, code.j2-n), code.j2,
			}}

			continue
		}

		group = append(group, code)
	}

	if len(group) > 0 && !(len(group) == 1 && group[0].tag == tagEqual) {
		groups = append(groups, group)
	}

	return groups
}

// formatRange renders a hunk range in unified format: 1-based start with a
// length suffix unless the length is exactly one.
func formatRange(start, stop int) string {
	length := stop - start

	beginning := start + 1
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}

	if length == 0 {
		beginning--
	}

	return fmt.Sprintf("%d,%d", beginning, length)
}

// splitLines splits a document into lines without terminators.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for index, line := range lines {
		lines[index] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// joinForDiff rebuilds a newline-terminated document so the line encoder
// sees one entry per line.
func joinForDiff(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

// chunkLines splits a diff segment back into its component lines.
func chunkLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
