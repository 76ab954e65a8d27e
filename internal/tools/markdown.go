package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
	"github.com/braindrive/library/pkg/pathguard"
)

func readMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path")
	if err != nil {
		return nil, err
	}

	abs, _, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	content, err := requireMarkdownFile(abs, rawPath)
	if err != nil {
		return nil, err
	}

	metadata, err := buildMetadata(ctx.LibraryRoot, abs)
	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Markdown file could not be read.", map[string]any{"path": rawPath})
	}

	return map[string]any{"content": content, "metadata": metadata}, nil
}

func listMarkdownFiles(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path")
	if err != nil {
		return nil, err
	}

	abs, _, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	if !pathExists(abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": rawPath})
	}

	if !isDir(abs) {
		return nil, mcperr.New("INVALID_PATH", "Path must reference a directory.", map[string]any{"path": rawPath})
	}

	files, err := collectMarkdownFiles(ctx.LibraryRoot, abs)
	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Directory could not be listed.", map[string]any{"path": rawPath})
	}

	return map[string]any{"files": files}, nil
}

func searchMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "query", "path")
	if err != nil {
		return nil, err
	}

	rawQuery, err := payload.Require(p, "query", "MISSING_QUERY", "Query is required.")
	if err != nil {
		return nil, err
	}

	query, err := payload.String("query", rawQuery)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) == "" {
		return nil, mcperr.New("INVALID_QUERY", "Query must be a non-empty string.", map[string]any{"query": query})
	}

	searchRoot := ctx.LibraryRoot

	var searchFiles []string

	if rawPath, present := p["path"]; present {
		abs, _, err := resolvePath(ctx, rawPath)
		if err != nil {
			return nil, err
		}

		raw := fmt.Sprint(rawPath)

		switch {
		case !pathExists(abs):
			return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": raw})
		case isFile(abs):
			if !isMarkdownPath(abs) {
				return nil, mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": raw})
			}

			searchFiles = []string{abs}
		case isDir(abs):
			searchRoot = abs
		default:
			return nil, mcperr.New("INVALID_PATH", "Path must reference a file or directory.", map[string]any{"path": raw})
		}
	}

	if searchFiles == nil {
		relFiles, err := collectMarkdownFiles(ctx.LibraryRoot, searchRoot)
		if err != nil {
			return nil, mcperr.New("FILE_READ_FAILED", "Directory could not be listed.", map[string]any{"path": searchRoot})
		}

		for _, rel := range relFiles {
			searchFiles = append(searchFiles, filepath.Join(ctx.LibraryRoot, filepath.FromSlash(rel)))
		}
	}

	results := []map[string]any{}

	for _, abs := range searchFiles {
		rel := pathguard.Relative(ctx.LibraryRoot, abs)

		content, err := readUTF8(abs, rel)
		if err != nil {
			return nil, err
		}

		matches := []map[string]any{}

		for number, line := range strings.Split(content, "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, map[string]any{"line": number + 1, "snippet": line})
			}
		}

		if len(matches) > 0 {
			results = append(results, map[string]any{"path": rel, "matches": matches})
		}
	}

	return map[string]any{"results": results}, nil
}

func createMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "content")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	rawContent, err := payload.Require(p, "content", "MISSING_CONTENT", "Content is required.")
	if err != nil {
		return nil, err
	}

	content, err := payload.String("content", rawContent)
	if err != nil {
		return nil, err
	}

	if !isMarkdownPath(abs) {
		return nil, mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": rawPath})
	}

	if pathExists(abs) {
		return nil, mcperr.New("PATH_EXISTS", "Path already exists.", map[string]any{"path": rawPath})
	}

	err = ensureParentDir(abs, rawPath)
	if err != nil {
		return nil, err
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(abs, content)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Markdown file could not be written.", map[string]any{"path": rawPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "create_markdown",
		Target:    rel,
		Staged:    []string{rel},
		Summary:   "create file",
		ErrorPath: rawPath,
		Rollback:  func() { txn.RemoveCreated(abs, rel) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func writeMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	return applyMarkdownOperation(ctx, p, "write_markdown", mdedit.ApplyWrite)
}

func editMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	return applyMarkdownOperation(ctx, p, "edit_markdown", mdedit.ApplyEdit)
}

func applyMarkdownOperation(
	ctx *Context,
	p map[string]any,
	operation string,
	apply func(string, mdedit.Operation) (string, error),
) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "operation")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	rawOp, err := payload.Require(p, "operation", "MISSING_OPERATION", "Operation is required.")
	if err != nil {
		return nil, err
	}

	op, err := payload.ParseOperation(rawOp)
	if err != nil {
		return nil, err
	}

	current, err := requireMarkdownFile(abs, rawPath)
	if err != nil {
		return nil, err
	}

	updated, err := apply(current, op)
	if err != nil {
		return nil, err
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(abs, updated)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Markdown file could not be written.", map[string]any{"path": rawPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: operation,
		Target:    rel,
		Staged:    []string{rel},
		Summary:   mdedit.ActivitySummary(op),
		ErrorPath: rawPath,
		Rollback:  func() { txn.RestoreText(abs, rel, current) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func deleteMarkdown(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "confirm")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	confirm, _, err := payload.OptBool(p, "confirm")
	if err != nil {
		return nil, err
	}

	if !confirm {
		return nil, mcperr.New("CONFIRM_REQUIRED", "Deletion requires explicit confirmation.", map[string]any{"path": rawPath})
	}

	if !isMarkdownPath(abs) {
		return nil, mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": rawPath})
	}

	if !pathExists(abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Markdown file does not exist.", map[string]any{"path": rawPath})
	}

	if !isFile(abs) {
		return nil, mcperr.New("INVALID_PATH", "Path must reference a file.", map[string]any{"path": rawPath})
	}

	original, err := os.ReadFile(abs)
	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Markdown file could not be read.", map[string]any{"path": rawPath})
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = os.Remove(abs)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Markdown file could not be deleted.", map[string]any{"path": rawPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "delete_markdown",
		Target:    rel,
		Staged:    []string{rel},
		Summary:   "delete_markdown",
		ErrorPath: rawPath,
		Rollback:  func() { txn.RestoreBytes(abs, rel, original) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func previewMarkdownChange(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "operation")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	rawOp, err := payload.Require(p, "operation", "MISSING_OPERATION", "Operation is required.")
	if err != nil {
		return nil, err
	}

	op, err := payload.ParseOperation(rawOp)
	if err != nil {
		return nil, err
	}

	current, err := requireMarkdownFile(abs, rawPath)
	if err != nil {
		return nil, err
	}

	updated, err := mdedit.ApplyPreview(current, op)
	if err != nil {
		return nil, err
	}

	diff, added, removed := mdedit.UnifiedDiff(current, updated, rel)

	return map[string]any{
		"diff":      diff,
		"summary":   mdedit.PreviewSummary(op.Type, op.Target, added, removed),
		"riskLevel": mdedit.RiskLevel(added, removed),
	}, nil
}

func previewBulkChanges(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "changes")
	if err != nil {
		return nil, err
	}

	rawChanges, err := payload.Require(p, "changes", "MISSING_CHANGES", "changes is required.")
	if err != nil {
		return nil, err
	}

	changes, ok := rawChanges.([]any)
	if !ok {
		return nil, mcperr.New("INVALID_TYPE", "changes must be a list.", map[string]any{"changes": fmt.Sprint(rawChanges)})
	}

	results := []map[string]any{}
	totalAdded := 0
	totalRemoved := 0

	for _, rawChange := range changes {
		change, isObj := rawChange.(map[string]any)
		if !isObj {
			return nil, mcperr.New("INVALID_TYPE", "Each change must be an object.", map[string]any{"change": fmt.Sprint(rawChange)})
		}

		result, added, removed, err := previewOneChange(ctx, change)
		if err != nil {
			return nil, err
		}

		totalAdded += added
		totalRemoved += removed
		results = append(results, result)
	}

	return map[string]any{
		"changes": results,
		"summary": map[string]any{
			"added":     totalAdded,
			"removed":   totalRemoved,
			"riskLevel": mdedit.RiskLevel(totalAdded, totalRemoved),
		},
	}, nil
}

func previewOneChange(ctx *Context, change map[string]any) (map[string]any, int, int, error) {
	err := payload.RejectUnknown(change, "path", "action", "operation", "content")
	if err != nil {
		return nil, 0, 0, err
	}

	_, hasPath := change["path"]
	rawAction, hasAction := change["action"]

	if !hasPath || !hasAction {
		return nil, 0, 0, mcperr.New(
			"MISSING_FIELDS",
			"Each change requires path and action.",
			map[string]any{"fields": []string{"path", "action"}},
		)
	}

	action, err := payload.String("action", rawAction)
	if err != nil {
		return nil, 0, 0, err
	}

	action = strings.ToLower(action)

	switch action {
	case "create", "write", "edit", "delete":
	default:
		return nil, 0, 0, mcperr.New("INVALID_ACTION", "action must be one of create/write/edit/delete.", map[string]any{"action": action})
	}

	abs, rel, rawPath, err := requirePath(ctx, change)
	if err != nil {
		return nil, 0, 0, err
	}

	if !isMarkdownPath(abs) {
		return nil, 0, 0, mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": rawPath})
	}

	current := ""

	if pathExists(abs) {
		if !isFile(abs) {
			return nil, 0, 0, mcperr.New("INVALID_PATH", "Path must reference a file.", map[string]any{"path": rawPath})
		}

		current, err = readUTF8(abs, rawPath)
		if err != nil {
			return nil, 0, 0, err
		}
	}

	updated := current
	summary := ""

	switch action {
	case "create":
		if pathExists(abs) {
			return nil, 0, 0, mcperr.New("PATH_EXISTS", "Path already exists.", map[string]any{"path": rawPath})
		}

		content, isString := change["content"].(string)
		if !isString {
			return nil, 0, 0, mcperr.New("MISSING_CONTENT", "content is required for create.", map[string]any{"path": rawPath})
		}

		updated = content
		summary = "create file"
	case "delete":
		if !pathExists(abs) {
			return nil, 0, 0, mcperr.New("FILE_NOT_FOUND", "Markdown file does not exist.", map[string]any{"path": rawPath})
		}

		updated = ""
		summary = "delete file"
	case "write", "edit":
		if !pathExists(abs) {
			return nil, 0, 0, mcperr.New("FILE_NOT_FOUND", "Markdown file does not exist.", map[string]any{"path": rawPath})
		}

		rawOp, present := change["operation"]
		if !present {
			return nil, 0, 0, mcperr.New("MISSING_OPERATION", "operation is required for "+action+".", map[string]any{"path": rawPath})
		}

		op, opErr := payload.ParseOperation(rawOp)
		if opErr != nil {
			return nil, 0, 0, opErr
		}

		if action == "write" {
			updated, err = mdedit.ApplyWrite(current, op)
		} else {
			updated, err = mdedit.ApplyEdit(current, op)
		}

		if err != nil {
			return nil, 0, 0, err
		}

		summary = mdedit.PreviewSummary(op.Type, op.Target, 0, 0)
	}

	diff, added, removed := mdedit.UnifiedDiff(current, updated, rel)

	return map[string]any{
		"path":      rel,
		"action":    action,
		"summary":   summary,
		"diff":      diff,
		"riskLevel": mdedit.RiskLevel(added, removed),
		"added":     added,
		"removed":   removed,
	}, added, removed, nil
}
