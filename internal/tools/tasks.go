package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/internal/tasks"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
)

func listTasks(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "owner", "priority", "tag", "status", "project", "scope", "path")
	if err != nil {
		return nil, err
	}

	owner, _, err := payload.OptString(p, "owner")
	if err != nil {
		return nil, err
	}

	priority, _, err := payload.OptString(p, "priority")
	if err != nil {
		return nil, err
	}

	tag, _, err := payload.OptString(p, "tag")
	if err != nil {
		return nil, err
	}

	status, hasStatus, err := payload.OptString(p, "status")
	if err != nil {
		return nil, err
	}

	if !hasStatus {
		status = "open"
	}

	project, err := firstStringOption(p, "scope", "path", "project")
	if err != nil {
		return nil, err
	}

	loaded := tasks.Load(ctx.LibraryRoot, status)
	lookup := tasks.BuildLookup(ctx.LibraryRoot)
	filtered := tasks.Filter(loaded, owner, priority, tag, project, lookup)

	return map[string]any{"tasks": filtered}, nil
}

func createTask(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "title", "owner", "priority", "tags", "project", "scope", "path", "due")
	if err != nil {
		return nil, err
	}

	rawTitle, err := payload.Require(p, "title", "MISSING_TITLE", "title is required.")
	if err != nil {
		return nil, err
	}

	title, err := payload.String("title", rawTitle)
	if err != nil {
		return nil, err
	}

	owner, _, err := payload.OptString(p, "owner")
	if err != nil {
		return nil, err
	}

	priority, _, err := payload.OptString(p, "priority")
	if err != nil {
		return nil, err
	}

	project, _, err := payload.OptString(p, "project")
	if err != nil {
		return nil, err
	}

	due, _, err := payload.OptString(p, "due")
	if err != nil {
		return nil, err
	}

	scope, err := firstStringOption(p, "scope", "path")
	if err != nil {
		return nil, err
	}

	tags, _, err := payload.OptStringSlice(p, "tags")
	if err != nil {
		return nil, err
	}

	lookup := tasks.BuildLookup(ctx.LibraryRoot)
	defaultScope := tasks.InferDefaultScope(ctx.LibraryRoot, lookup)
	task := tasks.BuildFromPayload(
		title, owner, priority, project, scope, due,
		tags,
		tasks.NextID(ctx.LibraryRoot),
		lookup,
		defaultScope,
	)

	indexAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(tasks.IndexPath))

	err = os.MkdirAll(filepath.Dir(indexAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	existing := readTextOrEmpty(indexAbs)
	updated := mdedit.JoinWithNewline(existing, tasks.FormatLine(task))

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(indexAbs, updated)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "create_task",
		Target:    tasks.IndexPath,
		Staged:    []string{tasks.IndexPath},
		Summary:   "create task",
		ErrorPath: tasks.IndexPath,
		Rollback:  func() { txn.RestoreText(indexAbs, tasks.IndexPath, existing) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"task": task, "commitSha": sha}, nil
}

func updateTask(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "id", "fields")
	if err != nil {
		return nil, err
	}

	rawID, hasID := p["id"]
	rawFields, hasFields := p["fields"]

	if !hasID || !hasFields {
		return nil, mcperr.New(
			"MISSING_FIELDS",
			"id and fields are required.",
			map[string]any{"fields": []string{"id", "fields"}},
		)
	}

	id, err := taskID(rawID)
	if err != nil {
		return nil, err
	}

	fields, ok := rawFields.(map[string]any)
	if !ok {
		return nil, mcperr.New("INVALID_TYPE", "fields must be an object.", map[string]any{"fields": fmt.Sprint(rawFields)})
	}

	indexAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(tasks.IndexPath))
	if !pathExists(indexAbs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Task index does not exist.", map[string]any{"path": tasks.IndexPath})
	}

	original := readTextOrEmpty(indexAbs)
	parsed, lines := tasks.Parse(original)
	lookup := tasks.BuildLookup(ctx.LibraryRoot)
	tasks.EnrichAll(parsed, lookup)
	tasks.ApplyDominantScope(parsed, lookup)

	var updated *tasks.Task

	for _, task := range parsed {
		if task.ID != id {
			continue
		}

		tasks.ApplyUpdates(task, fields)
		tasks.EnrichScope(task, lookup)

		if index := tasks.FindLineIndex(lines, id); index >= 0 {
			lines[index] = tasks.FormatLine(task)
		}

		updated = task

		break
	}

	if updated == nil {
		return nil, mcperr.New("TASK_NOT_FOUND", "Task ID not found.", map[string]any{"id": id})
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(indexAbs, tasks.JoinLedger(lines))
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "update_task",
		Target:    tasks.IndexPath,
		Staged:    []string{tasks.IndexPath},
		Summary:   "update task",
		ErrorPath: tasks.IndexPath,
		Rollback:  func() { txn.RestoreText(indexAbs, tasks.IndexPath, original) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"task": updated, "commitSha": sha}, nil
}

func completeTask(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "id")
	if err != nil {
		return nil, err
	}

	rawID, err := payload.Require(p, "id", "MISSING_ID", "id is required.")
	if err != nil {
		return nil, err
	}

	id, err := taskID(rawID)
	if err != nil {
		return nil, err
	}

	indexAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(tasks.IndexPath))
	if !pathExists(indexAbs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Task index does not exist.", map[string]any{"path": tasks.IndexPath})
	}

	originalIndex := readTextOrEmpty(indexAbs)
	parsed, lines := tasks.Parse(originalIndex)
	lookup := tasks.BuildLookup(ctx.LibraryRoot)
	tasks.EnrichAll(parsed, lookup)
	tasks.ApplyDominantScope(parsed, lookup)

	task, lines := tasks.Pop(parsed, lines, id)
	if task == nil {
		return nil, mcperr.New("TASK_NOT_FOUND", "Task ID not found.", map[string]any{"id": id})
	}

	task.Status = "x"
	tasks.EnrichScope(task, lookup)

	completedRel := tasks.CompletedPath(ctx.now())
	completedAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(completedRel))

	err = os.MkdirAll(filepath.Dir(completedAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Completed tasks file could not be written.", map[string]any{"path": completedRel})
	}

	updatedCompleted := mdedit.JoinWithNewline(readTextOrEmpty(completedAbs), tasks.FormatLine(task))

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(indexAbs, tasks.JoinLedger(lines))
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	err = atomicfile.WriteText(completedAbs, updatedCompleted)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Completed tasks file could not be written.", map[string]any{"path": completedRel})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "complete_task",
		Target:    completedRel,
		Staged:    []string{tasks.IndexPath, completedRel},
		Summary:   "complete task",
		ErrorPath: tasks.IndexPath,
		Rollback:  func() { txn.RestoreText(indexAbs, tasks.IndexPath, originalIndex) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"task": task, "commitSha": sha}, nil
}

func reopenTask(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "id")
	if err != nil {
		return nil, err
	}

	rawID, err := payload.Require(p, "id", "MISSING_ID", "id is required.")
	if err != nil {
		return nil, err
	}

	id, err := taskID(rawID)
	if err != nil {
		return nil, err
	}

	completedRel := tasks.CompletedPath(ctx.now())
	completedAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(completedRel))

	if !pathExists(completedAbs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Completed tasks file does not exist.", map[string]any{"path": completedRel})
	}

	originalCompleted := readTextOrEmpty(completedAbs)
	parsed, lines := tasks.Parse(originalCompleted)
	lookup := tasks.BuildLookup(ctx.LibraryRoot)
	tasks.EnrichAll(parsed, lookup)
	tasks.ApplyDominantScope(parsed, lookup)

	task, lines := tasks.Pop(parsed, lines, id)
	if task == nil {
		return nil, mcperr.New("TASK_NOT_FOUND", "Task ID not found.", map[string]any{"id": id})
	}

	task.Status = " "
	tasks.EnrichScope(task, lookup)

	indexAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(tasks.IndexPath))

	err = os.MkdirAll(filepath.Dir(indexAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	updatedIndex := mdedit.JoinWithNewline(readTextOrEmpty(indexAbs), tasks.FormatLine(task))

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	err = atomicfile.WriteText(completedAbs, tasks.JoinLedger(lines))
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Completed tasks file could not be written.", map[string]any{"path": completedRel})
	}

	err = atomicfile.WriteText(indexAbs, updatedIndex)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Task index could not be written.", map[string]any{"path": tasks.IndexPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "reopen_task",
		Target:    tasks.IndexPath,
		Staged:    []string{completedRel, tasks.IndexPath},
		Summary:   "reopen task",
		ErrorPath: "pulse/completed",
		Rollback:  func() { txn.RestoreText(completedAbs, completedRel, originalCompleted) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"task": task, "commitSha": sha}, nil
}

// firstStringOption reads the first present, non-empty string among fields.
func firstStringOption(p map[string]any, fields ...string) (string, error) {
	for _, field := range fields {
		value, ok, err := payload.OptString(p, field)
		if err != nil {
			return "", err
		}

		if ok && value != "" {
			return value, nil
		}
	}

	return "", nil
}

func taskID(raw any) (int, error) {
	switch n := raw.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}

	return 0, mcperr.New("INVALID_TYPE", "id must be an integer.", map[string]any{"id": fmt.Sprint(raw)})
}

func readTextOrEmpty(abs string) string {
	data, err := os.ReadFile(abs)
	if err != nil {
		return ""
	}

	return string(data)
}
