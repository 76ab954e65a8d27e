package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/library"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/pathguard"
)

func projectExists(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "name")
	if err != nil {
		return nil, err
	}

	candidates, err := projectCandidates(p)
	if err != nil {
		return nil, err
	}

	checkedPaths := []string{}
	conflictPaths := []string{}
	foundPath := ""

	for _, candidate := range candidates {
		abs, err := pathguard.Validate(ctx.LibraryRoot, candidate)
		if err != nil {
			return nil, err
		}

		if isMarkdownPath(abs) {
			return nil, mcperr.New(
				"INVALID_PATH",
				"Project path must be a directory, not a markdown file.",
				map[string]any{"path": candidate},
			)
		}

		rel := pathguard.Relative(ctx.LibraryRoot, abs)
		checkedPaths = append(checkedPaths, rel)

		if pathExists(abs) {
			if isDir(abs) {
				foundPath = rel

				break
			}

			conflictPaths = append(conflictPaths, rel)
		}
	}

	exists := foundPath != ""
	relPath := foundPath

	if relPath == "" {
		relPath = checkedPaths[0]
	}

	return map[string]any{
		"path":          relPath,
		"exists":        exists,
		"isDir":         exists,
		"conflict":      len(conflictPaths) > 0 && !exists,
		"checkedPaths":  checkedPaths,
		"conflictPaths": conflictPaths,
	}, nil
}

func listProjects(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path")
	if err != nil {
		return nil, err
	}

	rawPath, hasPath, err := payload.OptString(p, "path")
	if err != nil {
		return nil, err
	}

	candidates := []string{"projects/active", "projects"}
	if hasPath && rawPath != "" {
		candidates = []string{rawPath}
	}

	resolved := ""

	for _, candidate := range candidates {
		abs, err := pathguard.Validate(ctx.LibraryRoot, candidate)
		if err != nil {
			return nil, err
		}

		if !pathExists(abs) {
			continue
		}

		if !isDir(abs) {
			return nil, mcperr.New("INVALID_PATH", "Path must reference a directory.", map[string]any{"path": candidate})
		}

		resolved = abs

		break
	}

	if resolved == "" {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": candidates[0]})
	}

	projects := []map[string]string{}

	err = listImmediate(resolved, func(abs string, entryIsDir bool) error {
		if !entryIsDir {
			return nil
		}

		projects = append(projects, map[string]string{
			"name": filepath.Base(abs),
			"path": pathguard.Relative(ctx.LibraryRoot, abs),
		})

		return nil
	})
	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Directory could not be listed.", map[string]any{"path": candidates[0]})
	}

	return map[string]any{"projects": projects}, nil
}

type projectFile struct {
	abs     string
	rel     string
	content string
}

func createProject(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "files", "name")
	if err != nil {
		return nil, err
	}

	rawPath, err := projectPath(p)
	if err != nil {
		return nil, err
	}

	projectAbs, err := pathguard.Validate(ctx.LibraryRoot, rawPath)
	if err != nil {
		return nil, err
	}

	if isMarkdownPath(projectAbs) {
		return nil, mcperr.New(
			"INVALID_PATH",
			"Project path must be a directory, not a markdown file.",
			map[string]any{"path": rawPath},
		)
	}

	if pathExists(projectAbs) {
		if isDir(projectAbs) {
			return nil, mcperr.New("PROJECT_EXISTS", "Project already exists.", map[string]any{"path": rawPath})
		}

		return nil, mcperr.New("INVALID_PATH", "Project path conflicts with a non-directory.", map[string]any{"path": rawPath})
	}

	parent := filepath.Dir(projectAbs)
	if pathExists(parent) && !isDir(parent) {
		return nil, mcperr.New("INVALID_PATH", "Project parent path must be a directory.", map[string]any{"path": rawPath})
	}

	projectRel := pathguard.Relative(ctx.LibraryRoot, projectAbs)
	projectName := filepath.Base(projectAbs)

	filesPayload, hasFiles := p["files"]
	if !hasFiles || filesPayload == nil {
		filesPayload = []any{map[string]any{
			"path":    "spec.md",
			"content": fmt.Sprintf("# %s\n", projectName),
		}}
	}

	entries, ok := filesPayload.([]any)
	if !ok {
		return nil, mcperr.New("INVALID_TYPE", "Files must be a list.", map[string]any{"files": fmt.Sprint(filesPayload)})
	}

	if len(entries) == 0 {
		return nil, mcperr.New("MISSING_FILES", "At least one file is required.", map[string]any{"fields": []string{"files"}})
	}

	resolvedFiles := []projectFile{}
	seenPaths := map[string]struct{}{}
	seenNames := map[string]struct{}{}

	for _, raw := range entries {
		entry, isObj := raw.(map[string]any)
		if !isObj {
			return nil, mcperr.New("INVALID_TYPE", "File entries must be objects.", map[string]any{"file": fmt.Sprint(raw)})
		}

		err = payload.RejectUnknown(entry, "path", "content")
		if err != nil {
			return nil, err
		}

		rawFile, err := payload.Require(entry, "path", "MISSING_PATH", "File path is required.")
		if err != nil {
			return nil, err
		}

		rawContent, err := payload.Require(entry, "content", "MISSING_CONTENT", "File content is required.")
		if err != nil {
			return nil, err
		}

		filePath, err := payload.String("path", rawFile)
		if err != nil {
			return nil, err
		}

		fileContent, err := payload.String("content", rawContent)
		if err != nil {
			return nil, err
		}

		combined := strings.TrimRight(rawPath, "/") + "/" + strings.TrimLeft(filePath, "/")

		resolved, err := resolveProjectFile(ctx, combined, fileContent, seenPaths)
		if err != nil {
			return nil, err
		}

		seenNames[strings.TrimLeft(filePath, "/")] = struct{}{}
		resolvedFiles = append(resolvedFiles, resolved)
	}

	// Fill in whichever required scope files the caller did not supply.
	kind := library.ScopeKindForPath(projectRel)

	for _, name := range library.RequiredScopeFiles(kind) {
		if _, supplied := seenNames[name]; supplied {
			continue
		}

		resolved, err := resolveProjectFile(
			ctx,
			strings.TrimRight(rawPath, "/")+"/"+name,
			library.ScopeSeedContent(projectName, name),
			seenPaths,
		)
		if err != nil {
			return nil, err
		}

		resolvedFiles = append(resolvedFiles, resolved)
	}

	err = os.MkdirAll(projectAbs, 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Project directory could not be created.", map[string]any{"path": rawPath})
	}

	createdAbs := []string{}
	createdRel := []string{}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	rollback := func() { txn.RemoveCreatedTree(createdAbs, projectAbs, createdRel) }

	for _, file := range resolvedFiles {
		err = os.MkdirAll(filepath.Dir(file.abs), 0o755)
		if err == nil {
			err = atomicfile.WriteText(file.abs, file.content)
		}

		if err != nil {
			rollback()

			return nil, mcperr.New("WRITE_ERROR", "Project file could not be written.", map[string]any{"path": file.rel})
		}

		createdAbs = append(createdAbs, file.abs)
		createdRel = append(createdRel, file.rel)
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "create_project",
		Target:    projectRel,
		Staged:    createdRel,
		Summary:   "create project",
		ErrorPath: rawPath,
		Rollback:  rollback,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":      true,
		"commitSha":    sha,
		"path":         projectRel,
		"createdFiles": createdRel,
	}, nil
}

func createProjectScaffold(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "name")
	if err != nil {
		return nil, err
	}

	rawPath, err := projectPath(p)
	if err != nil {
		return nil, err
	}

	files := make([]any, 0, len(library.DefaultProjectFiles))
	for _, file := range library.DefaultProjectFiles {
		files = append(files, map[string]any{"path": file.Name, "content": file.Content})
	}

	return createProject(ctx, map[string]any{"path": rawPath, "files": files})
}

func ensureScopeScaffold(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "name", "kind")
	if err != nil {
		return nil, err
	}

	kind, _, err := payload.OptString(p, "kind")
	if err != nil {
		return nil, err
	}

	rawPath, hasPath, err := payload.OptString(p, "path")
	if err != nil {
		return nil, err
	}

	if !hasPath {
		name, hasName, err := payload.OptString(p, "name")
		if err != nil {
			return nil, err
		}

		if !hasName {
			return nil, mcperr.New(
				"MISSING_PATH",
				"Path or name is required.",
				map[string]any{"fields": []string{"path", "name"}},
			)
		}

		if strings.TrimSpace(name) == "" {
			return nil, mcperr.New("INVALID_NAME", "Name must be a non-empty string.", map[string]any{"name": name})
		}

		if strings.ContainsAny(name, "/\\") {
			rawPath = name
		} else if kind == "life" {
			rawPath = "life/" + name
		} else {
			rawPath = "projects/active/" + name
		}
	}

	scopeAbs, err := pathguard.Validate(ctx.LibraryRoot, rawPath)
	if err != nil {
		return nil, err
	}

	if isMarkdownPath(scopeAbs) {
		return nil, mcperr.New(
			"INVALID_PATH",
			"Scope path must be a directory, not a markdown file.",
			map[string]any{"path": rawPath},
		)
	}

	if pathExists(scopeAbs) && !isDir(scopeAbs) {
		return nil, mcperr.New("INVALID_PATH", "Scope path conflicts with a non-directory.", map[string]any{"path": rawPath})
	}

	scopeRel := pathguard.Relative(ctx.LibraryRoot, scopeAbs)
	scopeName := filepath.Base(scopeAbs)
	dirExisted := pathExists(scopeAbs)

	if kind == "" {
		kind = library.ScopeKindForPath(scopeRel)
	}

	err = os.MkdirAll(scopeAbs, 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Scope directory could not be created.", map[string]any{"path": rawPath})
	}

	createdAbs := []string{}
	createdRel := []string{}

	for _, name := range library.RequiredScopeFiles(kind) {
		fileAbs := filepath.Join(scopeAbs, name)
		if pathExists(fileAbs) {
			continue
		}

		err = atomicfile.WriteText(fileAbs, library.ScopeSeedContent(scopeName, name))
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Scope file could not be written.", map[string]any{"path": rawPath})
		}

		createdAbs = append(createdAbs, fileAbs)
		createdRel = append(createdRel, pathguard.Relative(ctx.LibraryRoot, fileAbs))
	}

	if len(createdRel) == 0 {
		return map[string]any{
			"success":      true,
			"commitSha":    nil,
			"path":         scopeRel,
			"createdFiles": []string{},
		}, nil
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	rollback := func() {
		if dirExisted {
			for _, abs := range createdAbs {
				txn.RemoveCreated(abs, pathguard.Relative(ctx.LibraryRoot, abs))
			}

			return
		}

		txn.RemoveCreatedTree(createdAbs, scopeAbs, createdRel)
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "ensure_scope_scaffold",
		Target:    scopeRel,
		Staged:    createdRel,
		Summary:   "ensure scope scaffold",
		ErrorPath: rawPath,
		Rollback:  rollback,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":      true,
		"commitSha":    sha,
		"path":         scopeRel,
		"createdFiles": createdRel,
	}, nil
}

func projectContext(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "name", "include_files", "include_transcripts")
	if err != nil {
		return nil, err
	}

	_, hasPath := p["path"]
	_, hasName := p["name"]

	if !hasPath && !hasName {
		return nil, mcperr.New(
			"MISSING_PATH",
			"Path or name is required.",
			map[string]any{"fields": []string{"path", "name"}},
		)
	}

	var rootAbs string

	if hasPath {
		rawPath, err := payload.String("path", p["path"])
		if err != nil {
			return nil, err
		}

		rootAbs, err = pathguard.Validate(ctx.LibraryRoot, rawPath)
		if err != nil {
			return nil, err
		}
	} else {
		name, ok := p["name"].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, mcperr.New("INVALID_NAME", "Name must be a non-empty string.", map[string]any{"name": fmt.Sprint(p["name"])})
		}

		rootAbs, err = pathguard.Validate(ctx.LibraryRoot, "projects/active/"+name)
		if err != nil {
			return nil, err
		}
	}

	rootRel := pathguard.Relative(ctx.LibraryRoot, rootAbs)

	if !isDir(rootAbs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Project path does not exist.", map[string]any{"path": rootRel})
	}

	includeFiles := []string{}

	if rawInclude, present := p["include_files"]; present && rawInclude != nil {
		entries, ok := rawInclude.([]any)
		if !ok {
			return nil, mcperr.New("INVALID_TYPE", "include_files must be a list.", map[string]any{"include_files": fmt.Sprint(rawInclude)})
		}

		for _, entry := range entries {
			if name, isString := entry.(string); isString {
				includeFiles = append(includeFiles, name)
			}
		}
	} else {
		for _, file := range library.DefaultProjectFiles {
			includeFiles = append(includeFiles, file.Name)
		}
	}

	files := []map[string]any{}
	missing := []string{}

	for _, name := range includeFiles {
		targetAbs := filepath.Join(rootAbs, filepath.FromSlash(name))
		targetRel := pathguard.Relative(ctx.LibraryRoot, targetAbs)

		if !pathExists(targetAbs) {
			missing = append(missing, targetRel)

			continue
		}

		if !isFile(targetAbs) {
			continue
		}

		content, err := readUTF8(targetAbs, targetRel)
		if err != nil {
			continue
		}

		metadata, err := buildMetadata(ctx.LibraryRoot, targetAbs)
		if err != nil {
			continue
		}

		files = append(files, map[string]any{
			"path":     targetRel,
			"content":  content,
			"metadata": metadata,
		})
	}

	transcripts := []string{}

	if want, _ := p["include_transcripts"].(bool); want {
		transcriptsRoot := filepath.Join(ctx.LibraryRoot, "transcripts")
		if isDir(transcriptsRoot) {
			transcripts = collectFilePaths(ctx.LibraryRoot, transcriptsRoot)
			sort.Slice(transcripts, func(i, j int) bool {
				left, right := transcripts[i], transcripts[j]
				if base := strings.Compare(filepath.Base(left), filepath.Base(right)); base != 0 {
					return base < 0
				}

				return left < right
			})
		}
	}

	return map[string]any{"files": files, "missing": missing, "transcripts": transcripts}, nil
}

// projectCandidates expands a path or bare name into the candidate project
// directories to probe.
func projectCandidates(p map[string]any) ([]string, error) {
	if rawPath, hasPath := p["path"]; hasPath {
		path, err := payload.String("path", rawPath)
		if err != nil {
			return nil, err
		}

		return []string{path}, nil
	}

	rawName, hasName := p["name"]
	if !hasName {
		return nil, mcperr.New(
			"MISSING_PATH",
			"Path or name is required.",
			map[string]any{"fields": []string{"path", "name"}},
		)
	}

	name, err := payload.String("name", rawName)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, mcperr.New("INVALID_NAME", "Name must be a non-empty string.", map[string]any{"name": name})
	}

	if strings.ContainsAny(name, "/\\") {
		return []string{name}, nil
	}

	return []string{"projects/active/" + name, "projects/" + name}, nil
}

func projectPath(p map[string]any) (string, error) {
	candidates, err := projectCandidates(p)
	if err != nil {
		return "", err
	}

	return candidates[0], nil
}

func resolveProjectFile(ctx *Context, combined, content string, seen map[string]struct{}) (projectFile, error) {
	abs, err := pathguard.Validate(ctx.LibraryRoot, combined)
	if err != nil {
		return projectFile{}, err
	}

	if !isMarkdownPath(abs) {
		return projectFile{}, mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": combined})
	}

	rel := pathguard.Relative(ctx.LibraryRoot, abs)

	if _, dup := seen[rel]; dup {
		return projectFile{}, mcperr.New("DUPLICATE_FILES", "Duplicate file paths are not allowed.", map[string]any{"path": rel})
	}

	seen[rel] = struct{}{}

	if pathExists(abs) {
		return projectFile{}, mcperr.New("FILE_EXISTS", "Markdown file already exists.", map[string]any{"path": rel})
	}

	return projectFile{abs: abs, rel: rel, content: content}, nil
}
