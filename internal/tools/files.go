package tools

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/gitstore"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/pathguard"
)

func createDirectory(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "gitkeep")
	if err != nil {
		return nil, err
	}

	abs, _, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	gitkeep, _, err := payload.OptBool(p, "gitkeep")
	if err != nil {
		return nil, err
	}

	if pathExists(abs) && !isDir(abs) {
		return nil, mcperr.New("INVALID_PATH", "Path must reference a directory.", map[string]any{"path": rawPath})
	}

	err = os.MkdirAll(abs, 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Directory could not be created.", map[string]any{"path": rawPath})
	}

	var sha any

	if gitkeep {
		keepAbs := filepath.Join(abs, ".gitkeep")
		keepRel := pathguard.Relative(ctx.LibraryRoot, keepAbs)

		if !pathExists(keepAbs) {
			err = atomicfile.WriteText(keepAbs, "")
			if err != nil {
				return nil, mcperr.New("WRITE_ERROR", "Directory marker could not be written.", map[string]any{"path": rawPath})
			}
		}

		txn, err := engine.Begin(ctx.LibraryRoot)
		if err != nil {
			return nil, err
		}
		defer txn.Close()

		commitSha, err := txn.Commit(engine.Mutation{
			Operation: "create_directory",
			Target:    keepRel,
			Staged:    []string{keepRel},
			Summary:   "create directory",
			ErrorPath: rawPath,
			Rollback:  func() { txn.RemoveCreated(keepAbs, keepRel) },
		})
		if err != nil {
			return nil, err
		}

		sha = commitSha
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func listDirectory(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "recursive", "include_files", "include_dirs")
	if err != nil {
		return nil, err
	}

	abs, _, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	recursive, _, err := payload.OptBool(p, "recursive")
	if err != nil {
		return nil, err
	}

	includeFiles, hasFiles, err := payload.OptBool(p, "include_files")
	if err != nil {
		return nil, err
	}

	if !hasFiles {
		includeFiles = true
	}

	includeDirs, hasDirs, err := payload.OptBool(p, "include_dirs")
	if err != nil {
		return nil, err
	}

	if !hasDirs {
		includeDirs = true
	}

	if !pathExists(abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": rawPath})
	}

	if !isDir(abs) {
		return nil, mcperr.New("INVALID_PATH", "Path must reference a directory.", map[string]any{"path": rawPath})
	}

	files := []string{}
	dirs := []string{}

	visit := func(entryAbs string, entryIsDir bool) error {
		rel := pathguard.Relative(ctx.LibraryRoot, entryAbs)

		if entryIsDir {
			if includeDirs {
				dirs = append(dirs, rel)
			}
		} else if includeFiles {
			files = append(files, rel)
		}

		return nil
	}

	if recursive {
		err = walkNoSymlinks(abs, visit)
	} else {
		err = listImmediate(abs, visit)
	}

	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Directory could not be listed.", map[string]any{"path": rawPath})
	}

	sort.Strings(files)
	sort.Strings(dirs)

	return map[string]any{"files": files, "directories": dirs}, nil
}

func listImmediate(dir string, visit func(abs string, isDir bool) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		err = visit(filepath.Join(dir, entry.Name()), entry.IsDir())
		if err != nil {
			return err
		}
	}

	return nil
}

func readFileMetadata(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": rawPath})
	}

	return map[string]any{
		"path":         rel,
		"isDir":        info.IsDir(),
		"isFile":       info.Mode().IsRegular(),
		"sizeBytes":    info.Size(),
		"lastModified": info.ModTime().UTC().Format(time.RFC3339Nano),
		"gitHead":      gitstore.ResolveHead(ctx.LibraryRoot),
	}, nil
}

func movePath(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "from_path", "to_path", "overwrite")
	if err != nil {
		return nil, err
	}

	source, destination, overwrite, err := sourceDestination(ctx, p)
	if err != nil {
		return nil, err
	}

	if pathExists(destination.abs) && overwrite {
		err = removeTarget(destination.abs, true)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Destination could not be replaced.", map[string]any{"path": destination.raw})
		}
	}

	prePaths := collectFilePaths(ctx.LibraryRoot, source.abs)

	err = os.MkdirAll(filepath.Dir(destination.abs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Destination directory could not be created.", map[string]any{"path": destination.raw})
	}

	err = os.Rename(source.abs, destination.abs)
	if err != nil {
		err = copyThenRemove(source.abs, destination.abs)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Path could not be moved.", map[string]any{"path": source.raw})
		}
	}

	postPaths := collectFilePaths(ctx.LibraryRoot, destination.abs)
	staged := mergePaths(prePaths, postPaths)

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	sha, err := txn.CommitKeepFiles(engine.Mutation{
		Operation: "move_path",
		Target:    destination.rel,
		Staged:    staged,
		Summary:   "move path",
	}, "Git commit failed; mutation rolled back.", map[string]any{"path": source.raw, "operation": "move_path"})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func copyPath(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "from_path", "to_path", "overwrite")
	if err != nil {
		return nil, err
	}

	source, destination, overwrite, err := sourceDestination(ctx, p)
	if err != nil {
		return nil, err
	}

	if pathExists(destination.abs) && overwrite {
		err = removeTarget(destination.abs, true)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Destination could not be replaced.", map[string]any{"path": destination.raw})
		}
	}

	err = os.MkdirAll(filepath.Dir(destination.abs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Destination directory could not be created.", map[string]any{"path": destination.raw})
	}

	err = copyTree(source.abs, destination.abs)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Path could not be copied.", map[string]any{"path": source.raw})
	}

	postPaths := collectFilePaths(ctx.LibraryRoot, destination.abs)

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	sha, err := txn.CommitKeepFiles(engine.Mutation{
		Operation: "copy_path",
		Target:    destination.rel,
		Staged:    postPaths,
		Summary:   "copy path",
	}, "Git commit failed; mutation rolled back.", map[string]any{"path": destination.raw, "operation": "copy_path"})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func deletePath(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "confirm", "recursive")
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

	recursive, _, err := payload.OptBool(p, "recursive")
	if err != nil {
		return nil, err
	}

	if !pathExists(abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": rawPath})
	}

	if isDir(abs) && !recursive {
		return nil, mcperr.New("RECURSIVE_REQUIRED", "Directory deletion requires recursive=true.", map[string]any{"path": rawPath})
	}

	prePaths := collectFilePaths(ctx.LibraryRoot, abs)

	err = removeTarget(abs, recursive)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Path could not be deleted.", map[string]any{"path": rawPath})
	}

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	sha, err := txn.CommitKeepFiles(engine.Mutation{
		Operation: "delete_path",
		Target:    rel,
		Staged:    prePaths,
		Summary:   "delete path",
	}, "Git commit failed; mutation rolled back.", map[string]any{"path": rawPath, "operation": "delete_path"})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func writeBinary(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "content_base64", "content_type")
	if err != nil {
		return nil, err
	}

	abs, rel, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	rawContent, err := payload.Require(p, "content_base64", "MISSING_CONTENT", "content_base64 is required.")
	if err != nil {
		return nil, err
	}

	encoded, err := payload.String("content_base64", rawContent)
	if err != nil {
		return nil, err
	}

	content, err := base64.StdEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return nil, mcperr.New("INVALID_CONTENT", "content_base64 must be valid base64.", map[string]any{"path": rawPath})
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

	err = atomicfile.WriteBytes(abs, content)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "File could not be written.", map[string]any{"path": rawPath})
	}

	sha, err := txn.Commit(engine.Mutation{
		Operation: "write_binary",
		Target:    rel,
		Staged:    []string{rel},
		Summary:   "write binary",
		ErrorPath: rawPath,
		Rollback:  func() { txn.RemoveCreated(abs, rel) },
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "commitSha": sha}, nil
}

func previewMovePath(ctx *Context, p map[string]any) (map[string]any, error) {
	return previewTransfer(ctx, p)
}

func previewCopyPath(ctx *Context, p map[string]any) (map[string]any, error) {
	return previewTransfer(ctx, p)
}

func previewTransfer(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "from_path", "to_path", "overwrite")
	if err != nil {
		return nil, err
	}

	rawFrom, hasFrom := p["from_path"]
	rawTo, hasTo := p["to_path"]

	if !hasFrom || !hasTo {
		return nil, mcperr.New(
			"MISSING_PATH",
			"from_path and to_path are required.",
			map[string]any{"fields": []string{"from_path", "to_path"}},
		)
	}

	_, _, err = payload.OptBool(p, "overwrite")
	if err != nil {
		return nil, err
	}

	source, err := resolveField(ctx, "from_path", rawFrom)
	if err != nil {
		return nil, err
	}

	destination, err := resolveField(ctx, "to_path", rawTo)
	if err != nil {
		return nil, err
	}

	if !pathExists(source.abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Source path does not exist.", map[string]any{"path": source.raw})
	}

	mappings, conflicts := buildPathMappings(ctx.LibraryRoot, source.abs, destination.abs)

	return map[string]any{
		"mappings":  mappings,
		"conflicts": conflicts,
		"summary":   map[string]any{"files": len(mappings)},
	}, nil
}

func previewDeletePath(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "path", "recursive")
	if err != nil {
		return nil, err
	}

	abs, _, rawPath, err := requirePath(ctx, p)
	if err != nil {
		return nil, err
	}

	recursive, _, err := payload.OptBool(p, "recursive")
	if err != nil {
		return nil, err
	}

	if !pathExists(abs) {
		return nil, mcperr.New("FILE_NOT_FOUND", "Path does not exist.", map[string]any{"path": rawPath})
	}

	if isDir(abs) && !recursive {
		return nil, mcperr.New("RECURSIVE_REQUIRED", "Directory deletion requires recursive=true.", map[string]any{"path": rawPath})
	}

	paths := collectFilePaths(ctx.LibraryRoot, abs)
	if paths == nil {
		paths = []string{}
	}

	return map[string]any{
		"paths":   paths,
		"summary": map[string]any{"files": len(paths)},
	}, nil
}

type resolvedPath struct {
	abs string
	rel string
	raw string
}

// sourceDestination validates the from_path/to_path pair shared by the
// transfer tools, requiring an existing source.
func sourceDestination(ctx *Context, p map[string]any) (resolvedPath, resolvedPath, bool, error) {
	var source, destination resolvedPath

	rawFrom, hasFrom := p["from_path"]
	rawTo, hasTo := p["to_path"]

	if !hasFrom || !hasTo {
		return source, destination, false, mcperr.New(
			"MISSING_PATH",
			"from_path and to_path are required.",
			map[string]any{"fields": []string{"from_path", "to_path"}},
		)
	}

	overwrite, _, err := payload.OptBool(p, "overwrite")
	if err != nil {
		return source, destination, false, err
	}

	source, err = resolveField(ctx, "from_path", rawFrom)
	if err != nil {
		return source, destination, false, err
	}

	destination, err = resolveField(ctx, "to_path", rawTo)
	if err != nil {
		return source, destination, false, err
	}

	if !pathExists(source.abs) {
		return source, destination, false, mcperr.New(
			"FILE_NOT_FOUND",
			"Source path does not exist.",
			map[string]any{"path": source.raw},
		)
	}

	if pathExists(destination.abs) && !overwrite {
		return source, destination, false, mcperr.New(
			"PATH_EXISTS",
			"Destination already exists.",
			map[string]any{"path": destination.raw},
		)
	}

	return source, destination, overwrite, nil
}

func resolveField(ctx *Context, field string, raw any) (resolvedPath, error) {
	value, err := payload.String(field, raw)
	if err != nil {
		return resolvedPath{}, err
	}

	abs, err := pathguard.Validate(ctx.LibraryRoot, value)
	if err != nil {
		return resolvedPath{}, err
	}

	return resolvedPath{
		abs: abs,
		rel: pathguard.Relative(ctx.LibraryRoot, abs),
		raw: fmt.Sprint(raw),
	}, nil
}

// mergePaths keeps pre-move paths first and appends new destination paths.
func mergePaths(pre, post []string) []string {
	seen := make(map[string]struct{}, len(pre))
	merged := make([]string, 0, len(pre)+len(post))

	for _, path := range pre {
		seen[path] = struct{}{}
		merged = append(merged, path)
	}

	for _, path := range post {
		if _, ok := seen[path]; !ok {
			merged = append(merged, path)
		}
	}

	return merged
}

func copyThenRemove(source, destination string) error {
	err := copyTree(source, destination)
	if err != nil {
		return err
	}

	return os.RemoveAll(source)
}

// buildPathMappings projects the per-file from/to pairs a transfer would
// produce, flagging destinations that already exist.
func buildPathMappings(libraryRoot, source, destination string) ([]map[string]string, []string) {
	mappings := []map[string]string{}
	conflicts := []string{}

	if isFile(source) {
		destPath := destination
		if isDir(destination) {
			destPath = filepath.Join(destination, filepath.Base(source))
		}

		relTo := pathguard.Relative(libraryRoot, destPath)
		mappings = append(mappings, map[string]string{
			"from": pathguard.Relative(libraryRoot, source),
			"to":   relTo,
		})

		if pathExists(destPath) {
			conflicts = append(conflicts, relTo)
		}

		return mappings, conflicts
	}

	_ = walkNoSymlinks(source, func(abs string, entryIsDir bool) error {
		if entryIsDir {
			return nil
		}

		relative, err := filepath.Rel(source, abs)
		if err != nil {
			return nil
		}

		destPath := filepath.Join(destination, relative)
		relTo := pathguard.Relative(libraryRoot, destPath)
		mappings = append(mappings, map[string]string{
			"from": pathguard.Relative(libraryRoot, abs),
			"to":   relTo,
		})

		if pathExists(destPath) {
			conflicts = append(conflicts, relTo)
		}

		return nil
	})

	return mappings, conflicts
}
