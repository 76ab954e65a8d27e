// Package tools implements the tool surface: every named tool is a handler
// over a validated payload, scoped to one tenant's library root. Handlers
// return the data half of the response envelope; transports wrap it.
package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/gitstore"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/pathguard"
)

// Context carries the per-request tenant scope plus service configuration a
// handler may need.
type Context struct {
	// LibraryRoot is the tenant's library directory.
	LibraryRoot string

	// TemplatePath optionally points at a base library template projected
	// into fresh tenant libraries during bootstrap.
	TemplatePath string

	// Now stamps mutations; tests pin it.
	Now func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now().UTC()
}

// Handler executes one tool against a decoded payload.
type Handler func(ctx *Context, p map[string]any) (map[string]any, error)

// markdownExtensions are the file suffixes the markdown tools accept.
func isMarkdownPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}

	return false
}

func resolvePath(ctx *Context, rawPath any) (string, string, error) {
	pathValue, err := payload.String("path", rawPath)
	if err != nil {
		return "", "", err
	}

	abs, err := pathguard.Validate(ctx.LibraryRoot, pathValue)
	if err != nil {
		return "", "", err
	}

	return abs, pathguard.Relative(ctx.LibraryRoot, abs), nil
}

func requirePath(ctx *Context, p map[string]any) (string, string, string, error) {
	raw, err := payload.Require(p, "path", "MISSING_PATH", "Path is required.")
	if err != nil {
		return "", "", "", err
	}

	abs, rel, err := resolvePath(ctx, raw)
	if err != nil {
		return "", "", "", err
	}

	return abs, rel, fmt.Sprint(raw), nil
}

func requireMarkdownFile(abs, rawPath string) (string, error) {
	if !isMarkdownPath(abs) {
		return "", mcperr.New("NOT_MARKDOWN", "Only markdown files are allowed.", map[string]any{"path": rawPath})
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", mcperr.New("FILE_NOT_FOUND", "Markdown file does not exist.", map[string]any{"path": rawPath})
	}

	if err != nil {
		return "", mcperr.New("FILE_READ_FAILED", "Markdown file could not be read.", map[string]any{"path": rawPath})
	}

	if info.IsDir() {
		return "", mcperr.New("INVALID_PATH", "Path must reference a file.", map[string]any{"path": rawPath})
	}

	content, err := readUTF8(abs, rawPath)
	if err != nil {
		return "", err
	}

	return content, nil
}

func readUTF8(abs, rawPath string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", mcperr.New("FILE_READ_FAILED", "Markdown file could not be read.", map[string]any{"path": rawPath})
	}

	if !utf8.Valid(data) {
		return "", mcperr.New("INVALID_ENCODING", "Markdown file must be UTF-8 encoded.", map[string]any{"path": rawPath})
	}

	return string(data), nil
}

func ensureParentDir(abs, rawPath string) error {
	parent := filepath.Dir(abs)

	info, err := os.Stat(parent)
	if err == nil && !info.IsDir() {
		return mcperr.New("INVALID_PATH", "Parent path must be a directory.", map[string]any{"path": rawPath})
	}

	err = os.MkdirAll(parent, 0o755)
	if err != nil {
		return mcperr.New("WRITE_ERROR", "Parent directory could not be created.", map[string]any{"path": rawPath})
	}

	return nil
}

// buildMetadata assembles the metadata block returned with file reads.
func buildMetadata(libraryRoot, abs string) (map[string]any, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}

	return map[string]any{
		"path":         pathguard.Relative(libraryRoot, abs),
		"sizeBytes":    info.Size(),
		"lastModified": info.ModTime().UTC().Format(time.RFC3339Nano),
		"gitHead":      gitstore.ResolveHead(libraryRoot),
	}, nil
}

// collectMarkdownFiles walks a directory and returns sorted relative slash
// paths of markdown files, skipping symlinks.
func collectMarkdownFiles(libraryRoot, start string) ([]string, error) {
	files := []string{}

	err := walkNoSymlinks(start, func(abs string, isDir bool) error {
		if isDir || !isMarkdownPath(abs) {
			return nil
		}

		files = append(files, pathguard.Relative(libraryRoot, abs))

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}

// collectFilePaths gathers the relative paths of every regular file under
// target (or target itself), excluding anything inside .git.
func collectFilePaths(libraryRoot, target string) []string {
	var paths []string

	info, err := os.Lstat(target)
	if err != nil {
		return paths
	}

	if !info.IsDir() {
		rel := pathguard.Relative(libraryRoot, target)
		if !insideGitDir(rel) {
			paths = append(paths, rel)
		}

		return paths
	}

	_ = walkNoSymlinks(target, func(abs string, isDir bool) error {
		if isDir {
			return nil
		}

		rel := pathguard.Relative(libraryRoot, abs)
		if !insideGitDir(rel) {
			paths = append(paths, rel)
		}

		return nil
	})

	sort.Strings(paths)

	return paths
}

func insideGitDir(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if part == ".git" {
			return true
		}
	}

	return false
}

// walkNoSymlinks traverses a tree in sorted order without following
// symlinks; symlinked entries are skipped entirely.
func walkNoSymlinks(dir string, visit func(abs string, isDir bool) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		abs := filepath.Join(dir, entry.Name())

		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		if entry.IsDir() {
			err = visit(abs, true)
			if err != nil {
				return err
			}

			err = walkNoSymlinks(abs, visit)
			if err != nil {
				return err
			}

			continue
		}

		err = visit(abs, false)
		if err != nil {
			return err
		}
	}

	return nil
}

// copyTree copies a file or directory recursively; destination must not
// exist for directories.
func copyTree(source, destination string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return copyFile(source, destination, info)
	}

	err = os.MkdirAll(destination, info.Mode().Perm())
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		err = copyTree(filepath.Join(source, entry.Name()), filepath.Join(destination, entry.Name()))
		if err != nil {
			return err
		}
	}

	return nil
}

func copyFile(source, destination string, info os.FileInfo) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()

		return err
	}

	return out.Close()
}

// removeTarget deletes a file, or a directory when recursive.
func removeTarget(abs string, recursive bool) error {
	info, err := os.Lstat(abs)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if recursive {
			return os.RemoveAll(abs)
		}

		return os.Remove(abs)
	}

	return os.Remove(abs)
}

func pathExists(abs string) bool {
	_, err := os.Lstat(abs)

	return err == nil
}

func isDir(abs string) bool {
	info, err := os.Stat(abs)

	return err == nil && info.IsDir()
}

func isFile(abs string) bool {
	info, err := os.Stat(abs)

	return err == nil && info.Mode().IsRegular()
}
