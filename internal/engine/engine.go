// Package engine drives the transactional mutation pipeline shared by every
// mutating tool: apply the change, commit it, journal it, and roll back the
// worktree (and HEAD, once the commit landed) at each failure boundary.
package engine

import (
	"fmt"
	"os"

	"github.com/braindrive/library/internal/journal"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/gitstore"
	"github.com/braindrive/library/pkg/mcperr"
)

// Mutation describes one committed change.
type Mutation struct {
	// Operation names the tool, used in the commit message and journal.
	Operation string

	// Target is the slash path recorded in the commit message.
	Target string

	// Staged lists every worktree path the commit covers.
	Staged []string

	// Summary is the journal summary line.
	Summary string

	// ErrorPath is the caller-supplied path echoed in error details.
	ErrorPath string

	// Rollback restores the pre-mutation worktree. Called when the commit
	// or the journal append fails.
	Rollback func()
}

// Txn is an open mutation transaction: the repository handle plus the HEAD
// state captured before any change was applied.
type Txn struct {
	root  string
	store *gitstore.Store
	head  gitstore.HeadState
}

// Begin opens the commit store for a library root, initializing it on first
// use, and captures the current HEAD state.
func Begin(libraryRoot string) (*Txn, error) {
	store, err := gitstore.Ensure(libraryRoot)
	if err != nil {
		return nil, mcperr.New(
			"GIT_ERROR",
			"Git repository could not be initialized.",
			map[string]any{"path": libraryRoot},
		)
	}

	return &Txn{
		root:  libraryRoot,
		store: store,
		head:  gitstore.ReadHeadState(libraryRoot),
	}, nil
}

// Close releases the repository handle.
func (t *Txn) Close() {
	t.store.Free()
}

// Store exposes the open commit store for staged rollbacks.
func (t *Txn) Store() *gitstore.Store {
	return t.store
}

// Commit stages and commits the mutation, then journals it. On commit
// failure the worktree rollback runs and GIT_ERROR is returned; on journal
// failure the rollback runs, HEAD is restored to its pre-commit state, and
// LOG_ERROR is returned.
func (t *Txn) Commit(m Mutation) (string, error) {
	sha, err := t.commitStaged(m)
	if err != nil {
		if m.Rollback != nil {
			m.Rollback()
		}

		return "", mcperr.New(
			"GIT_ERROR",
			"Git commit failed; mutation rolled back.",
			map[string]any{"path": m.ErrorPath, "operation": m.Operation},
		)
	}

	entry := journal.NewEntry(m.Operation, m.Target, m.Summary, sha)

	err = journal.Append(t.root, entry)
	if err != nil {
		if m.Rollback != nil {
			m.Rollback()
		}

		gitstore.RestoreHead(t.root, t.head)

		return "", mcperr.New(
			"LOG_ERROR",
			"Activity log write failed; mutation rolled back.",
			map[string]any{"path": m.ErrorPath, "operation": m.Operation},
		)
	}

	return sha, nil
}

// CommitKeepFiles commits and journals like Commit but leaves the worktree
// alone on failure; only HEAD is restored when the journal append fails. The
// GIT_ERROR message and details come from the caller.
func (t *Txn) CommitKeepFiles(m Mutation, gitMessage string, details map[string]any) (string, error) {
	sha, err := t.commitStaged(m)
	if err != nil {
		return "", mcperr.New("GIT_ERROR", gitMessage, details)
	}

	entry := journal.NewEntry(m.Operation, m.Target, m.Summary, sha)

	err = journal.Append(t.root, entry)
	if err != nil {
		gitstore.RestoreHead(t.root, t.head)

		return "", mcperr.New("LOG_ERROR", "Activity log write failed.", details)
	}

	return sha, nil
}

func (t *Txn) commitStaged(m Mutation) (string, error) {
	err := t.store.Stage(m.Staged...)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("%s: %s", m.Operation, m.Target)

	sha, err := t.store.Commit(message)
	if err != nil {
		return "", err
	}

	return sha, nil
}

// RestoreText atomically rewrites a file with its original text and
// restages it so the index matches the worktree again. Best effort: this
// runs inside failure paths.
func (t *Txn) RestoreText(abs, rel, original string) {
	_ = atomicfile.WriteText(abs, original)
	_ = t.store.Stage(rel)
}

// RestoreBytes is RestoreText for binary content.
func (t *Txn) RestoreBytes(abs, rel string, original []byte) {
	_ = atomicfile.WriteBytes(abs, original)
	_ = t.store.Stage(rel)
}

// RemoveCreated deletes a freshly created file and restages its path.
func (t *Txn) RemoveCreated(abs, rel string) {
	_ = os.Remove(abs)
	_ = t.store.Stage(rel)
}

// RemoveCreatedTree deletes freshly created files, prunes any directories
// left empty under dir (deepest first), and restages the paths.
func (t *Txn) RemoveCreatedTree(created []string, dir string, rels []string) {
	for _, abs := range created {
		_ = os.Remove(abs)
	}

	pruneEmptyDirs(dir)

	_ = t.store.Stage(rels...)
}

// pruneEmptyDirs removes dir and its subdirectories bottom-up, stopping at
// any directory that still has entries.
func pruneEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			pruneEmptyDirs(dir + string(os.PathSeparator) + entry.Name())
		}
	}

	_ = os.Remove(dir)
}
