// Package gitstore manages the embedded commit history of a library root
// through libgit2. Every successful mutation becomes exactly one commit.
package gitstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

const (
	committerName  = "BrainDrive Library"
	committerEmail = "library@braindrive.local"
)

// Store wraps a libgit2 repository rooted at the library directory.
type Store struct {
	repo *git2go.Repository
	root string
}

// Ensure opens the repository at root, initializing a fresh one when no
// .git directory exists yet.
func Ensure(root string) (*Store, error) {
	gitDir := filepath.Join(root, ".git")

	_, err := os.Stat(gitDir)
	if err == nil {
		repo, openErr := git2go.OpenRepository(root)
		if openErr != nil {
			return nil, fmt.Errorf("open repository: %w", openErr)
		}

		return &Store{repo: repo, root: root}, nil
	}

	repo, err := git2go.InitRepository(root, false)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}

	return &Store{repo: repo, root: root}, nil
}

// Root returns the working tree root.
func (s *Store) Root() string {
	return s.root
}

// Free releases the underlying repository resources.
func (s *Store) Free() {
	if s.repo != nil {
		s.repo.Free()
		s.repo = nil
	}
}

// Stage records the given worktree paths (slash-separated, relative to the
// root) in the index. Existing files are added; missing files are removed
// from the index, which stages deletions. Untracked missing paths are
// ignored.
func (s *Store) Stage(paths ...string) error {
	idx, err := s.repo.Index()
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Free()

	for _, rel := range paths {
		abs := filepath.Join(s.root, filepath.FromSlash(rel))

		_, statErr := os.Lstat(abs)
		if statErr == nil {
			addErr := idx.AddByPath(rel)
			if addErr != nil {
				return fmt.Errorf("stage %s: %w", rel, addErr)
			}

			continue
		}

		// Removing a path that was never tracked is not an error.
		_ = idx.RemoveByPath(rel)
	}

	err = idx.Write()
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return nil
}

// Commit records the staged index as a new commit on HEAD and returns the
// 40-hex commit id.
func (s *Store) Commit(message string) (string, error) {
	idx, err := s.repo.Index()
	if err != nil {
		return "", fmt.Errorf("open index: %w", err)
	}
	defer idx.Free()

	treeOid, err := idx.WriteTree()
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}

	tree, err := s.repo.LookupTree(treeOid)
	if err != nil {
		return "", fmt.Errorf("lookup tree: %w", err)
	}
	defer tree.Free()

	sig := &git2go.Signature{
		Name:  committerName,
		Email: committerEmail,
		When:  time.Now(),
	}

	parents, err := s.headParents()
	if err != nil {
		return "", err
	}

	defer func() {
		for _, parent := range parents {
			parent.Free()
		}
	}()

	oid, err := s.repo.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	if err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}

	return oid.String(), nil
}

// headParents returns the current HEAD commit as the parent list, or an
// empty list on an unborn branch.
func (s *Store) headParents() ([]*git2go.Commit, error) {
	head, err := s.repo.Head()
	if err != nil {
		// Unborn HEAD: the first commit has no parents.
		return nil, nil
	}
	defer head.Free()

	parent, err := s.repo.LookupCommit(head.Target())
	if err != nil {
		return nil, fmt.Errorf("lookup HEAD commit: %w", err)
	}

	return []*git2go.Commit{parent}, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (s *Store) Native() *git2go.Repository {
	return s.repo
}
