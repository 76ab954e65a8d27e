package gitstore

import (
	"os"
	"path/filepath"
	"strings"
)

// HeadState captures where HEAD pointed before a mutation so a failed
// journal append can restore it after the commit already landed.
//
// RefPath is the on-disk ref file when HEAD is symbolic, empty when HEAD is
// detached or absent. Commit is the 40-hex target, empty on an unborn
// branch.
type HeadState struct {
	RefPath string
	Commit  string
}

// ResolveHead reads the current HEAD commit id directly from the .git
// directory. Returns an empty string when the repository is absent or the
// branch is unborn.
func ResolveHead(root string) string {
	return ReadHeadState(root).Commit
}

// ReadHeadState captures the HEAD ref file and its current target.
func ReadHeadState(root string) HeadState {
	gitDir := filepath.Join(root, ".git")
	headPath := filepath.Join(gitDir, "HEAD")

	raw, err := os.ReadFile(headPath)
	if err != nil {
		return HeadState{}
	}

	contents := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(contents, "ref:") {
		return HeadState{Commit: contents}
	}

	refName := strings.TrimSpace(strings.TrimPrefix(contents, "ref:"))
	if refName == "" {
		return HeadState{}
	}

	refPath := filepath.Join(gitDir, filepath.FromSlash(refName))

	refRaw, refErr := os.ReadFile(refPath)
	if refErr == nil {
		return HeadState{RefPath: refPath, Commit: strings.TrimSpace(string(refRaw))}
	}

	packed := lookupPackedRef(filepath.Join(gitDir, "packed-refs"), refName)

	return HeadState{RefPath: refPath, Commit: packed}
}

// RestoreHead rewinds HEAD to a previously captured state. Errors are
// swallowed: restore runs inside failure paths where the original error
// must surface, not this one.
func RestoreHead(root string, state HeadState) {
	headPath := filepath.Join(root, ".git", "HEAD")

	if state.RefPath == "" {
		if state.Commit == "" {
			return
		}

		_, err := os.Stat(headPath)
		if err != nil {
			return
		}

		_ = os.WriteFile(headPath, []byte(state.Commit+"\n"), 0o644)

		return
	}

	if state.Commit == "" {
		// Unborn branch: drop the ref file created by the commit.
		_ = os.Remove(state.RefPath)

		return
	}

	err := os.MkdirAll(filepath.Dir(state.RefPath), 0o755)
	if err != nil {
		return
	}

	_ = os.WriteFile(state.RefPath, []byte(state.Commit+"\n"), 0o644)
}

// lookupPackedRef scans the packed-refs file for the given ref name.
func lookupPackedRef(packedPath, refName string) string {
	raw, err := os.ReadFile(packedPath)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}

		sha, name, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}

		if strings.TrimSpace(name) == refName {
			return sha
		}
	}

	return ""
}
