// Package atomicfile writes files through a same-directory temp file and
// rename, so concurrent readers never observe partial content.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteText atomically replaces the file at path with content.
func WriteText(path, content string) error {
	return WriteBytes(path, []byte(content))
}

// WriteBytes atomically replaces the file at path with content. The temp
// file is created in the target directory so the final rename stays on one
// filesystem.
func WriteBytes(path string, content []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".atomic-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_, err = tmp.Write(content)
	if err != nil {
		tmp.Close()

		return fmt.Errorf("write temp file: %w", err)
	}

	err = tmp.Sync()
	if err != nil {
		tmp.Close()

		return fmt.Errorf("sync temp file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
