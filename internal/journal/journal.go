// Package journal appends and reads the per-library activity log: one
// compact JSON object per line, fsynced on every append.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Filename is the activity log file at the library root.
const Filename = "activity.log"

// timestampLayout matches ISO-8601 with a numeric UTC offset.
const timestampLayout = "2006-01-02T15:04:05.999999-07:00"

// Entry is a single activity record.
type Entry struct {
	Timestamp string
	Operation string
	Path      string
	Summary   string
	CommitSHA string
}

// NewEntry builds an entry stamped with the current UTC time.
func NewEntry(operation, relPath, summary, commitSHA string) Entry {
	return Entry{
		Timestamp: time.Now().UTC().Format(timestampLayout),
		Operation: operation,
		Path:      relPath,
		Summary:   summary,
		CommitSHA: commitSHA,
	}
}

// Path returns the activity log path for a library root.
func Path(libraryRoot string) string {
	return filepath.Join(libraryRoot, Filename)
}

// Append writes the entry as one line of compact JSON with sorted keys and
// fsyncs before returning.
func Append(libraryRoot string, entry Entry) error {
	// Maps serialize with sorted keys, which keeps lines byte-stable.
	payload, err := json.Marshal(map[string]string{
		"timestamp": entry.Timestamp,
		"operation": entry.Operation,
		"path":      entry.Path,
		"summary":   entry.Summary,
		"commitSha": entry.CommitSHA,
	})
	if err != nil {
		return fmt.Errorf("encode activity entry: %w", err)
	}

	file, err := os.OpenFile(Path(libraryRoot), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer file.Close()

	_, err = file.Write(append(payload, '\n'))
	if err != nil {
		return fmt.Errorf("append activity entry: %w", err)
	}

	err = file.Sync()
	if err != nil {
		return fmt.Errorf("sync activity log: %w", err)
	}

	return nil
}

// Read returns up to limit entries, newest last. Malformed lines are
// skipped. When since is non-nil, entries older than it are filtered out;
// entries with unparseable timestamps are kept.
func Read(libraryRoot string, since *time.Time, limit int) ([]map[string]any, error) {
	raw, err := os.ReadFile(Path(libraryRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return []map[string]any{}, nil
		}

		return nil, fmt.Errorf("read activity log: %w", err)
	}

	entries := make([]map[string]any, 0)

	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry map[string]any

		err := json.Unmarshal([]byte(line), &entry)
		if err != nil {
			continue
		}

		if since != nil && entryBefore(entry, *since) {
			continue
		}

		entries = append(entries, entry)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return entries, nil
}

// entryBefore reports whether the entry timestamp parses and predates since.
func entryBefore(entry map[string]any, since time.Time) bool {
	raw, ok := entry["timestamp"].(string)
	if !ok {
		return false
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false
	}

	return parsed.Before(since)
}
