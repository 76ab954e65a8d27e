package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"github.com/braindrive/library/pkg/atomicfile"
)

// ApplyResult reports what a schema bootstrap touched, all as slash paths
// relative to the library root.
type ApplyResult struct {
	// ChangedPaths is the sorted union of everything created or migrated.
	ChangedPaths []string

	// CreatedPaths lists new directories and files in creation order.
	CreatedPaths []string

	// MigratedPaths lists AGENT.md files copied from a legacy agents.md.
	MigratedPaths []string
}

// EnsureStructure creates the canonical library layout under libraryRoot
// without destructive writes: directories, seed documents, gitkeep markers,
// per-topic starter packs, current-period digest files, the schema version
// stamp, and a normalized onboarding state. Existing files are never
// overwritten.
func EnsureStructure(libraryRoot string, includeDigestPeriodFiles bool, today time.Time) (ApplyResult, error) {
	err := os.MkdirAll(libraryRoot, 0o755)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("create library root: %w", err)
	}

	var result ApplyResult

	changed := map[string]struct{}{}

	record := func(rel string, created bool) {
		changed[rel] = struct{}{}
		if created {
			result.CreatedPaths = append(result.CreatedPaths, rel)
		}
	}

	for _, rel := range requiredDirectories {
		target := filepath.Join(libraryRoot, filepath.FromSlash(rel))

		_, statErr := os.Stat(target)
		missing := os.IsNotExist(statErr)

		err = os.MkdirAll(target, 0o755)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("create directory %s: %w", rel, err)
		}

		if missing {
			record(rel, true)
		}
	}

	migrated, err := migrateLegacyAgents(libraryRoot)
	if err != nil {
		return ApplyResult{}, err
	}

	for _, rel := range migrated {
		result.MigratedPaths = append(result.MigratedPaths, rel)
		changed[rel] = struct{}{}
	}

	for _, file := range requiredTextFiles {
		wrote, writeErr := writeTextIfMissing(libraryRoot, file.path, file.content)
		if writeErr != nil {
			return ApplyResult{}, writeErr
		}

		if wrote {
			record(file.path, true)
		}
	}

	for _, topic := range TopicOrder {
		topicRel := "life/" + topic
		topicRoot := filepath.Join(libraryRoot, "life", topic)

		_, statErr := os.Stat(topicRoot)
		if os.IsNotExist(statErr) {
			err = os.MkdirAll(topicRoot, 0o755)
			if err != nil {
				return ApplyResult{}, fmt.Errorf("create topic directory %s: %w", topicRel, err)
			}

			record(topicRel, true)
		}

		for _, seed := range topicSeedFiles(topic) {
			rel := topicRel + "/" + seed.Name

			wrote, writeErr := writeTextIfMissing(libraryRoot, rel, seed.Content)
			if writeErr != nil {
				return ApplyResult{}, writeErr
			}

			if wrote {
				record(rel, true)
			}
		}
	}

	for _, rel := range gitkeepFiles {
		wrote, writeErr := writeTextIfMissing(libraryRoot, rel, "")
		if writeErr != nil {
			return ApplyResult{}, writeErr
		}

		if wrote {
			record(rel, true)
		}
	}

	if includeDigestPeriodFiles {
		for _, starter := range DigestStarterPaths(today) {
			wrote, writeErr := writeTextIfMissing(libraryRoot, starter.Path, starter.Content)
			if writeErr != nil {
				return ApplyResult{}, writeErr
			}

			if wrote {
				record(starter.Path, true)
			}
		}
	}

	versionWrote, err := ensureSchemaVersion(libraryRoot)
	if err != nil {
		return ApplyResult{}, err
	}

	if versionWrote {
		record(schemaVersionFile, false)
	}

	statePath, err := PersistState(libraryRoot, ReadState(libraryRoot))
	if err != nil {
		return ApplyResult{}, err
	}

	if statePath != "" {
		record(statePath, true)
	}

	result.ChangedPaths = make([]string, 0, len(changed))
	for rel := range changed {
		result.ChangedPaths = append(result.ChangedPaths, rel)
	}

	sort.Strings(result.ChangedPaths)

	return result, nil
}

// DigestStarter is one current-period digest seed.
type DigestStarter struct {
	Path    string
	Content string
}

// DigestStarterPaths builds the daily, weekly, monthly, and yearly digest
// seeds for the given date.
func DigestStarterPaths(today time.Time) []DigestStarter {
	isoYear, isoWeek := today.ISOWeek()
	date := today.Format("2006-01-02")
	week := fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)
	month := fmt.Sprintf("%04d-%02d", today.Year(), int(today.Month()))
	year := fmt.Sprintf("%04d", today.Year())

	return []DigestStarter{
		{
			Path:    fmt.Sprintf("digest/daily/%04d/%02d/%s.md", today.Year(), int(today.Month()), date),
			Content: fmt.Sprintf("# Daily Digest %s\n\n", date),
		},
		{
			Path:    fmt.Sprintf("digest/weekly/%04d/%s.md", isoYear, week),
			Content: fmt.Sprintf("# Weekly Digest %s\n\n", week),
		},
		{
			Path:    fmt.Sprintf("digest/monthly/%s/%s.md", year, month),
			Content: fmt.Sprintf("# Monthly Digest %s\n\n", month),
		},
		{
			Path:    fmt.Sprintf("digest/yearly/%s.md", year),
			Content: fmt.Sprintf("# Yearly Digest %s\n\n", year),
		},
	}
}

// writeTextIfMissing seeds a file unless it already exists.
func writeTextIfMissing(libraryRoot, rel, content string) (bool, error) {
	target := filepath.Join(libraryRoot, filepath.FromSlash(rel))

	_, err := os.Stat(target)
	if err == nil {
		return false, nil
	}

	err = os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return false, fmt.Errorf("create parent for %s: %w", rel, err)
	}

	err = atomicfile.WriteText(target, content)
	if err != nil {
		return false, fmt.Errorf("seed %s: %w", rel, err)
	}

	return true, nil
}

// ensureSchemaVersion rewrites the version stamp when missing or stale.
func ensureSchemaVersion(libraryRoot string) (bool, error) {
	target := filepath.Join(libraryRoot, ".braindrive", "schema-version.json")

	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return false, fmt.Errorf("create .braindrive: %w", err)
	}

	desired := map[string]any{"schema_version": SchemaVersion}

	if data, readErr := os.ReadFile(target); readErr == nil {
		var existing any
		if json.Unmarshal(data, &existing) == nil && reflect.DeepEqual(existing, reparse(desired)) {
			return false, nil
		}
	}

	encoded, err := json.MarshalIndent(desired, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode schema version: %w", err)
	}

	err = atomicfile.WriteText(target, string(encoded)+"\n")
	if err != nil {
		return false, fmt.Errorf("write schema version: %w", err)
	}

	return true, nil
}

// migrateLegacyAgents copies a legacy agents.md into AGENT.md in each
// canonical directory that lacks one. The legacy file stays in place.
func migrateLegacyAgents(libraryRoot string) ([]string, error) {
	var migrated []string

	for _, relDir := range agentMigrationDirectories {
		dir := libraryRoot
		if relDir != "." {
			dir = filepath.Join(libraryRoot, filepath.FromSlash(relDir))
		}

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		canonical := filepath.Join(dir, "AGENT.md")
		legacy := filepath.Join(dir, "agents.md")

		if _, err = os.Stat(canonical); err == nil {
			continue
		}

		content, err := os.ReadFile(legacy)
		if err != nil {
			continue
		}

		err = atomicfile.WriteBytes(canonical, content)
		if err != nil {
			return nil, fmt.Errorf("migrate %s: %w", relDir, err)
		}

		rel := "AGENT.md"
		if relDir != "." {
			rel = relDir + "/AGENT.md"
		}

		migrated = append(migrated, rel)
	}

	return migrated, nil
}
