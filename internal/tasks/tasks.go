// Package tasks implements the pulse task ledger: checkbox task lines in
// pulse/index.md, monthly completion logs under pulse/completed, and the
// scope inference that ties tasks to life topics and projects.
package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// IndexPath is the open task ledger, relative to the library root.
const IndexPath = "pulse/index.md"

// LegacyArchivePath held completed tasks before monthly completion logs.
const LegacyArchivePath = "pulse/archive.md"

var taskLinePattern = regexp.MustCompile(`^- \[([ xX])\] T-(\d+)\s*\|\s*(.*)$`)

var priorityTokens = map[string]struct{}{
	"p0": {}, "p1": {}, "p2": {}, "p3": {},
	"high": {}, "medium": {}, "low": {},
}

// Task is one ledger entry. Pointer fields render as JSON null when the
// task line does not carry them.
type Task struct {
	ID         int      `json:"id"`
	Status     string   `json:"status"`
	Title      string   `json:"title"`
	Priority   *string  `json:"priority"`
	Owner      *string  `json:"owner"`
	Tags       []string `json:"tags"`
	Project    *string  `json:"project"`
	Due        *string  `json:"due"`
	ScopePath  *string  `json:"scopePath"`
	ScopeRoot  *string  `json:"scopeRoot"`
	ScopeType  *string  `json:"scopeType"`
	ScopeName  *string  `json:"scopeName"`
	Raw        string   `json:"raw,omitempty"`
	SourcePath string   `json:"sourcePath,omitempty"`
}

func strptr(s string) *string {
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}

	return *p
}

// Parse extracts tasks from ledger content. It returns the parsed tasks and
// the raw lines, task lines included, so callers can rewrite the file.
func Parse(content string) ([]*Task, []string) {
	var tasks []*Task

	var lines []string

	for _, line := range splitLines(content) {
		match := taskLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			lines = append(lines, line)

			continue
		}

		id, _ := strconv.Atoi(match[2])

		status := " "
		if strings.EqualFold(match[1], "x") {
			status = "x"
		}

		task := &Task{
			ID:     id,
			Status: status,
			Tags:   []string{},
			Raw:    line,
		}

		var titleParts []string

		for _, part := range strings.Split(match[3], "|") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			lower := strings.ToLower(part)

			switch {
			case hasPriorityToken(lower):
				task.Priority = strptr(lower)
			case strings.HasPrefix(lower, "owner:"):
				task.Owner = strptr(valueAfterColon(part))
			case strings.HasPrefix(lower, "tags:"):
				task.Tags = splitTags(valueAfterColon(part))
			case strings.HasPrefix(lower, "scope:"), strings.HasPrefix(lower, "path:"):
				task.ScopePath = strptr(valueAfterColon(part))
			case strings.HasPrefix(lower, "life:"):
				task.ScopePath = strptr("life/" + valueAfterColon(part))
			case strings.HasPrefix(lower, "project:"):
				task.Project = strptr(valueAfterColon(part))
			case strings.HasPrefix(lower, "due:"):
				task.Due = strptr(valueAfterColon(part))
			default:
				titleParts = append(titleParts, part)
			}
		}

		task.Title = strings.TrimSpace(strings.Join(titleParts, " | "))
		tasks = append(tasks, task)
		lines = append(lines, line)
	}

	return tasks, lines
}

func hasPriorityToken(lower string) bool {
	_, ok := priorityTokens[lower]

	return ok
}

func valueAfterColon(part string) string {
	_, value, _ := strings.Cut(part, ":")

	return strings.TrimSpace(value)
}

func splitTags(value string) []string {
	tags := []string{}

	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}

// FormatLine renders a task back into its ledger line.
func FormatLine(task *Task) string {
	var parts []string

	if deref(task.Priority) != "" {
		parts = append(parts, deref(task.Priority))
	}

	if deref(task.Owner) != "" {
		parts = append(parts, "owner:"+deref(task.Owner))
	}

	if len(task.Tags) > 0 {
		parts = append(parts, "tags:"+strings.Join(task.Tags, ","))
	}

	scopePath := NormalizeScopePath(deref(task.ScopePath))
	if scopePath != "" {
		parts = append(parts, "scope:"+scopePath)
	}

	project := deref(task.Project)
	if project == "" && scopePath != "" {
		_, project = ScopeParts(scopePath)
	}

	if project != "" {
		parts = append(parts, "project:"+project)
	}

	if deref(task.Due) != "" {
		parts = append(parts, "due:"+deref(task.Due))
	}

	parts = append(parts, task.Title)

	status := task.Status
	if status == "" {
		status = " "
	}

	return strings.TrimRight(
		fmt.Sprintf("- [%s] T-%03d | %s", status, task.ID, strings.Join(parts, " | ")),
		" ",
	)
}

var (
	scopeKeySeparators = regexp.MustCompile(`[\s_]+`)
	scopeKeyRuns       = regexp.MustCompile(`-{2,}`)
	slashRuns          = regexp.MustCompile(`/{2,}`)
)

// NormalizeScopeKey reduces a scope reference to its comparable tail key.
func NormalizeScopeKey(value string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "\\", "/")
	if normalized == "" {
		return ""
	}

	if strings.Contains(normalized, ":") && !strings.Contains(normalized, "/") {
		_, normalized, _ = strings.Cut(normalized, ":")
	}

	normalized = strings.Trim(normalized, "/")
	if normalized == "" {
		return ""
	}

	segments := strings.Split(normalized, "/")

	tail := strings.TrimSpace(segments[len(segments)-1])
	if tail == "" {
		return ""
	}

	tail = scopeKeySeparators.ReplaceAllString(strings.ToLower(tail), "-")
	tail = scopeKeyRuns.ReplaceAllString(tail, "-")

	return strings.Trim(tail, "-")
}

// NormalizeScopePath canonicalizes a scope reference into either
// "life/<topic>" or a "projects/..." path. Returns "" when the reference is
// not a scope path.
func NormalizeScopePath(value string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "\\", "/")
	if normalized == "" {
		return ""
	}

	normalized = slashRuns.ReplaceAllString(normalized, "/")
	lowered := strings.ToLower(normalized)

	switch {
	case strings.HasPrefix(lowered, "scope:"), strings.HasPrefix(lowered, "path:"):
		return NormalizeScopePath(valueAfterColon(normalized))
	case strings.HasPrefix(lowered, "life:"):
		return NormalizeScopePath("life/" + valueAfterColon(normalized))
	case strings.HasPrefix(lowered, "project:"), strings.HasPrefix(lowered, "projects:"):
		return NormalizeScopePath("projects/active/" + valueAfterColon(normalized))
	}

	normalized = strings.Trim(normalized, "/")
	if normalized == "" {
		return ""
	}

	var parts []string

	for _, part := range strings.Split(normalized, "/") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return ""
	}

	switch strings.ToLower(parts[0]) {
	case "life":
		if len(parts) < 2 {
			return ""
		}

		return "life/" + strings.ToLower(parts[1])
	case "project":
		if len(parts) < 2 {
			return ""
		}

		return "projects/active/" + strings.ToLower(parts[1])
	case "projects":
		if len(parts) < 2 {
			return ""
		}

		if strings.ToLower(parts[1]) == "active" {
			if len(parts) < 3 {
				return ""
			}

			return "projects/active/" + strings.ToLower(parts[2])
		}

		return "projects/" + strings.ToLower(parts[1])
	}

	return ""
}

// ScopeParts splits a scope path into its root ("life" or "projects") and
// its scope name.
func ScopeParts(scopePath string) (string, string) {
	normalized := NormalizeScopePath(scopePath)
	if normalized == "" {
		return "", ""
	}

	parts := strings.Split(normalized, "/")

	switch parts[0] {
	case "life":
		if len(parts) >= 2 {
			return "life", parts[1]
		}
	case "projects":
		if len(parts) >= 3 && parts[1] == "active" {
			return "projects", parts[2]
		}

		if len(parts) >= 2 {
			return "projects", parts[1]
		}
	}

	return "", ""
}

// Lookup indexes the existing life topics and project directories by their
// normalized scope key.
type Lookup struct {
	Life     map[string]string
	Projects map[string]string
}

// BuildLookup scans the library for scope directories. Symlinked entries
// are skipped.
func BuildLookup(libraryRoot string) *Lookup {
	lookup := &Lookup{
		Life:     map[string]string{},
		Projects: map[string]string{},
	}

	for _, name := range sortedDirNames(filepath.Join(libraryRoot, "life")) {
		key := NormalizeScopeKey(name)

		scopePath := NormalizeScopePath("life/" + name)
		if key != "" && scopePath != "" {
			if _, exists := lookup.Life[key]; !exists {
				lookup.Life[key] = scopePath
			}
		}
	}

	for _, base := range []string{"projects/active", "projects"} {
		for _, name := range sortedDirNames(filepath.Join(libraryRoot, filepath.FromSlash(base))) {
			if base == "projects" && strings.EqualFold(name, "active") {
				continue
			}

			key := NormalizeScopeKey(name)

			scopePath := NormalizeScopePath(base + "/" + name)
			if key != "" && scopePath != "" {
				if _, exists := lookup.Projects[key]; !exists {
					lookup.Projects[key] = scopePath
				}
			}
		}
	}

	return lookup
}

func sortedDirNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 || !entry.IsDir() {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	return names
}

// ResolveScopePath maps a free-form scope reference onto a known scope
// directory, falling back to the normalized path when no directory matches.
func ResolveScopePath(value string, lookup *Lookup) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	lowered := strings.ToLower(raw)

	preference := ""

	switch {
	case strings.HasPrefix(lowered, "life:"), strings.HasPrefix(lowered, "life/"):
		preference = "life"
	case strings.HasPrefix(lowered, "project:"), strings.HasPrefix(lowered, "project/"),
		strings.HasPrefix(lowered, "projects:"), strings.HasPrefix(lowered, "projects/"):
		preference = "projects"
	}

	normalized := NormalizeScopePath(raw)
	if normalized != "" {
		scopeRoot, scopeName := ScopeParts(normalized)

		scopeKey := NormalizeScopeKey(scopeName)
		if scopeRoot == "life" && scopeKey != "" {
			if path, ok := lookup.Life[scopeKey]; ok {
				return path
			}

			if path, ok := lookup.Projects[scopeKey]; ok {
				return path
			}

			return normalized
		}

		if scopeRoot == "projects" && scopeKey != "" {
			if path, ok := lookup.Projects[scopeKey]; ok {
				return path
			}

			if path, ok := lookup.Life[scopeKey]; ok {
				return path
			}

			return normalized
		}

		return normalized
	}

	scopeKey := NormalizeScopeKey(raw)
	if scopeKey == "" {
		return ""
	}

	lifePath := lookup.Life[scopeKey]
	projectPath := lookup.Projects[scopeKey]

	if preference == "life" && lifePath != "" {
		return lifePath
	}

	if preference == "projects" && projectPath != "" {
		return projectPath
	}

	if lifePath != "" {
		return lifePath
	}

	return projectPath
}

func tagKeys(task *Task) map[string]struct{} {
	keys := map[string]struct{}{}

	for _, tag := range task.Tags {
		key := NormalizeScopeKey(tag)
		if key != "" {
			keys[key] = struct{}{}
		}
	}

	return keys
}

// EnrichScope resolves the task's scope path from its explicit scope,
// project reference, or unambiguous tag, then fills the derived scope
// fields.
func EnrichScope(task *Task, lookup *Lookup) {
	scopePath := ResolveScopePath(deref(task.ScopePath), lookup)
	if scopePath == "" {
		scopePath = ResolveScopePath(deref(task.Project), lookup)
	}

	if scopePath == "" {
		fromTags := map[string]struct{}{}

		for key := range tagKeys(task) {
			if path, ok := lookup.Life[key]; ok {
				fromTags[path] = struct{}{}
			}

			if path, ok := lookup.Projects[key]; ok {
				fromTags[path] = struct{}{}
			}
		}

		if len(fromTags) == 1 {
			for path := range fromTags {
				scopePath = path
			}
		}
	}

	if scopePath == "" {
		task.ScopePath = nil
		task.ScopeRoot = nil
		task.ScopeType = nil
		task.ScopeName = nil

		return
	}

	task.ScopePath = strptr(scopePath)

	scopeRoot, scopeName := ScopeParts(scopePath)
	task.ScopeRoot = strptr(scopeRoot)

	scopeType := "project"
	if scopeRoot == "life" {
		scopeType = "life"
	}

	task.ScopeType = strptr(scopeType)
	task.ScopeName = strptr(scopeName)

	project := deref(task.Project)
	if strings.TrimSpace(project) == "" ||
		strings.Contains(project, "/") || strings.Contains(project, ":") {
		task.Project = strptr(scopeName)
	}
}

// EnrichAll runs EnrichScope over a task list.
func EnrichAll(tasks []*Task, lookup *Lookup) {
	for _, task := range tasks {
		EnrichScope(task, lookup)
	}
}

// ApplyDominantScope assigns the single scope shared by every scoped task
// to the remaining unscoped ones, unless their project or tags point at a
// different known scope.
func ApplyDominantScope(tasks []*Task, lookup *Lookup) {
	scopeCounts := map[string]int{}

	for _, task := range tasks {
		if deref(task.ScopePath) != "" {
			scopeCounts[deref(task.ScopePath)]++
		}
	}

	if len(scopeCounts) != 1 {
		return
	}

	var dominant string
	for path := range scopeCounts {
		dominant = path
	}

	_, dominantName := ScopeParts(dominant)
	dominantKey := NormalizeScopeKey(dominantName)

	knownKeys := map[string]struct{}{}
	for key := range lookup.Life {
		knownKeys[key] = struct{}{}
	}

	for key := range lookup.Projects {
		knownKeys[key] = struct{}{}
	}

	for _, task := range tasks {
		if deref(task.ScopePath) != "" {
			continue
		}

		projectKey := NormalizeScopeKey(deref(task.Project))
		if projectKey != "" && dominantKey != "" && projectKey != dominantKey {
			continue
		}

		keys := tagKeys(task)
		if len(keys) > 0 {
			if _, hasDominant := keys[dominantKey]; !hasDominant {
				conflicting := false

				for key := range keys {
					if _, known := knownKeys[key]; known && key != dominantKey {
						conflicting = true

						break
					}
				}

				if conflicting || len(knownKeys) == 0 {
					continue
				}
			}
		}

		task.ScopePath = strptr(dominant)

		scopeRoot, scopeName := ScopeParts(dominant)
		task.ScopeRoot = strptr(scopeRoot)

		scopeType := "project"
		if scopeRoot == "life" {
			scopeType = "life"
		}

		task.ScopeType = strptr(scopeType)
		task.ScopeName = strptr(scopeName)

		if deref(task.Project) == "" {
			task.Project = strptr(scopeName)
		}
	}
}

// InferDefaultScope returns the sole scope used across the open ledger, if
// any, so new tasks inherit it.
func InferDefaultScope(libraryRoot string, lookup *Lookup) string {
	content, err := os.ReadFile(filepath.Join(libraryRoot, filepath.FromSlash(IndexPath)))
	if err != nil {
		return ""
	}

	parsed, _ := Parse(string(content))
	EnrichAll(parsed, lookup)
	ApplyDominantScope(parsed, lookup)

	scopes := map[string]struct{}{}

	for _, task := range parsed {
		if deref(task.ScopePath) != "" {
			scopes[deref(task.ScopePath)] = struct{}{}
		}
	}

	if len(scopes) != 1 {
		return ""
	}

	for path := range scopes {
		return path
	}

	return ""
}

// Load reads tasks matching a status filter: "open" reads the index,
// "completed" reads the monthly completion logs plus the legacy archive,
// and "all" reads both.
func Load(libraryRoot, statusFilter string) []*Task {
	var tasks []*Task

	lookup := BuildLookup(libraryRoot)

	if statusFilter == "open" || statusFilter == "all" {
		if content, err := os.ReadFile(filepath.Join(libraryRoot, filepath.FromSlash(IndexPath))); err == nil {
			parsed, _ := Parse(string(content))
			EnrichAll(parsed, lookup)
			ApplyDominantScope(parsed, lookup)

			for _, task := range parsed {
				task.SourcePath = IndexPath
			}

			tasks = append(tasks, parsed...)
		}
	}

	if statusFilter == "completed" || statusFilter == "all" {
		tasks = append(tasks, loadCompletedFiles(libraryRoot, lookup, nil)...)

		if content, err := os.ReadFile(filepath.Join(libraryRoot, filepath.FromSlash(LegacyArchivePath))); err == nil {
			parsed, _ := Parse(string(content))
			EnrichAll(parsed, lookup)
			ApplyDominantScope(parsed, lookup)

			for _, task := range parsed {
				if task.SourcePath == "" {
					task.SourcePath = LegacyArchivePath
				}
			}

			tasks = append(tasks, parsed...)
		}
	}

	return tasks
}

// LoadCompleted reads completed tasks, optionally skipping monthly logs not
// modified since the cutoff. The legacy archive is only consulted when no
// cutoff is given.
func LoadCompleted(libraryRoot string, since *time.Time) []*Task {
	lookup := BuildLookup(libraryRoot)

	tasks := loadCompletedFiles(libraryRoot, lookup, since)

	if since == nil {
		if content, err := os.ReadFile(filepath.Join(libraryRoot, filepath.FromSlash(LegacyArchivePath))); err == nil {
			parsed, _ := Parse(string(content))
			EnrichAll(parsed, lookup)
			ApplyDominantScope(parsed, lookup)

			for _, task := range parsed {
				task.SourcePath = LegacyArchivePath
			}

			tasks = append(tasks, parsed...)
		}
	}

	return tasks
}

func loadCompletedFiles(libraryRoot string, lookup *Lookup, since *time.Time) []*Task {
	completedDir := filepath.Join(libraryRoot, "pulse", "completed")

	entries, err := os.ReadDir(completedDir)
	if err != nil {
		return nil
	}

	type monthFile struct {
		name  string
		mtime time.Time
	}

	var files []monthFile

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}

		files = append(files, monthFile{entry.Name(), info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime.After(files[j].mtime)
	})

	var tasks []*Task

	for _, file := range files {
		if since != nil && file.mtime.Before(*since) {
			continue
		}

		content, readErr := os.ReadFile(filepath.Join(completedDir, file.name))
		if readErr != nil {
			continue
		}

		parsed, _ := Parse(string(content))
		EnrichAll(parsed, lookup)
		ApplyDominantScope(parsed, lookup)

		sourcePath := "pulse/completed/" + file.name

		for _, task := range parsed {
			task.SourcePath = sourcePath
		}

		tasks = append(tasks, parsed...)
	}

	return tasks
}

// NextID returns one past the highest task ID across open and completed
// ledgers.
func NextID(libraryRoot string) int {
	tasks := Load(libraryRoot, "all")
	if len(tasks) == 0 {
		return 1
	}

	highest := 0

	for _, task := range tasks {
		if task.ID > highest {
			highest = task.ID
		}
	}

	return highest + 1
}

// Filter applies owner, priority, tag, and project filters.
func Filter(tasks []*Task, owner, priority, tag, project string, lookup *Lookup) []*Task {
	filtered := []*Task{}

	for _, task := range tasks {
		if owner != "" && deref(task.Owner) != owner {
			continue
		}

		if priority != "" && deref(task.Priority) != priority {
			continue
		}

		if tag != "" && !containsTag(task.Tags, tag) {
			continue
		}

		if project != "" {
			EnrichScope(task, lookup)

			if !MatchesProject(task, project, lookup) {
				continue
			}
		}

		filtered = append(filtered, task)
	}

	return filtered
}

func containsTag(tags []string, tag string) bool {
	for _, candidate := range tags {
		if candidate == tag {
			return true
		}
	}

	return false
}

// MatchesProject reports whether a task belongs to the requested scope. A
// bare name matching both a life topic and a project stays ambiguous and
// matches either.
func MatchesProject(task *Task, project string, lookup *Lookup) bool {
	requestedScope := ResolveScopePath(project, lookup)
	requestedRoot, requestedName := ScopeParts(requestedScope)

	requestedKey := NormalizeScopeKey(requestedName)
	if requestedKey == "" {
		requestedKey = NormalizeScopeKey(project)
	}

	projectValue := strings.ToLower(strings.TrimSpace(project))
	explicitScope := strings.Contains(projectValue, "/") ||
		strings.HasPrefix(projectValue, "life:") ||
		strings.HasPrefix(projectValue, "project:") ||
		strings.HasPrefix(projectValue, "projects:") ||
		strings.HasPrefix(projectValue, "scope:") ||
		strings.HasPrefix(projectValue, "path:")

	_, inLife := lookup.Life[requestedKey]
	_, inProjects := lookup.Projects[requestedKey]
	ambiguousName := requestedKey != "" && inLife && inProjects && !explicitScope

	taskScope := deref(task.ScopePath)
	taskScopeRoot, taskScopeName := ScopeParts(taskScope)

	taskScopeKey := NormalizeScopeKey(taskScopeName)
	if taskScopeKey == "" {
		taskScopeKey = NormalizeScopeKey(deref(task.ScopeName))
	}

	taskProjectKey := NormalizeScopeKey(deref(task.Project))
	keys := tagKeys(task)

	if requestedScope != "" && taskScope != "" {
		if scopePathsEquivalent(taskScope, requestedScope) {
			return true
		}

		if !ambiguousName {
			return false
		}
	}

	_, tagMatch := keys[requestedKey]

	if requestedKey != "" &&
		(taskScopeKey == requestedKey || taskProjectKey == requestedKey || tagMatch) {
		if requestedRoot != "" && taskScopeRoot != "" && requestedRoot != taskScopeRoot {
			return ambiguousName
		}

		return true
	}

	return false
}

func scopePathsEquivalent(left, right string) bool {
	leftNormalized := NormalizeScopePath(left)
	rightNormalized := NormalizeScopePath(right)

	if leftNormalized != "" && rightNormalized != "" && leftNormalized == rightNormalized {
		return true
	}

	leftRoot, leftName := ScopeParts(leftNormalized)
	rightRoot, rightName := ScopeParts(rightNormalized)

	if leftRoot == "" || rightRoot == "" || leftRoot != rightRoot {
		return false
	}

	return NormalizeScopeKey(leftName) == NormalizeScopeKey(rightName)
}

// CompletedPath returns the current month's completion log, relative to the
// library root.
func CompletedPath(now time.Time) string {
	return "pulse/completed/" + now.UTC().Format("2006-01") + ".md"
}

// Pop removes a task and its ledger line by ID. Returns nil when absent.
func Pop(tasks []*Task, lines []string, id int) (*Task, []string) {
	for _, task := range tasks {
		if task.ID != id {
			continue
		}

		if index := FindLineIndex(lines, id); index >= 0 {
			lines = append(lines[:index], lines[index+1:]...)
		}

		return task, lines
	}

	return nil, lines
}

// FindLineIndex locates the ledger line carrying a task ID.
func FindLineIndex(lines []string, id int) int {
	needle := fmt.Sprintf("T-%03d", id)

	for index, line := range lines {
		if strings.Contains(line, needle) {
			return index
		}
	}

	return -1
}

// JoinLedger rebuilds ledger content from lines: trailing blank space is
// trimmed and a final newline restored.
func JoinLedger(lines []string) string {
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
