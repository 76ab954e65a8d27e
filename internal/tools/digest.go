package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/journal"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/internal/tasks"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/pathguard"
)

const rollupStatePath = "digest/_meta/rollup-state.json"

func digestSnapshot(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p,
		"owner", "priority", "tag", "project",
		"include_completed", "completed_limit",
		"activity_since", "activity_limit",
	)
	if err != nil {
		return nil, err
	}

	owner, _, err := payload.OptString(p, "owner")
	if err != nil {
		return nil, err
	}

	priority, _, err := payload.OptString(p, "priority")
	if err != nil {
		return nil, err
	}

	tag, _, err := payload.OptString(p, "tag")
	if err != nil {
		return nil, err
	}

	project, _, err := payload.OptString(p, "project")
	if err != nil {
		return nil, err
	}

	includeCompleted, hasCompleted, err := payload.OptBool(p, "include_completed")
	if err != nil {
		return nil, err
	}

	if !hasCompleted {
		includeCompleted = true
	}

	completedLimit, err := positiveIntOption(p, "completed_limit", 10)
	if err != nil {
		return nil, err
	}

	activityLimit, err := positiveIntOption(p, "activity_limit", 50)
	if err != nil {
		return nil, err
	}

	activitySince, err := timestampOption(p, "activity_since")
	if err != nil {
		return nil, err
	}

	// Filtering here intentionally skips scope enrichment; snapshot
	// consumers match on the stored fields only.
	emptyLookup := &tasks.Lookup{Life: map[string]string{}, Projects: map[string]string{}}

	open := tasks.Filter(tasks.Load(ctx.LibraryRoot, "open"), owner, priority, tag, project, emptyLookup)

	completed := []*tasks.Task{}

	if includeCompleted {
		completed = tasks.Filter(
			tasks.LoadCompleted(ctx.LibraryRoot, activitySince),
			owner, priority, tag, project,
			emptyLookup,
		)

		if len(completed) > completedLimit {
			completed = completed[:completedLimit]
		}
	}

	activity, err := journal.Read(ctx.LibraryRoot, activitySince, activityLimit)
	if err != nil {
		return nil, mcperr.New("LOG_ERROR", "Activity log could not be read.", map[string]any{"path": journal.Filename})
	}

	return map[string]any{
		"tasks":     open,
		"completed": completed,
		"activity":  activity,
	}, nil
}

func scoreDigestTasks(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "tasks", "focus_project", "now")
	if err != nil {
		return nil, err
	}

	rawTasks, err := payload.Require(p, "tasks", "MISSING_TASKS", "tasks is required.")
	if err != nil {
		return nil, err
	}

	taskList, ok := rawTasks.([]any)
	if !ok {
		return nil, mcperr.New("INVALID_TYPE", "tasks must be a list.", map[string]any{"tasks": fmt.Sprint(rawTasks)})
	}

	focusProject, _, err := payload.OptString(p, "focus_project")
	if err != nil {
		return nil, err
	}

	now := ctx.now()

	if rawNow, present := p["now"]; present && rawNow != nil {
		parsed, parseErr := parseTimestamp(fmt.Sprint(rawNow))
		if parseErr != nil {
			return nil, mcperr.New("INVALID_DATE", "now must be ISO date-time.", map[string]any{"now": rawNow})
		}

		now = parsed
	}

	scored := []map[string]any{}

	for _, raw := range taskList {
		task, isObj := raw.(map[string]any)
		if !isObj {
			continue
		}

		score, reasons := scoreTask(task, focusProject, now)
		scored = append(scored, map[string]any{"task": task, "score": score, "reasons": reasons})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i]["score"].(int) > scored[j]["score"].(int)
	})

	return map[string]any{"tasks": scored}, nil
}

func scoreTask(task map[string]any, focusProject string, now time.Time) (int, []string) {
	reasons := []string{}
	score := 0

	priority, _ := task["priority"].(string)
	if priority == "" {
		priority = "p2"
	}

	switch priority {
	case "p0":
		score += 100
	case "p1":
		score += 70
	case "p2":
		score += 40
	case "p3":
		score += 20
	default:
		score += 10
	}

	reasons = append(reasons, "priority:"+priority)

	if project, _ := task["project"].(string); focusProject != "" && project == focusProject {
		score += 10
		reasons = append(reasons, "focus_project")
	}

	if rawTags, ok := task["tags"].([]any); ok {
		for _, rawTag := range rawTags {
			if tag, isString := rawTag.(string); isString && tag == "blocked" {
				score -= 100
				reasons = append(reasons, "blocked")

				break
			}
		}
	}

	if due, _ := task["due"].(string); due != "" {
		dueDate, err := parseTimestamp(due)
		if err != nil {
			reasons = append(reasons, "due_invalid")

			return score, reasons
		}

		deltaDays := int(math.Floor(dueDate.Sub(now).Hours() / 24))

		switch {
		case deltaDays <= 0:
			score += 30
			reasons = append(reasons, "due_overdue")
		case deltaDays <= 1:
			score += 25
			reasons = append(reasons, "due_1d")
		case deltaDays <= 3:
			score += 20
			reasons = append(reasons, "due_3d")
		case deltaDays <= 7:
			score += 10
			reasons = append(reasons, "due_7d")
		}
	}

	return score, reasons
}

func rollupDigestPeriod(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "period", "target_date")
	if err != nil {
		return nil, err
	}

	rawPeriod, err := payload.Require(p, "period", "MISSING_PERIOD", "period is required.")
	if err != nil {
		return nil, err
	}

	period, err := payload.String("period", rawPeriod)
	if err != nil {
		return nil, err
	}

	period = strings.ToLower(strings.TrimSpace(period))

	switch period {
	case "week", "month", "year":
	default:
		return nil, mcperr.New("INVALID_PERIOD", "period must be one of week, month, or year.", map[string]any{"period": period})
	}

	targetDate := ctx.now()

	if rawTarget, present := p["target_date"]; present && rawTarget != nil {
		value, ok := rawTarget.(string)
		if !ok {
			return nil, mcperr.New(
				"INVALID_TYPE",
				"target_date must be a string in YYYY-MM-DD format.",
				map[string]any{"type": payload.TypeName(rawTarget)},
			)
		}

		parsed, parseErr := time.Parse("2006-01-02", value)
		if parseErr != nil {
			return nil, mcperr.New("INVALID_DATE", "target_date must use YYYY-MM-DD format.", map[string]any{"target_date": value})
		}

		targetDate = parsed
	}

	return rollupPeriod(ctx, period, targetDate)
}

type dailyEntry struct {
	date    time.Time
	relPath string
	content string
}

type rollupState struct {
	Version           int     `json:"version"`
	LastDailyIngest   *string `json:"last_daily_ingest"`
	LastWeeklyRollup  *string `json:"last_weekly_rollup"`
	LastMonthlyRollup *string `json:"last_monthly_rollup"`
	LastYearlyRollup  *string `json:"last_yearly_rollup"`
}

func rollupPeriod(ctx *Context, period string, targetDate time.Time) (map[string]any, error) {
	entries := collectDailyEntries(ctx.LibraryRoot)
	periodEntries := filterPeriodEntries(entries, period, targetDate)
	outputRel, label := periodOutputPath(period, targetDate)
	outputAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(outputRel))

	err := os.MkdirAll(filepath.Dir(outputAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Digest rollup could not be written.", map[string]any{"path": outputRel})
	}

	rendered := renderRollup(period, label, periodEntries)
	changed := []string{}

	if readTextOrEmptyMarker(outputAbs) != rendered {
		err = atomicfile.WriteText(outputAbs, rendered)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Digest rollup could not be written.", map[string]any{"path": outputRel})
		}

		changed = append(changed, outputRel)
	}

	stateAbs := filepath.Join(ctx.LibraryRoot, filepath.FromSlash(rollupStatePath))

	err = os.MkdirAll(filepath.Dir(stateAbs), 0o755)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Rollup state could not be written.", map[string]any{"path": rollupStatePath})
	}

	state := readRollupState(stateAbs)
	nowISO := journalTimestamp(ctx.now())

	switch period {
	case "week":
		state.LastWeeklyRollup = &nowISO
	case "month":
		state.LastMonthlyRollup = &nowISO
	case "year":
		state.LastYearlyRollup = &nowISO
	}

	if len(periodEntries) > 0 {
		last := periodEntries[len(periodEntries)-1].date.Format("2006-01-02")
		state.LastDailyIngest = &last
	}

	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Rollup state could not be written.", map[string]any{"path": rollupStatePath})
	}

	stateAfter := string(encoded) + "\n"

	if readTextOrEmptyMarker(stateAbs) != stateAfter {
		err = atomicfile.WriteText(stateAbs, stateAfter)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Rollup state could not be written.", map[string]any{"path": rollupStatePath})
		}

		changed = append(changed, rollupStatePath)
	}

	var sha any

	if len(changed) > 0 {
		txn, err := engine.Begin(ctx.LibraryRoot)
		if err != nil {
			return nil, err
		}
		defer txn.Close()

		commitSha, err := txn.CommitKeepFiles(engine.Mutation{
			Operation: "rollup_digest_period",
			Target:    outputRel,
			Staged:    changed,
			Summary:   "rollup digest " + period,
		}, "Git commit failed for digest rollup.", map[string]any{"period": period, "path": outputRel})
		if err != nil {
			return nil, err
		}

		sha = commitSha
	}

	return map[string]any{
		"period":      period,
		"label":       label,
		"path":        outputRel,
		"daily_count": len(periodEntries),
		"changed":     len(changed) > 0,
		"commitSha":   sha,
	}, nil
}

// collectDailyEntries gathers digest/daily markdown files whose stem is a
// date, sorted by that date.
func collectDailyEntries(libraryRoot string) []dailyEntry {
	dailyRoot := filepath.Join(libraryRoot, "digest", "daily")
	if !isDir(dailyRoot) {
		return nil
	}

	var entries []dailyEntry

	_ = walkNoSymlinks(dailyRoot, func(abs string, entryIsDir bool) error {
		if entryIsDir || strings.ToLower(filepath.Ext(abs)) != ".md" {
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))

		entryDate, err := time.Parse("2006-01-02", stem)
		if err != nil {
			return nil
		}

		content, err := os.ReadFile(abs)
		if err != nil {
			return nil
		}

		entries = append(entries, dailyEntry{
			date:    entryDate,
			relPath: pathguard.Relative(libraryRoot, abs),
			content: string(content),
		})

		return nil
	})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})

	return entries
}

func filterPeriodEntries(entries []dailyEntry, period string, targetDate time.Time) []dailyEntry {
	var filtered []dailyEntry

	targetYear, targetWeek := targetDate.ISOWeek()

	for _, entry := range entries {
		switch period {
		case "week":
			year, week := entry.date.ISOWeek()
			if year == targetYear && week == targetWeek {
				filtered = append(filtered, entry)
			}
		case "month":
			if entry.date.Year() == targetDate.Year() && entry.date.Month() == targetDate.Month() {
				filtered = append(filtered, entry)
			}
		default:
			if entry.date.Year() == targetDate.Year() {
				filtered = append(filtered, entry)
			}
		}
	}

	return filtered
}

func periodOutputPath(period string, targetDate time.Time) (string, string) {
	switch period {
	case "week":
		year, week := targetDate.ISOWeek()
		label := fmt.Sprintf("%04d-W%02d", year, week)

		return fmt.Sprintf("digest/weekly/%04d/%s.md", year, label), label
	case "month":
		label := fmt.Sprintf("%04d-%02d", targetDate.Year(), targetDate.Month())

		return fmt.Sprintf("digest/monthly/%04d/%s.md", targetDate.Year(), label), label
	}

	label := fmt.Sprintf("%04d", targetDate.Year())

	return "digest/yearly/" + label + ".md", label
}

func renderRollup(period, label string, entries []dailyEntry) string {
	headers := map[string]string{"week": "Weekly", "month": "Monthly", "year": "Yearly"}

	lines := []string{fmt.Sprintf("# %s Digest %s", headers[period], label), "", "## Source Daily Entries"}

	if len(entries) == 0 {
		lines = append(lines, "", "- (none)", "")

		return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
	}

	for _, entry := range entries {
		lines = append(lines, "", fmt.Sprintf("### %s (%s)", entry.date.Format("2006-01-02"), entry.relPath), "")

		body := strings.TrimSpace(entry.content)
		if body == "" {
			lines = append(lines, "_empty_")

			continue
		}

		lines = append(lines, body)
	}

	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
}

func readRollupState(stateAbs string) rollupState {
	state := rollupState{Version: 1}

	data, err := os.ReadFile(stateAbs)
	if err != nil {
		return state
	}

	var raw map[string]any

	if json.Unmarshal(data, &raw) != nil {
		return state
	}

	if version, ok := raw["version"].(float64); ok {
		state.Version = int(version)
	}

	assign := func(target **string, key string) {
		if value, ok := raw[key].(string); ok {
			*target = &value
		}
	}

	assign(&state.LastDailyIngest, "last_daily_ingest")
	assign(&state.LastWeeklyRollup, "last_weekly_rollup")
	assign(&state.LastMonthlyRollup, "last_monthly_rollup")
	assign(&state.LastYearlyRollup, "last_yearly_rollup")

	return state
}

// readTextOrEmptyMarker distinguishes a missing file from an empty one so
// content comparison never skips the first write.
func readTextOrEmptyMarker(abs string) string {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "\x00missing"
	}

	return string(data)
}

// journalTimestamp formats a UTC instant the way activity entries do.
func journalTimestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.999999-07:00")
}
