package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/braindrive/library/internal/engine"
	"github.com/braindrive/library/internal/library"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
	"github.com/braindrive/library/pkg/pathguard"
)

func bootstrapUserLibrary(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p)
	if err != nil {
		return nil, err
	}

	changed, err := bootstrapLibrary(ctx)
	if err != nil {
		return nil, err
	}

	sha, err := commitOnboarding(ctx, changed, "bootstrap_user_library", ".braindrive/onboarding_state.json", "bootstrap user library")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"changed":       len(changed) > 0,
		"changed_paths": changed,
		"commitSha":     sha,
	}, nil
}

func getOnboardingState(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p)
	if err != nil {
		return nil, err
	}

	state := library.ReadState(ctx.LibraryRoot)

	return map[string]any{
		"state":      state,
		"next_topic": nextTopicValue(state),
	}, nil
}

func startTopicOnboarding(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "topic")
	if err != nil {
		return nil, err
	}

	rawTopic, err := payload.Require(p, "topic", "MISSING_TOPIC", "topic is required.")
	if err != nil {
		return nil, err
	}

	topic, err := library.ValidateTopic(rawTopic)
	if err != nil {
		return nil, err
	}

	changed, err := bootstrapLibrary(ctx)
	if err != nil {
		return nil, err
	}

	state := library.ReadState(ctx.LibraryRoot)
	currentStatus := starterStatus(state, topic)
	progress := ensureTopicProgress(state, topic)
	nowISO := library.UTCNow()

	if currentStatus != "complete" {
		if currentStatus != "in_progress" {
			appendTopicHistory(state, topic, "start_onboarding", currentStatus, "in_progress", "")
		}

		starterTopics(state)[topic] = "in_progress"
		progress["status"] = "in_progress"
		progress["phase"] = "opening"

		if started, _ := progress["started_at_utc"].(string); started == "" {
			progress["started_at_utc"] = nowISO
		}
	}

	progress["last_interview_at_utc"] = nowISO
	progress["last_updated_at_utc"] = nowISO
	state["active_topic"] = topic
	refreshSummaryFields(state)

	changed, err = persistState(ctx, state, changed)
	if err != nil {
		return nil, err
	}

	interviewAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "interview.md")
	interviewRel := pathguard.Relative(ctx.LibraryRoot, interviewAbs)

	seed, err := os.ReadFile(interviewAbs)
	if err != nil {
		return nil, mcperr.New("FILE_READ_FAILED", "Interview seed could not be read.", map[string]any{"path": interviewRel})
	}

	sha, err := commitOnboarding(ctx, changed, "start_topic_onboarding", interviewRel, fmt.Sprintf("start topic onboarding (%s)", topic))
	if err != nil {
		return nil, err
	}

	state = library.ReadState(ctx.LibraryRoot)

	return map[string]any{
		"topic":          topic,
		"status":         starterStatus(state, topic),
		"interview_seed": string(seed),
		"next_topic":     nextTopicValue(state),
		"commitSha":      sha,
	}, nil
}

func saveTopicOnboardingContext(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p,
		"topic", "context", "approved", "question", "answer", "phase",
		"question_index", "question_total",
		"next_followup_due_at_utc", "future_interview_topics",
	)
	if err != nil {
		return nil, err
	}

	var missing []string

	for _, field := range []string{"topic", "context", "approved"} {
		if _, present := p[field]; !present {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return nil, mcperr.New("MISSING_FIELDS", "topic, context, and approved are required.", map[string]any{"fields": missing})
	}

	topic, err := library.ValidateTopic(p["topic"])
	if err != nil {
		return nil, err
	}

	context, ok := p["context"].(string)
	if !ok || strings.TrimSpace(context) == "" {
		return nil, mcperr.New("INVALID_TYPE", "context must be a non-empty string.", map[string]any{"type": payload.TypeName(p["context"])})
	}

	approved, ok := p["approved"].(bool)
	if !ok {
		return nil, mcperr.New("INVALID_TYPE", "approved must be a boolean.", map[string]any{"type": payload.TypeName(p["approved"])})
	}

	if !approved {
		return nil, mcperr.New(
			"APPROVAL_REQUIRED",
			"approved=true is required for mutating onboarding context writes.",
			map[string]any{"topic": topic},
		)
	}

	question, err := optionalNonEmptyString(p, "question", "question must be a non-empty string when provided.")
	if err != nil {
		return nil, err
	}

	answer, err := optionalNonEmptyString(p, "answer", "answer must be a non-empty string when provided.")
	if err != nil {
		return nil, err
	}

	questionIndex, hasIndex, err := nonNegativeIntOption(p, "question_index")
	if err != nil {
		return nil, err
	}

	questionTotal, hasTotal, err := nonNegativeIntOption(p, "question_total")
	if err != nil {
		return nil, err
	}

	phase, err := phaseOption(p)
	if err != nil {
		return nil, err
	}

	followupDue, err := optionalNonEmptyString(p, "next_followup_due_at_utc",
		"next_followup_due_at_utc must be a non-empty timestamp string when provided.")
	if err != nil {
		return nil, err
	}

	futureTopics, err := futureTopicsOption(p)
	if err != nil {
		return nil, err
	}

	hasQuestion := question != ""
	hasAnswer := answer != ""

	if hasQuestion != hasAnswer {
		missingPair := []string{"question"}
		if hasQuestion {
			missingPair = []string{"answer"}
		}

		return nil, mcperr.New(
			"MISSING_FIELDS",
			"question and answer must be provided together when logging interview Q/A.",
			map[string]any{"fields": missingPair},
		)
	}

	contextText := strings.TrimSpace(context)

	changed, err := bootstrapLibrary(ctx)
	if err != nil {
		return nil, err
	}

	interviewAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "interview.md")
	interviewRel := pathguard.Relative(ctx.LibraryRoot, interviewAbs)
	stamp := onboardingStamp(ctx)

	var interviewSection string

	if hasQuestion {
		interviewSection = fmt.Sprintf(
			"## Approved Interview Turn %s\n\n- Question: %s\n- Answer: %s\n- Context Summary: %s\n",
			stamp, question, answer, contextText,
		)
	} else {
		interviewSection = fmt.Sprintf("## Approved Context %s\n\n%s\n", stamp, contextText)
	}

	updated := mdedit.JoinWithNewline(readTextOrEmpty(interviewAbs), interviewSection)

	err = atomicfile.WriteText(interviewAbs, updated)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Interview file could not be written.", map[string]any{"path": interviewRel})
	}

	changed = append(changed, interviewRel)

	agentAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "AGENT.md")
	agentRel := pathguard.Relative(ctx.LibraryRoot, agentAbs)
	agentExisting := readTextOrEmpty(agentAbs)

	if agentExisting == "" {
		agentExisting = fmt.Sprintf("# %s Agent\n\n", library.TopicTitles[topic])
	}

	var agentSection string

	if hasQuestion {
		agentSection = fmt.Sprintf(
			"## Approved User Context %s\n\n- Question: %s\n- Answer: %s\n- Context Summary: %s\n",
			stamp, question, answer, contextText,
		)
	} else {
		agentSection = fmt.Sprintf("## Approved User Context %s\n\n%s\n", stamp, contextText)
	}

	agentUpdated := mdedit.JoinWithNewline(agentExisting, agentSection)

	err = atomicfile.WriteText(agentAbs, agentUpdated)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Agent file could not be written.", map[string]any{"path": agentRel})
	}

	changed = append(changed, agentRel)

	// Legacy agents.md stays in sync when it already exists.
	legacyAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "agents.md")
	if isFile(legacyAbs) {
		legacyRel := pathguard.Relative(ctx.LibraryRoot, legacyAbs)

		err = atomicfile.WriteText(legacyAbs, agentUpdated)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Agent file could not be written.", map[string]any{"path": legacyRel})
		}

		changed = append(changed, legacyRel)
	}

	if phase == "goals_tasks" {
		goalsAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "goals.md")
		goalsRel := pathguard.Relative(ctx.LibraryRoot, goalsAbs)
		goalsUpdated := upsertCurrentGoals(readTextOrEmpty(goalsAbs), extractGoalsContextEntries(contextText))
		goalsSection := fmt.Sprintf("## Approved Goals Context %s\n\n%s\n", stamp, contextText)

		err = atomicfile.WriteText(goalsAbs, mdedit.JoinWithNewline(goalsUpdated, goalsSection))
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Goals file could not be written.", map[string]any{"path": goalsRel})
		}

		changed = append(changed, goalsRel)

		actionAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "action-plan.md")
		actionRel := pathguard.Relative(ctx.LibraryRoot, actionAbs)
		actionSection := fmt.Sprintf("## Approved Onboarding Goals/Tasks Context %s\n\n%s\n", stamp, contextText)

		err = atomicfile.WriteText(actionAbs, mdedit.JoinWithNewline(readTextOrEmpty(actionAbs), actionSection))
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Action plan could not be written.", map[string]any{"path": actionRel})
		}

		changed = append(changed, actionRel)
	}

	state := library.ReadState(ctx.LibraryRoot)
	progress := ensureTopicProgress(state, topic)
	previousStatus := starterStatus(state, topic)

	if previousStatus != "complete" {
		starterTopics(state)[topic] = "in_progress"
		progress["status"] = "in_progress"

		if previousStatus != "in_progress" {
			appendTopicHistory(state, topic, "context_status_progressed", previousStatus, "in_progress", "")
		}
	}

	if phase != "" {
		progress["phase"] = phase
	} else if current, _ := progress["phase"].(string); current == "" {
		progress["phase"] = "opening"
	}

	progress["last_interview_at_utc"] = library.UTCNow()
	progress["last_updated_at_utc"] = library.UTCNow()

	if hasIndex {
		progress["question_index"] = questionIndex
	}

	if hasTotal {
		progress["question_total"] = questionTotal
	}

	if followupDue != "" {
		progress["next_followup_due_at_utc"] = followupDue
	}

	if len(futureTopics) > 0 {
		progress["future_interview_topics"] = futureTopics
	}

	state["active_topic"] = topic

	historyDetail := phase
	if historyDetail == "" {
		historyDetail = "opening"
	}

	appendTopicHistory(state, topic, "approved_context_saved", "", "", historyDetail)
	refreshSummaryFields(state)

	changed, err = persistState(ctx, state, changed)
	if err != nil {
		return nil, err
	}

	sha, err := commitOnboarding(ctx, changed, "save_topic_onboarding_context", interviewRel, fmt.Sprintf("save onboarding context (%s)", topic))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"topic":     topic,
		"path":      interviewRel,
		"status":    starterStatus(state, topic),
		"phase":     progress["phase"],
		"commitSha": sha,
	}, nil
}

func completeTopicOnboarding(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "topic", "summary", "next_followup_due_at_utc", "future_interview_topics")
	if err != nil {
		return nil, err
	}

	rawTopic, err := payload.Require(p, "topic", "MISSING_TOPIC", "topic is required.")
	if err != nil {
		return nil, err
	}

	topic, err := library.ValidateTopic(rawTopic)
	if err != nil {
		return nil, err
	}

	summary := ""

	if rawSummary, present := p["summary"]; present && rawSummary != nil {
		value, ok := rawSummary.(string)
		if !ok {
			return nil, mcperr.New("INVALID_TYPE", "summary must be a string.", map[string]any{"type": payload.TypeName(rawSummary)})
		}

		summary = value
	}

	followupDue, err := optionalNonEmptyString(p, "next_followup_due_at_utc",
		"next_followup_due_at_utc must be a non-empty timestamp string when provided.")
	if err != nil {
		return nil, err
	}

	futureTopics, err := futureTopicsOption(p)
	if err != nil {
		return nil, err
	}

	changed, err := bootstrapLibrary(ctx)
	if err != nil {
		return nil, err
	}

	state := library.ReadState(ctx.LibraryRoot)
	previousStatus := starterStatus(state, topic)
	nowISO := library.UTCNow()

	starterTopics(state)[topic] = "complete"
	completedAt(state)[topic] = nowISO

	progress := ensureTopicProgress(state, topic)
	progress["status"] = "complete"
	progress["phase"] = "complete"
	progress["completed_at_utc"] = nowISO
	progress["last_interview_at_utc"] = nowISO
	progress["last_updated_at_utc"] = nowISO

	index, _ := asStateInt(progress["question_index"])
	total, _ := asStateInt(progress["question_total"])

	if total > index {
		index = total
	}

	progress["question_index"] = index

	if followupDue != "" {
		progress["next_followup_due_at_utc"] = followupDue
	}

	if len(futureTopics) > 0 {
		progress["future_interview_topics"] = futureTopics
	}

	state["active_topic"] = nil
	appendTopicHistory(state, topic, "complete_onboarding", previousStatus, "complete", "")
	refreshSummaryFields(state)

	changed, err = persistState(ctx, state, changed)
	if err != nil {
		return nil, err
	}

	actionAbs := library.TopicFilePath(ctx.LibraryRoot, topic, "action-plan.md")
	actionRel := pathguard.Relative(ctx.LibraryRoot, actionAbs)

	if strings.TrimSpace(summary) != "" {
		block := fmt.Sprintf(
			"## Onboarding Summary %s\n\n%s\n",
			ctx.now().UTC().Format("2006-01-02"),
			strings.TrimSpace(summary),
		)

		err = atomicfile.WriteText(actionAbs, mdedit.JoinWithNewline(readTextOrEmpty(actionAbs), block))
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Action plan could not be written.", map[string]any{"path": actionRel})
		}

		changed = append(changed, actionRel)
	}

	sha, err := commitOnboarding(ctx, changed, "complete_topic_onboarding", actionRel, fmt.Sprintf("complete topic onboarding (%s)", topic))
	if err != nil {
		return nil, err
	}

	state = library.ReadState(ctx.LibraryRoot)

	return map[string]any{
		"topic":      topic,
		"status":     starterStatus(state, topic),
		"phase":      progress["phase"],
		"next_topic": nextTopicValue(state),
		"commitSha":  sha,
	}, nil
}

var approvedBlockPattern = regexp.MustCompile(`^## Approved (Context|Interview Turn|User Context)`)

func rebuildProfileContext(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "facts", "topics")
	if err != nil {
		return nil, err
	}

	explicitFacts := []string{}

	if rawFacts, present := p["facts"]; present && rawFacts != nil {
		entries, ok := rawFacts.([]any)
		if !ok {
			return nil, mcperr.New("INVALID_TYPE", "facts must be a list of strings.", map[string]any{"type": payload.TypeName(rawFacts)})
		}

		for _, entry := range entries {
			if fact, isString := entry.(string); isString && strings.TrimSpace(fact) != "" {
				explicitFacts = append(explicitFacts, strings.TrimSpace(fact))
			}
		}
	}

	topics := library.TopicOrder

	if rawTopics, present := p["topics"]; present && rawTopics != nil {
		entries, ok := rawTopics.([]any)
		if !ok {
			return nil, mcperr.New("INVALID_TYPE", "topics must be a list of topic strings.", map[string]any{"type": payload.TypeName(rawTopics)})
		}

		topics = nil

		for _, entry := range entries {
			if _, isString := entry.(string); !isString {
				return nil, mcperr.New("INVALID_TYPE", "topics must be a list of topic strings.", map[string]any{"type": payload.TypeName(rawTopics)})
			}

			topic, err := library.ValidateTopic(entry)
			if err != nil {
				return nil, err
			}

			topics = append(topics, topic)
		}
	}

	changed, err := bootstrapLibrary(ctx)
	if err != nil {
		return nil, err
	}

	merged := []string{}
	seen := map[string]struct{}{}

	for _, fact := range append(explicitFacts, extractProfileFacts(ctx.LibraryRoot, topics)...) {
		if _, dup := seen[fact]; dup {
			continue
		}

		seen[fact] = struct{}{}
		merged = append(merged, fact)
	}

	profileAbs := filepath.Join(ctx.LibraryRoot, "me", "profile.md")
	rendered := renderProfile(merged, onboardingStamp(ctx))

	if readTextOrEmptyMarker(profileAbs) != rendered {
		err = os.MkdirAll(filepath.Dir(profileAbs), 0o755)
		if err == nil {
			err = atomicfile.WriteText(profileAbs, rendered)
		}

		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Profile could not be written.", map[string]any{"path": "me/profile.md"})
		}

		changed = append(changed, "me/profile.md")
	}

	sha, err := commitOnboarding(ctx, changed, "rebuild_profile_context", "me/profile.md", "rebuild profile context")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"path":       "me/profile.md",
		"fact_count": len(merged),
		"facts":      merged,
		"changed":    len(changed) > 0,
		"commitSha":  sha,
	}, nil
}

// extractProfileFacts pulls approved interview blocks out of each topic's
// interview.md, normalized to one line per block.
func extractProfileFacts(libraryRoot string, topics []string) []string {
	var facts []string

	for _, topic := range topics {
		content := readTextOrEmpty(library.TopicFilePath(libraryRoot, topic, "interview.md"))
		if content == "" {
			continue
		}

		for _, body := range approvedBlocks(content) {
			var parts []string

			for _, line := range strings.Split(body, "\n") {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					parts = append(parts, trimmed)
				}
			}

			if len(parts) == 0 {
				continue
			}

			facts = append(facts, fmt.Sprintf("[%s] %s", library.TopicTitles[topic], strings.Join(parts, " ")))
		}
	}

	return facts
}

// approvedBlocks returns the body text between each approved heading and
// the next second-level heading.
func approvedBlocks(content string) []string {
	lines := strings.Split(content, "\n")

	var blocks []string
	var current []string

	inBlock := false

	flush := func() {
		if inBlock {
			body := strings.TrimSpace(strings.Join(current, "\n"))
			if body != "" {
				blocks = append(blocks, body)
			}
		}

		current = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()

			inBlock = approvedBlockPattern.MatchString(line)

			continue
		}

		if inBlock {
			current = append(current, line)
		}
	}

	flush()

	return blocks
}

func renderProfile(facts []string, nowISO string) string {
	lines := []string{
		"# Profile",
		"",
		"## Identity",
		"",
		"## Goals",
		"",
		"## Constraints",
		"",
		"## Preferences",
		"",
		"## Onboarding Facts",
		"",
	}

	if len(facts) == 0 {
		lines = append(lines, "- (no approved onboarding facts yet)")
	} else {
		for _, fact := range facts {
			lines = append(lines, "- "+fact)
		}
	}

	lines = append(lines, "", "## Last Updated", "", "- "+nowISO, "")

	return strings.Join(lines, "\n")
}

var goalsLabelPattern = regexp.MustCompile(`(?i)\b(goal|task)\s*:`)
var goalsLeadingPattern = regexp.MustCompile(`^[\-\*\d\.\)\s]+`)
var goalsPlaceholderPattern = regexp.MustCompile(`(?i)^\s*-\s*\(to be populated during onboarding\)\s*$`)

// extractGoalsContextEntries splits approved goals context into individual
// entries: labeled Goal:/Task: segments when present, otherwise one entry
// per non-empty line.
func extractGoalsContextEntries(contextText string) []string {
	text := strings.TrimSpace(contextText)
	if text == "" {
		return nil
	}

	clean := func(value string) string {
		return strings.Trim(strings.Join(strings.Fields(value), " "), " .;,-")
	}

	labels := goalsLabelPattern.FindAllStringSubmatchIndex(text, -1)
	if len(labels) > 0 {
		var entries []string

		for i, match := range labels {
			end := len(text)
			if i+1 < len(labels) {
				end = labels[i+1][0]
			}

			kind := strings.ToLower(text[match[2]:match[3]])
			value := clean(text[match[1]:end])

			if value != "" {
				entries = append(entries, strings.ToUpper(kind[:1])+kind[1:]+": "+value)
			}
		}

		return entries
	}

	var entries []string

	for _, rawLine := range strings.Split(text, "\n") {
		cleaned := clean(goalsLeadingPattern.ReplaceAllString(strings.TrimSpace(rawLine), ""))
		if cleaned != "" {
			entries = append(entries, cleaned)
		}
	}

	if len(entries) > 0 {
		return entries
	}

	return []string{text}
}

// upsertCurrentGoals merges new checkbox entries into the Current Goals
// section, dropping the onboarding placeholder and deduplicating bullets.
func upsertCurrentGoals(existing string, entries []string) string {
	if len(entries) == 0 {
		return existing
	}

	var lines []string

	for _, line := range strings.Split(existing, "\n") {
		if !goalsPlaceholderPattern.MatchString(line) {
			lines = append(lines, line)
		}
	}

	headingIndex := -1

	for idx, line := range lines {
		if strings.ToLower(strings.TrimSpace(line)) == "## current goals" {
			headingIndex = idx

			break
		}
	}

	if headingIndex == -1 {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}

		lines = append(lines, "## Current Goals", "")
		headingIndex = len(lines) - 2
	}

	insertion := headingIndex + 1

	if insertion < len(lines) && strings.TrimSpace(lines[insertion]) != "" {
		lines = append(lines[:insertion], append([]string{""}, lines[insertion:]...)...)
		insertion++
	}

	for insertion < len(lines) && strings.TrimSpace(lines[insertion]) == "" {
		insertion++
	}

	existingBullets := map[string]struct{}{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- [ ] ") {
			existingBullets[trimmed] = struct{}{}
		}
	}

	var newLines []string

	for _, entry := range entries {
		bullet := "- [ ] " + entry
		if _, dup := existingBullets[bullet]; dup {
			continue
		}

		existingBullets[bullet] = struct{}{}
		newLines = append(newLines, bullet)
	}

	if len(newLines) == 0 {
		return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
	}

	merged := append([]string{}, lines[:insertion]...)
	merged = append(merged, newLines...)
	merged = append(merged, "")
	merged = append(merged, lines[insertion:]...)

	return strings.TrimRight(strings.Join(merged, "\n"), " \t\n") + "\n"
}

// bootstrapLibrary projects the base template (when configured) and
// applies the schema, returning the sorted unique changed paths.
func bootstrapLibrary(ctx *Context) ([]string, error) {
	var changed []string

	templateRoot := strings.TrimSpace(ctx.TemplatePath)
	if templateRoot != "" {
		if !isDir(templateRoot) {
			return nil, mcperr.New(
				"INVALID_TEMPLATE_PATH",
				"Configured base template path does not exist.",
				map[string]any{"path": templateRoot},
			)
		}

		projected, err := projectTemplate(templateRoot, ctx.LibraryRoot)
		if err != nil {
			return nil, mcperr.New("WRITE_ERROR", "Base template could not be projected.", map[string]any{"path": templateRoot})
		}

		changed = append(changed, projected...)
	}

	result, err := library.EnsureStructure(ctx.LibraryRoot, true, ctx.now())
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Library structure could not be ensured.", map[string]any{"path": ctx.LibraryRoot})
	}

	changed = append(changed, result.ChangedPaths...)

	seen := map[string]struct{}{}
	unique := changed[:0]

	for _, path := range changed {
		if _, dup := seen[path]; dup {
			continue
		}

		seen[path] = struct{}{}
		unique = append(unique, path)
	}

	sort.Strings(unique)

	return unique, nil
}

// projectTemplate copies template files that do not exist yet at the
// destination; existing files are never overwritten.
func projectTemplate(templateRoot, libraryRoot string) ([]string, error) {
	var changed []string

	err := walkNoSymlinks(templateRoot, func(abs string, entryIsDir bool) error {
		relative, err := filepath.Rel(templateRoot, abs)
		if err != nil {
			return err
		}

		target := filepath.Join(libraryRoot, relative)

		if entryIsDir {
			return os.MkdirAll(target, 0o755)
		}

		if pathExists(target) {
			return nil
		}

		err = os.MkdirAll(filepath.Dir(target), 0o755)
		if err != nil {
			return err
		}

		info, err := os.Stat(abs)
		if err != nil {
			return err
		}

		err = copyFile(abs, target, info)
		if err != nil {
			return err
		}

		changed = append(changed, filepath.ToSlash(relative))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return changed, nil
}

// commitOnboarding commits accumulated changes without worktree rollback;
// a nil sha means nothing needed committing.
func commitOnboarding(ctx *Context, changed []string, operation, target, summary string) (any, error) {
	if len(changed) == 0 {
		return nil, nil
	}

	staged := append([]string(nil), changed...)
	sort.Strings(staged)

	txn, err := engine.Begin(ctx.LibraryRoot)
	if err != nil {
		return nil, err
	}
	defer txn.Close()

	sha, err := txn.CommitKeepFiles(engine.Mutation{
		Operation: operation,
		Target:    target,
		Staged:    staged,
		Summary:   summary,
	}, "Git commit failed for onboarding mutation.", map[string]any{"operation": operation})
	if err != nil {
		return nil, err
	}

	return sha, nil
}

func persistState(ctx *Context, state map[string]any, changed []string) ([]string, error) {
	path, err := library.PersistState(ctx.LibraryRoot, state)
	if err != nil {
		return nil, mcperr.New("WRITE_ERROR", "Onboarding state could not be written.", map[string]any{"path": library.StatePath(ctx.LibraryRoot)})
	}

	if path != "" {
		changed = append(changed, path)
	}

	return changed, nil
}

func starterTopics(state map[string]any) map[string]any {
	topics, ok := state["starter_topics"].(map[string]any)
	if !ok {
		topics = map[string]any{}
		state["starter_topics"] = topics
	}

	return topics
}

func completedAt(state map[string]any) map[string]any {
	completed, ok := state["completed_at"].(map[string]any)
	if !ok {
		completed = map[string]any{}
		state["completed_at"] = completed
	}

	return completed
}

func starterStatus(state map[string]any, topic string) string {
	status, _ := starterTopics(state)[topic].(string)
	if status == "" {
		return "not_started"
	}

	return status
}

func nextTopicValue(state map[string]any) any {
	topic := library.NextIncompleteTopic(state)
	if topic == "" {
		return nil
	}

	return topic
}

func ensureTopicProgress(state map[string]any, topic string) map[string]any {
	progressMap, ok := state["topic_progress"].(map[string]any)
	if !ok {
		progressMap = map[string]any{}
		state["topic_progress"] = progressMap
	}

	if existing, isObj := progressMap[topic].(map[string]any); isObj {
		return existing
	}

	initialized := map[string]any{
		"status":                   starterStatus(state, topic),
		"phase":                    "not_started",
		"started_at_utc":           nil,
		"last_interview_at_utc":    nil,
		"completed_at_utc":         nil,
		"next_followup_due_at_utc": nil,
		"question_total":           0,
		"question_index":           0,
		"followup_cycles":          0,
		"future_interview_topics":  []any{},
		"last_updated_at_utc":      library.UTCNow(),
	}
	progressMap[topic] = initialized

	return initialized
}

func appendTopicHistory(state map[string]any, topic, event, fromStatus, toStatus, detail string) {
	history, ok := state["topic_history"].([]any)
	if !ok {
		history = []any{}
	}

	entry := map[string]any{
		"topic":  topic,
		"event":  event,
		"at_utc": library.UTCNow(),
	}

	if fromStatus != "" {
		entry["from_status"] = fromStatus
	}

	if toStatus != "" {
		entry["to_status"] = toStatus
	}

	if strings.TrimSpace(detail) != "" {
		entry["detail"] = strings.TrimSpace(detail)
	}

	history = append(history, entry)

	if len(history) > 200 {
		history = history[len(history)-200:]
	}

	state["topic_history"] = history
}

// refreshSummaryFields keeps the derived summary fields coherent with the
// per-topic progress records.
func refreshSummaryFields(state map[string]any) {
	starter := starterTopics(state)
	completed := completedAt(state)

	for _, topic := range library.TopicOrder {
		progress := ensureTopicProgress(state, topic)

		status, _ := progress["status"].(string)
		if !isTopicStatus(status) {
			status, _ = starter[topic].(string)
		}

		if !isTopicStatus(status) {
			status = "not_started"
		}

		starter[topic] = status
		progress["status"] = status

		if status == "complete" {
			if stamp, ok := progress["completed_at_utc"].(string); ok && stamp != "" {
				completed[topic] = stamp
			} else if _, present := completed[topic]; !present {
				completed[topic] = library.UTCNow()
			}
		} else {
			delete(completed, topic)
		}
	}

	state["recommended_next_topic"] = nextTopicValue(state)

	queue := []any{}

	for _, topic := range library.TopicOrder {
		if starter[topic] != "complete" {
			queue = append(queue, topic)
		}
	}

	state["topic_queue"] = queue

	if active, ok := state["active_topic"].(string); !ok || !isOnboardingTopic(active) {
		state["active_topic"] = nil
	}

	if created, _ := state["created_at_utc"].(string); created == "" {
		state["created_at_utc"] = library.UTCNow()
	}

	state["updated_at_utc"] = library.UTCNow()
}

func isTopicStatus(status string) bool {
	_, ok := library.TopicStatusValues[status]

	return ok
}

func isOnboardingTopic(topic string) bool {
	_, ok := library.TopicTitles[topic]

	return ok
}

func optionalNonEmptyString(p map[string]any, field, message string) (string, error) {
	raw, present := p[field]
	if !present || raw == nil {
		return "", nil
	}

	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", mcperr.New("INVALID_TYPE", message, map[string]any{"type": payload.TypeName(raw)})
	}

	return strings.TrimSpace(value), nil
}

func nonNegativeIntOption(p map[string]any, field string) (int, bool, error) {
	raw, present := p[field]
	if !present || raw == nil {
		return 0, false, nil
	}

	value, ok := asStateInt(raw)
	if !ok || value < 0 {
		return 0, false, mcperr.New(
			"INVALID_TYPE",
			fmt.Sprintf("%s must be a non-negative integer when provided.", field),
			map[string]any{"type": payload.TypeName(raw)},
		)
	}

	return value, true, nil
}

func phaseOption(p map[string]any) (string, error) {
	raw, present := p["phase"]
	if !present || raw == nil {
		return "", nil
	}

	value, ok := raw.(string)
	if ok {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if _, known := library.TopicPhaseValues[normalized]; known {
			return normalized, nil
		}
	}

	return "", mcperr.New(
		"INVALID_TYPE",
		"phase must be one of: not_started, opening, goals_tasks, followup, complete.",
		map[string]any{"phase": raw},
	)
}

func futureTopicsOption(p map[string]any) ([]any, error) {
	raw, present := p["future_interview_topics"]
	if !present || raw == nil {
		return nil, nil
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, mcperr.New(
			"INVALID_TYPE",
			"future_interview_topics must be a list of topic slugs when provided.",
			map[string]any{"type": payload.TypeName(raw)},
		)
	}

	var parsed []any
	seen := map[string]struct{}{}

	for _, entry := range entries {
		value, isString := entry.(string)
		if !isString {
			continue
		}

		topic := strings.ToLower(strings.TrimSpace(value))
		if !isOnboardingTopic(topic) {
			continue
		}

		if _, dup := seen[topic]; dup {
			continue
		}

		seen[topic] = struct{}{}
		parsed = append(parsed, topic)
	}

	return parsed, nil
}

func asStateInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}

	return 0, false
}

// onboardingStamp is the full-precision timestamp used in document section
// headings.
func onboardingStamp(ctx *Context) string {
	return ctx.now().UTC().Format("2006-01-02T15:04:05.999999-07:00")
}
