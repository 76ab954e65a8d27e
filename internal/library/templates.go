package library

import "strings"

// SchemaVersion stamps .braindrive/schema-version.json.
const SchemaVersion = "2026-02-17-v2"

// TopicOrder is the canonical onboarding topic sequence.
var TopicOrder = []string{"finances", "fitness", "relationships", "career", "whyfinder"}

// TopicTitles maps topic keys to display titles.
var TopicTitles = map[string]string{
	"finances":      "Finances",
	"fitness":       "Fitness",
	"relationships": "Relationships",
	"career":        "Career",
	"whyfinder":     "WhyFinder",
}

// Topic status and phase vocabularies.
var (
	TopicStatusValues = map[string]struct{}{
		"not_started": {},
		"in_progress": {},
		"complete":    {},
	}

	TopicPhaseValues = map[string]struct{}{
		"not_started": {},
		"opening":     {},
		"goals_tasks": {},
		"followup":    {},
		"complete":    {},
	}
)

const rootAgentTemplate = "# BrainDrive Library Agent\n\n" +
	"You are working in a user-scoped BrainDrive library.\n" +
	"Read this contract before mutating files.\n\n" +
	"## Priorities\n" +
	"1. Preserve user data.\n" +
	"2. Keep paths canonical.\n" +
	"3. Require explicit approval before mutating writes.\n"

const lifeDomainAgentTemplate = "# Life Domain Agent\n\n" +
	"Life-domain context lives under `life/<topic>`.\n" +
	"Each topic must include AGENT.md, spec.md, and build-plan.md.\n"

const projectsAgentTemplate = "# Projects Domain Agent\n\n" +
	"Use `projects/active` for active projects and `projects/archived` for archived work.\n" +
	"Each project must include AGENT.md, spec.md, build-plan.md, decisions.md, and ideas.md.\n"

const captureAgentTemplate = "# Capture Agent\n\n" +
	"Capture raw input in `capture/inbox` and then route it intentionally.\n"

const pulseAgentTemplate = "# Pulse Agent\n\n" +
	"Pulse tracks active tasks in `pulse/index.md` and completed tasks in `pulse/completed/YYYY-MM.md`.\n"

const digestAgentTemplate = "# Digest Agent\n\n" +
	"Digest rollups derive from `digest/daily` entries.\n"

const shareAgentTemplate = "# Share Agent\n\n" +
	"Share templates in `share/templates` and exports in `share/exports`.\n"

const profileTemplate = "# Profile\n\n" +
	"## Identity\n\n" +
	"## Goals\n\n" +
	"## Constraints\n\n" +
	"## Preferences\n\n" +
	"## Last Updated\n"

const rollupStateTemplate = "{\n" +
	"  \"version\": 1,\n" +
	"  \"last_daily_ingest\": null,\n" +
	"  \"last_weekly_rollup\": null,\n" +
	"  \"last_monthly_rollup\": null,\n" +
	"  \"last_yearly_rollup\": null\n" +
	"}\n"

// requiredDirectories are created at every bootstrap.
var requiredDirectories = []string{
	".braindrive",
	"me",
	"capture",
	"capture/inbox",
	"life",
	"projects",
	"projects/active",
	"projects/archived",
	"pulse",
	"pulse/completed",
	"digest",
	"digest/daily",
	"digest/weekly",
	"digest/monthly",
	"digest/yearly",
	"digest/_meta",
	"transcripts",
	"share",
	"share/templates",
	"share/exports",
}

// requiredTextFiles are seeded when missing, never overwritten. Order
// matters: created paths are reported in this order.
var requiredTextFiles = []struct {
	path    string
	content string
}{
	{"AGENT.md", rootAgentTemplate},
	{"activity.log", ""},
	{"me/profile.md", profileTemplate},
	{"capture/AGENT.md", captureAgentTemplate},
	{"life/AGENT.md", lifeDomainAgentTemplate},
	{"projects/AGENT.md", projectsAgentTemplate},
	{"pulse/AGENT.md", pulseAgentTemplate},
	{"pulse/index.md", "# Pulse Index\n"},
	{"digest/AGENT.md", digestAgentTemplate},
	{"share/AGENT.md", shareAgentTemplate},
	{"digest/_meta/rollup-state.json", rollupStateTemplate},
}

// gitkeepFiles keep empty canonical directories tracked.
var gitkeepFiles = []string{
	"capture/inbox/.gitkeep",
	"projects/active/.gitkeep",
	"projects/archived/.gitkeep",
	"digest/daily/.gitkeep",
	"digest/weekly/.gitkeep",
	"digest/monthly/.gitkeep",
	"digest/yearly/.gitkeep",
	"transcripts/.gitkeep",
	"share/templates/.gitkeep",
	"share/exports/.gitkeep",
}

// agentMigrationDirectories are scanned for a legacy agents.md to copy into
// AGENT.md. The legacy file stays in place.
var agentMigrationDirectories = []string{
	".",
	"capture",
	"life",
	"projects",
	"pulse",
	"digest",
	"share",
	"life/finances",
	"life/fitness",
	"life/relationships",
	"life/career",
	"life/whyfinder",
}

// DefaultProjectFiles seed a project created without an explicit file list.
var DefaultProjectFiles = []struct {
	Name    string
	Content string
}{
	{"AGENT.md", "# Project Agent\n"},
	{"spec.md", "# Spec\n\n## Scope\nInitial scope.\n"},
	{"build-plan.md", "# Build Plan\n\n## Phase 1\n\n## Phase 2\n"},
	{"decisions.md", "# Decisions\n"},
	{"ideas.md", "# Ideas\n"},
}

// RequiredScopeFiles lists the files a scope of the given kind must carry.
func RequiredScopeFiles(pageKind string) []string {
	switch normalizeKind(pageKind) {
	case "project":
		return []string{"AGENT.md", "spec.md", "build-plan.md", "decisions.md", "ideas.md"}
	case "life":
		return []string{"AGENT.md", "spec.md", "build-plan.md", "interview.md", "goals.md", "action-plan.md"}
	case "capture":
		return []string{"AGENT.md"}
	}

	return []string{"AGENT.md", "spec.md", "build-plan.md"}
}

// topicSeedFiles returns the per-topic starter documents. The finances
// topic carries the fully worked interview pack; the others share a
// generic shape.
func topicSeedFiles(topic string) []struct{ Name, Content string } {
	title := TopicTitles[topic]
	if topic == "finances" {
		return []struct{ Name, Content string }{
			{"AGENT.md", "# Finances Agent\n\n" +
				"This topic helps the user build financial clarity, consistency, and confidence.\n\n" +
				"## Focus Description\n\n" +
				"Prioritize practical money management and steady progress.\n\n" +
				"## Interview Focus\n\n" +
				"- Income and cash-flow stability\n" +
				"- Budget consistency and spending awareness\n" +
				"- Debt payoff priorities\n" +
				"- Savings and emergency buffer goals\n" +
				"- Near-term milestones (30/60/90 days)\n" +
				"- Constraints and tradeoffs\n"},
			{"interview.md", "# Finances Interview\n\n" +
				"## Opening Interview Policy\n\n" +
				"- Ask one question at a time.\n" +
				"- Opening set should be high-level and capped at 6 questions.\n" +
				"- Require approval before each write.\n" +
				"- Convert relative dates to explicit dates before final save.\n\n" +
				"## Seed Questions (Fallback)\n" +
				"1. What matters most in finances over the next 90 days?\n" +
				"2. What is working well today, and what is not?\n" +
				"3. Which constraints are blocking progress?\n" +
				"4. What would make the next 30 days successful?\n"},
			{"spec.md", "# Finances Spec\n\n" +
				"## Current Reality\n\n## Desired Outcomes\n\n## Constraints\n\n## Success Criteria\n"},
			{"build-plan.md", "# Finances Build Plan\n\n" +
				"## Phase 1\n\n## Phase 2\n\n## Risks\n\n## Next Review\n"},
			{"goals.md", "# Finances Goals\n\n## Current Goals\n\n- (to be populated during onboarding)\n"},
			{"action-plan.md", "# Finances Action Plan\n\n## Immediate Actions\n\n- (to be populated during onboarding)\n"},
		}
	}

	lowered := strings.ToLower(title)

	return []struct{ Name, Content string }{
		{"AGENT.md", "# " + title + " Agent\n\nUse this folder for " + lowered + " planning and execution.\n"},
		{"interview.md", "# " + title + " Interview\n\n" +
			"## Seed Questions\n" +
			"1. What matters most in " + lowered + " right now?\n" +
			"2. What is working and what is not?\n" +
			"3. What constraints are blocking progress?\n" +
			"4. What would make the next 30 days successful?\n"},
		{"spec.md", "# " + title + " Spec\n\n" +
			"## Current Reality\n\n## Desired Outcomes\n\n## Constraints\n\n## Success Criteria\n"},
		{"build-plan.md", "# " + title + " Build Plan\n\n" +
			"## Phase 1\n\n## Phase 2\n\n## Risks\n\n## Next Review\n"},
		{"goals.md", "# " + title + " Goals\n\n## Current Goals\n\n"},
		{"action-plan.md", "# " + title + " Action Plan\n\n## Immediate Actions\n\n"},
	}
}

func normalizeKind(pageKind string) string {
	return strings.ToLower(strings.TrimSpace(pageKind))
}

// ScopeKindForPath infers the scaffold kind from a library-relative slash
// path: life/* scopes interview-style files, projects/* the project set.
func ScopeKindForPath(rel string) string {
	head := strings.ToLower(strings.SplitN(strings.Trim(rel, "/"), "/", 2)[0])

	switch head {
	case "life":
		return "life"
	case "projects", "project":
		return "project"
	case "capture":
		return "capture"
	}

	return "project"
}

// ScopeSeedContent returns the default content for a required scope file
// that was not supplied by the caller.
func ScopeSeedContent(name, filename string) string {
	switch filename {
	case "AGENT.md":
		return "# " + name + " Agent\n"
	case "spec.md":
		return "# " + name + "\n"
	case "build-plan.md":
		return "# " + name + " Build Plan\n\n## Phase 1\n\n## Phase 2\n"
	case "decisions.md":
		return "# Decisions\n"
	case "ideas.md":
		return "# Ideas\n"
	case "interview.md":
		return "# " + name + " Interview\n\n" +
			"## Seed Questions\n" +
			"1. What matters most in " + strings.ToLower(name) + " right now?\n" +
			"2. What is working and what is not?\n" +
			"3. What constraints are blocking progress?\n" +
			"4. What would make the next 30 days successful?\n"
	case "goals.md":
		return "# " + name + " Goals\n\n## Current Goals\n\n"
	case "action-plan.md":
		return "# " + name + " Action Plan\n\n## Immediate Actions\n\n"
	}

	return "# " + name + "\n"
}
