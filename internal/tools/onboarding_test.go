package tools_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicOnboardingFlow(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	now := time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return now }

	started := callOK(t, "start_topic_onboarding", ctx, map[string]any{"topic": "finances"})
	assert.Equal(t, "finances", started["topic"])
	assert.Equal(t, "in_progress", started["status"])
	assert.NotEmpty(t, started["interview_seed"])
	assert.Regexp(t, "^[0-9a-f]{40}$", started["commitSha"])

	callErr(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "finances",
		"context":  "Unapproved notes.",
		"approved": false,
	}, "APPROVAL_REQUIRED")

	saved := callOK(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "finances",
		"context":  "I want to build a six month emergency fund.",
		"approved": true,
	})
	assert.Equal(t, "in_progress", saved["status"])
	assert.Equal(t, "opening", saved["phase"])

	interview := readLibraryFile(t, ctx, "life/finances/interview.md")
	assert.Contains(t, interview, "## Approved Context")
	assert.Contains(t, interview, "six month emergency fund")

	agent := readLibraryFile(t, ctx, "life/finances/AGENT.md")
	assert.Contains(t, agent, "## Approved User Context")
	assert.Contains(t, agent, "six month emergency fund")

	goalsPhase := callOK(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "finances",
		"context":  "Goal: Save 10% of income monthly. Task: Open a savings account",
		"approved": true,
		"phase":    "goals_tasks",
	})
	assert.Equal(t, "goals_tasks", goalsPhase["phase"])

	goals := readLibraryFile(t, ctx, "life/finances/goals.md")
	assert.Contains(t, goals, "## Current Goals")
	assert.Contains(t, goals, "- [ ] Goal: Save 10% of income monthly")
	assert.Contains(t, goals, "- [ ] Task: Open a savings account")

	actionPlan := readLibraryFile(t, ctx, "life/finances/action-plan.md")
	assert.Contains(t, actionPlan, "## Approved Onboarding Goals/Tasks Context")

	completed := callOK(t, "complete_topic_onboarding", ctx, map[string]any{
		"topic":   "finances",
		"summary": "Budget drafted, emergency fund started.",
	})
	assert.Equal(t, "complete", completed["status"])
	assert.Equal(t, "complete", completed["phase"])
	assert.Equal(t, "fitness", completed["next_topic"])

	actionPlan = readLibraryFile(t, ctx, "life/finances/action-plan.md")
	assert.Contains(t, actionPlan, "## Onboarding Summary 2026-08-24")
	assert.Contains(t, actionPlan, "Budget drafted")

	// starter status, completed_at, and topic progress agree after complete.
	stateData := callOK(t, "get_onboarding_state", ctx, map[string]any{})
	state, ok := stateData["state"].(map[string]any)
	require.True(t, ok)

	starter, ok := state["starter_topics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "complete", starter["finances"])

	completedAt, ok := state["completed_at"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, completedAt["finances"])

	progressByTopic, ok := state["topic_progress"].(map[string]any)
	require.True(t, ok)
	finances, ok := progressByTopic["finances"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, finances["completed_at_utc"])

	history, ok := state["topic_history"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, history)
}

func TestSaveTopicOnboardingContext_QuestionAnswerPairing(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)

	callErr(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "fitness",
		"context":  "Partial turn.",
		"approved": true,
		"question": "How often do you train?",
	}, "MISSING_FIELDS")

	saved := callOK(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "fitness",
		"context":  "Trains twice a week.",
		"approved": true,
		"question": "How often do you train?",
		"answer":   "Twice a week.",
	})
	assert.Equal(t, "in_progress", saved["status"])

	interview := readLibraryFile(t, ctx, "life/fitness/interview.md")
	assert.Contains(t, interview, "## Approved Interview Turn")
	assert.Contains(t, interview, "- Question: How often do you train?")
	assert.Contains(t, interview, "- Answer: Twice a week.")
}

func TestStartTopicOnboarding_UnknownTopic(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)

	callErr(t, "start_topic_onboarding", ctx, map[string]any{"topic": "gardening"}, "INVALID_TOPIC")
	callErr(t, "start_topic_onboarding", ctx, map[string]any{}, "MISSING_TOPIC")
}

func TestRebuildProfileContext(t *testing.T) {
	t.Parallel()

	ctx := newContext(t)
	now := time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC)
	ctx.Now = func() time.Time { return now }

	callOK(t, "save_topic_onboarding_context", ctx, map[string]any{
		"topic":    "finances",
		"context":  "Saving for a house deposit.",
		"approved": true,
	})

	data := callOK(t, "rebuild_profile_context", ctx, map[string]any{
		"facts": []any{"Prefers morning deep work."},
	})
	assert.Equal(t, true, data["changed"])

	facts, ok := data["facts"].([]string)
	require.True(t, ok)
	assert.Contains(t, facts, "Prefers morning deep work.")

	profile := readLibraryFile(t, ctx, "me/profile.md")
	assert.Contains(t, profile, "## Onboarding Facts")
	assert.Contains(t, profile, "- Prefers morning deep work.")
	assert.Contains(t, profile, "[Finances] Saving for a house deposit.")
	assert.Contains(t, profile, "## Last Updated")

	// Identical inputs produce no second commit.
	again := callOK(t, "rebuild_profile_context", ctx, map[string]any{
		"facts": []any{"Prefers morning deep work."},
	})
	assert.Equal(t, false, again["changed"])
	assert.Nil(t, again["commitSha"])
}
