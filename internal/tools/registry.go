package tools

import "sort"

// registry is the tool dispatch table shared by the HTTP facade and the
// stdio MCP server.
var registry = map[string]Handler{
	"read_markdown":           readMarkdown,
	"list_markdown_files":     listMarkdownFiles,
	"search_markdown":         searchMarkdown,
	"preview_markdown_change": previewMarkdownChange,
	"preview_bulk_changes":    previewBulkChanges,
	"create_markdown":         createMarkdown,
	"write_markdown":          writeMarkdown,
	"edit_markdown":           editMarkdown,
	"delete_markdown":         deleteMarkdown,

	"create_directory":   createDirectory,
	"list_directory":     listDirectory,
	"read_file_metadata": readFileMetadata,
	"move_path":          movePath,
	"copy_path":          copyPath,
	"delete_path":        deletePath,
	"write_binary":       writeBinary,

	"preview_move_path":   previewMovePath,
	"preview_copy_path":   previewCopyPath,
	"preview_delete_path": previewDeletePath,

	"project_exists":          projectExists,
	"list_projects":           listProjects,
	"create_project":          createProject,
	"create_project_scaffold": createProjectScaffold,
	"ensure_scope_scaffold":   ensureScopeScaffold,
	"project_context":         projectContext,

	"list_tasks":    listTasks,
	"create_task":   createTask,
	"update_task":   updateTask,
	"complete_task": completeTask,
	"reopen_task":   reopenTask,

	"bootstrap_user_library":        bootstrapUserLibrary,
	"get_onboarding_state":          getOnboardingState,
	"start_topic_onboarding":        startTopicOnboarding,
	"save_topic_onboarding_context": saveTopicOnboardingContext,
	"complete_topic_onboarding":     completeTopicOnboarding,
	"rebuild_profile_context":       rebuildProfileContext,

	"digest_snapshot":      digestSnapshot,
	"score_digest_tasks":   scoreDigestTasks,
	"rollup_digest_period": rollupDigestPeriod,

	"ingest_transcript": ingestTranscript,

	"read_activity_log": readActivityLog,
}

// Lookup resolves a tool name to its handler.
func Lookup(name string) (Handler, bool) {
	handler, ok := registry[name]

	return handler, ok
}

// Names returns every registered tool name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))

	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
