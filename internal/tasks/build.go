package tasks

import "strings"

// BuildFromPayload assembles a new open task from tool payload fields. A
// project value that is really a scope reference is treated as the scope.
func BuildFromPayload(
	title, owner, priority, project, scope, due string,
	tags []string,
	id int,
	lookup *Lookup,
	defaultScopePath string,
) *Task {
	cleanTags := []string{}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cleanTags = append(cleanTags, tag)
		}
	}

	scopeValue := scope

	loweredProject := strings.ToLower(project)
	if scopeValue == "" && project != "" &&
		(strings.Contains(project, "/") ||
			strings.HasPrefix(loweredProject, "life:") ||
			strings.HasPrefix(loweredProject, "project:") ||
			strings.HasPrefix(loweredProject, "projects:")) {
		scopeValue = project
	}

	if priority == "" {
		priority = "p2"
	}

	task := &Task{
		ID:       id,
		Status:   " ",
		Title:    title,
		Priority: strptr(priority),
		Tags:     cleanTags,
	}

	if owner != "" {
		task.Owner = strptr(owner)
	}

	if project != "" {
		task.Project = strptr(project)
	}

	if due != "" {
		task.Due = strptr(due)
	}

	if scopeValue != "" {
		task.ScopePath = strptr(scopeValue)
	}

	EnrichScope(task, lookup)

	if deref(task.ScopePath) == "" && defaultScopePath != "" {
		task.ScopePath = strptr(defaultScopePath)
		EnrichScope(task, lookup)
	}

	return task
}

// ApplyUpdates merges an update_task fields object into a task. String
// fields accept a string value or null to clear; a status of "open" or
// "completed" flips the checkbox.
func ApplyUpdates(task *Task, fields map[string]any) {
	assign := func(target **string, value any) {
		switch v := value.(type) {
		case string:
			*target = strptr(v)
		case nil:
			*target = nil
		}
	}

	if value, ok := fields["title"]; ok {
		if title, isString := value.(string); isString {
			task.Title = title
		}
	}

	if value, ok := fields["priority"]; ok {
		assign(&task.Priority, value)
	}

	if value, ok := fields["owner"]; ok {
		assign(&task.Owner, value)
	}

	if value, ok := fields["project"]; ok {
		assign(&task.Project, value)
	}

	if value, ok := fields["due"]; ok {
		assign(&task.Due, value)
	}

	if value, ok := fields["scopePath"]; ok {
		assign(&task.ScopePath, value)
	}

	if value, ok := fields["scope"]; ok {
		assign(&task.ScopePath, value)
	}

	if value, ok := fields["path"]; ok {
		assign(&task.ScopePath, value)
	}

	if value, ok := fields["tags"].([]any); ok {
		tags := []string{}

		for _, item := range value {
			if tag, isString := item.(string); isString {
				tags = append(tags, tag)
			}
		}

		task.Tags = tags
	}

	if value, ok := fields["status"].(string); ok {
		switch strings.ToLower(value) {
		case "open":
			task.Status = " "
		case "completed":
			task.Status = "x"
		}
	}
}
