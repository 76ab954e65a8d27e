package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/braindrive/library/pkg/atomicfile"
	"github.com/braindrive/library/pkg/mcperr"
)

const (
	stateVersion      = 2
	historyCap        = 200
	statusNotStarted  = "not_started"
	statusComplete    = "complete"
	phaseNotStarted   = "not_started"
	schemaVersionFile = ".braindrive/schema-version.json"
	stateFile         = ".braindrive/onboarding_state.json"
)

// StatePath returns the absolute onboarding state path for a library root.
func StatePath(libraryRoot string) string {
	return filepath.Join(libraryRoot, ".braindrive", "onboarding_state.json")
}

// TopicFilePath returns the absolute path of a topic document.
func TopicFilePath(libraryRoot, topic, filename string) string {
	return filepath.Join(libraryRoot, "life", topic, filename)
}

// UTCNow returns the current UTC time truncated to whole seconds, rendered
// in RFC 3339 with a numeric offset.
func UTCNow() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05-07:00")
}

func normalizeTimestamp(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	return trimmed, true
}

func defaultTopicProgress(createdAt string) map[string]any {
	progress := make(map[string]any, len(TopicOrder))
	for _, topic := range TopicOrder {
		progress[topic] = map[string]any{
			"status":                   statusNotStarted,
			"phase":                    phaseNotStarted,
			"started_at_utc":           nil,
			"last_interview_at_utc":    nil,
			"completed_at_utc":         nil,
			"next_followup_due_at_utc": nil,
			"question_total":           0,
			"question_index":           0,
			"followup_cycles":          0,
			"future_interview_topics":  []any{},
			"last_updated_at_utc":      createdAt,
		}
	}

	return progress
}

// DefaultState builds a fresh onboarding state.
func DefaultState() map[string]any {
	createdAt := UTCNow()

	starter := make(map[string]any, len(TopicOrder))
	for _, topic := range TopicOrder {
		starter[topic] = statusNotStarted
	}

	queue := make([]any, 0, len(TopicOrder))
	for _, topic := range TopicOrder {
		queue = append(queue, topic)
	}

	return map[string]any{
		"version":                stateVersion,
		"starter_topics":         starter,
		"completed_at":           map[string]any{},
		"created_at_utc":         createdAt,
		"updated_at_utc":         createdAt,
		"active_topic":           nil,
		"topic_queue":            queue,
		"recommended_next_topic": TopicOrder[0],
		"topic_progress":         defaultTopicProgress(createdAt),
		"topic_history":          []any{},
	}
}

// ReadState loads the onboarding state, tolerating a missing, unreadable,
// or partially valid file: unknown values fall back to defaults.
func ReadState(libraryRoot string) map[string]any {
	normalized := DefaultState()

	data, err := os.ReadFile(StatePath(libraryRoot))
	if err != nil {
		return normalized
	}

	var raw any

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return normalized
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return normalized
	}

	mergeState(normalized, obj, false)

	return normalized
}

// PersistState merges an updated state over what is on disk, enforces
// coherence between starter statuses and completion stamps, refreshes the
// update timestamp, and writes the file only when the merged state differs
// from the stored one. Returns the relative state path, or "" when nothing
// changed.
func PersistState(libraryRoot string, state map[string]any) (string, error) {
	path := StatePath(libraryRoot)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}

	normalized := ReadState(libraryRoot)
	mergeState(normalized, state, true)

	for _, topic := range TopicOrder {
		starter := normalized["starter_topics"].(map[string]any)
		progress := normalized["topic_progress"].(map[string]any)[topic].(map[string]any)
		completed := normalized["completed_at"].(map[string]any)

		if starter[topic] == statusComplete {
			stamp, hasStamp := progress["completed_at_utc"].(string)
			if hasStamp && stamp != "" {
				completed[topic] = stamp
			} else if _, present := completed[topic]; !present {
				completed[topic] = UTCNow()
			}

			continue
		}

		delete(completed, topic)
		progress["completed_at_utc"] = nil
	}

	createdAt, _ := normalized["created_at_utc"].(string)
	if createdAt == "" {
		normalized["created_at_utc"] = UTCNow()
	}

	recommended, _ := normalized["recommended_next_topic"].(string)
	if !isKnownTopic(recommended) {
		normalized["recommended_next_topic"] = nextIncompleteValue(normalized)
	}

	queue, _ := normalized["topic_queue"].([]any)
	if len(queue) == 0 {
		fresh := make([]any, 0, len(TopicOrder))
		for _, topic := range TopicOrder {
			fresh = append(fresh, topic)
		}

		normalized["topic_queue"] = fresh
	}

	// Compare with the previous updated_at_utc pinned so an otherwise
	// unchanged state is not rewritten just to refresh the stamp.
	if existing, readErr := os.ReadFile(path); readErr == nil {
		var parsed any
		if json.Unmarshal(existing, &parsed) == nil {
			if prev, ok := parsed.(map[string]any); ok {
				if stamp, hasStamp := prev["updated_at_utc"].(string); hasStamp {
					normalized["updated_at_utc"] = stamp
				}
			}

			if reflect.DeepEqual(parsed, reparse(normalized)) {
				return "", nil
			}
		}
	}

	normalized["updated_at_utc"] = UTCNow()

	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode onboarding state: %w", err)
	}

	err = atomicfile.WriteText(path, string(encoded)+"\n")
	if err != nil {
		return "", fmt.Errorf("write onboarding state: %w", err)
	}

	return stateFile, nil
}

// reparse round-trips a state through JSON so numeric types line up with a
// freshly decoded file for comparison.
func reparse(state map[string]any) any {
	encoded, err := json.Marshal(state)
	if err != nil {
		return nil
	}

	var parsed any
	if json.Unmarshal(encoded, &parsed) != nil {
		return nil
	}

	return parsed
}

// mergeState overlays raw onto normalized in place. In strict mode (used by
// PersistState) explicit nulls clear the active and recommended topics and
// the completed map is replaced instead of filtered.
func mergeState(normalized, raw map[string]any, strict bool) {
	if version, ok := asInt(raw["version"]); ok {
		normalized["version"] = version
	}

	if createdAt, ok := normalizeTimestamp(raw["created_at_utc"]); ok {
		normalized["created_at_utc"] = createdAt
	}

	if updatedAt, ok := normalizeTimestamp(raw["updated_at_utc"]); ok {
		normalized["updated_at_utc"] = updatedAt
	}

	if rawActive, present := raw["active_topic"]; present {
		if active, ok := rawActive.(string); ok {
			topic := canonicalTopic(active)
			if isKnownTopic(topic) {
				normalized["active_topic"] = topic
			} else if strict {
				normalized["active_topic"] = nil
			}
		} else if strict && rawActive == nil {
			normalized["active_topic"] = nil
		}
	}

	if queue := parseTopicList(raw["topic_queue"]); len(queue) > 0 {
		normalized["topic_queue"] = queue
	}

	if rawNext, present := raw["recommended_next_topic"]; present {
		if next, ok := rawNext.(string); ok {
			topic := canonicalTopic(next)
			if isKnownTopic(topic) {
				normalized["recommended_next_topic"] = topic
			} else if strict {
				normalized["recommended_next_topic"] = nil
			}
		} else if strict && rawNext == nil {
			normalized["recommended_next_topic"] = nil
		}
	}

	starter := normalized["starter_topics"].(map[string]any)
	progress := normalized["topic_progress"].(map[string]any)

	if rawStarter, ok := raw["starter_topics"].(map[string]any); ok {
		for _, topic := range TopicOrder {
			value, isString := rawStarter[topic].(string)
			if !isString {
				continue
			}

			if _, known := TopicStatusValues[value]; known {
				starter[topic] = value
				if strict {
					progress[topic].(map[string]any)["status"] = value
				}
			}
		}
	}

	if rawCompleted, ok := raw["completed_at"].(map[string]any); ok {
		completed := map[string]any{}
		for topic, value := range rawCompleted {
			if stamp, isString := value.(string); isString {
				completed[topic] = stamp
			}
		}

		normalized["completed_at"] = completed
	} else if strict {
		normalized["completed_at"] = map[string]any{}
	}

	if rawProgress, ok := raw["topic_progress"].(map[string]any); ok {
		for _, topic := range TopicOrder {
			incoming, isObj := rawProgress[topic].(map[string]any)
			if !isObj {
				continue
			}

			target := progress[topic].(map[string]any)

			if status, isString := incoming["status"].(string); isString {
				if _, known := TopicStatusValues[status]; known {
					target["status"] = status
					starter[topic] = status
				}
			}

			if phase, isString := incoming["phase"].(string); isString {
				if _, known := TopicPhaseValues[phase]; known {
					target["phase"] = phase
				}
			}

			for _, key := range []string{
				"started_at_utc",
				"last_interview_at_utc",
				"completed_at_utc",
				"next_followup_due_at_utc",
				"last_updated_at_utc",
			} {
				if stamp, hasStamp := normalizeTimestamp(incoming[key]); hasStamp {
					target[key] = stamp
				}
			}

			for _, key := range []string{"question_total", "question_index", "followup_cycles"} {
				if count, isInt := asInt(incoming[key]); isInt && count >= 0 {
					target[key] = count
				}
			}

			if rawFuture, hasFuture := incoming["future_interview_topics"].([]any); hasFuture {
				target["future_interview_topics"] = parseTopicList(rawFuture)
			}
		}
	}

	if rawHistory, ok := raw["topic_history"].([]any); ok {
		parsed := make([]any, 0, len(rawHistory))

		for _, item := range rawHistory {
			entry, isObj := item.(map[string]any)
			if !isObj {
				continue
			}

			event, _ := entry["event"].(string)
			event = strings.TrimSpace(event)

			rawTopic, _ := entry["topic"].(string)
			topic := canonicalTopic(rawTopic)

			stamp, hasStamp := normalizeTimestamp(entry["at_utc"])
			if event == "" || !isKnownTopic(topic) || !hasStamp {
				continue
			}

			record := map[string]any{
				"event":  event,
				"topic":  topic,
				"at_utc": stamp,
			}

			if from, isString := entry["from_status"].(string); isString {
				if _, known := TopicStatusValues[from]; known {
					record["from_status"] = from
				}
			}

			if to, isString := entry["to_status"].(string); isString {
				if _, known := TopicStatusValues[to]; known {
					record["to_status"] = to
				}
			}

			if detail, isString := entry["detail"].(string); isString && strings.TrimSpace(detail) != "" {
				record["detail"] = strings.TrimSpace(detail)
			}

			parsed = append(parsed, record)
		}

		if len(parsed) > historyCap {
			parsed = parsed[len(parsed)-historyCap:]
		}

		normalized["topic_history"] = parsed
	}

	if !strict {
		completed := normalized["completed_at"].(map[string]any)
		for _, topic := range TopicOrder {
			if starter[topic] == statusComplete {
				if _, present := completed[topic]; !present {
					stamp, hasStamp := progress[topic].(map[string]any)["completed_at_utc"].(string)
					if hasStamp && stamp != "" {
						completed[topic] = stamp
					}
				}

				continue
			}

			delete(completed, topic)
		}

		recommended, _ := normalized["recommended_next_topic"].(string)
		if !isKnownTopic(recommended) {
			normalized["recommended_next_topic"] = nextIncompleteValue(normalized)
		}

		queue, _ := normalized["topic_queue"].([]any)
		if len(queue) == 0 {
			fresh := make([]any, 0, len(TopicOrder))
			for _, topic := range TopicOrder {
				fresh = append(fresh, topic)
			}

			normalized["topic_queue"] = fresh
		}
	}
}

// ValidateTopic canonicalizes a topic payload value.
func ValidateTopic(v any) (string, error) {
	raw, ok := v.(string)
	if !ok {
		return "", mcperr.New(
			"INVALID_TYPE",
			"topic must be a string.",
			map[string]any{"topic": fmt.Sprint(v)},
		)
	}

	topic := canonicalTopic(raw)
	if !isKnownTopic(topic) {
		return "", mcperr.New(
			"INVALID_TOPIC",
			"Unsupported onboarding topic.",
			map[string]any{"topic": raw, "allowed": append([]string(nil), TopicOrder...)},
		)
	}

	return topic, nil
}

// NextIncompleteTopic returns the first topic whose starter status is not
// complete, or "" when every topic is complete.
func NextIncompleteTopic(state map[string]any) string {
	starter, ok := state["starter_topics"].(map[string]any)
	if !ok {
		return TopicOrder[0]
	}

	for _, topic := range TopicOrder {
		if starter[topic] != statusComplete {
			return topic
		}
	}

	return ""
}

func nextIncompleteValue(state map[string]any) any {
	topic := NextIncompleteTopic(state)
	if topic == "" {
		return nil
	}

	return topic
}

func canonicalTopic(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isKnownTopic(topic string) bool {
	_, ok := TopicTitles[topic]

	return ok
}

// parseTopicList filters a decoded list down to unique known topics.
func parseTopicList(v any) []any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]any, 0, len(raw))

	for _, item := range raw {
		s, isString := item.(string)
		if !isString {
			continue
		}

		topic := canonicalTopic(s)
		if !isKnownTopic(topic) {
			continue
		}

		if _, dup := seen[topic]; dup {
			continue
		}

		seen[topic] = struct{}{}
		out = append(out, topic)
	}

	return out
}

func asInt(v any) (int, bool) {
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
