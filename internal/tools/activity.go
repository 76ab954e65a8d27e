package tools

import (
	"fmt"
	"time"

	"github.com/braindrive/library/internal/journal"
	"github.com/braindrive/library/internal/payload"
	"github.com/braindrive/library/pkg/mcperr"
)

const defaultActivityLimit = 50

func readActivityLog(ctx *Context, p map[string]any) (map[string]any, error) {
	err := payload.RejectUnknown(p, "limit", "since")
	if err != nil {
		return nil, err
	}

	limit, err := positiveIntOption(p, "limit", defaultActivityLimit)
	if err != nil {
		return nil, err
	}

	since, err := timestampOption(p, "since")
	if err != nil {
		return nil, err
	}

	entries, err := journal.Read(ctx.LibraryRoot, since, limit)
	if err != nil {
		return nil, mcperr.New("LOG_ERROR", "Activity log could not be read.", map[string]any{"path": journal.Filename})
	}

	return map[string]any{"entries": entries}, nil
}

func positiveIntOption(p map[string]any, field string, fallback int) (int, error) {
	value, ok, err := payload.OptInt(p, field)
	if err != nil {
		return 0, err
	}

	if !ok {
		return fallback, nil
	}

	if value <= 0 {
		return 0, mcperr.New(
			"INVALID_TYPE",
			fmt.Sprintf("%s must be a positive integer.", field),
			map[string]any{field: fmt.Sprint(value)},
		)
	}

	return value, nil
}

// timestampOption parses an optional ISO timestamp field.
func timestampOption(p map[string]any, field string) (*time.Time, error) {
	raw, ok := p[field]
	if !ok || raw == nil {
		return nil, nil
	}

	parsed, err := parseTimestamp(fmt.Sprint(raw))
	if err != nil {
		return nil, mcperr.New(
			"INVALID_DATE",
			fmt.Sprintf("%s must be ISO date-time.", field),
			map[string]any{field: raw},
		)
	}

	return &parsed, nil
}

// parseTimestamp accepts RFC 3339 timestamps with or without an offset,
// plus bare dates.
func parseTimestamp(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	var lastErr error

	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			if parsed.Location() == time.UTC && layout != time.RFC3339Nano {
				return parsed.UTC(), nil
			}

			return parsed, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}
