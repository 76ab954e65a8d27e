// Package payload validates tool payloads field by field, producing the
// stable error codes the tool surface guarantees. JSON payloads arrive as
// generic maps; every handler funnels them through these helpers before
// touching the filesystem.
package payload

import (
	"fmt"
	"sort"

	"github.com/braindrive/library/pkg/mcperr"
	"github.com/braindrive/library/pkg/mdedit"
)

// EnsureObject asserts the decoded payload is a JSON object.
func EnsureObject(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, mcperr.New(
			"INVALID_TYPE",
			"Payload must be an object.",
			map[string]any{"type": TypeName(v)},
		)
	}

	return obj, nil
}

// RejectUnknown fails when the payload carries fields outside the allowed
// set. Unknown fields are reported sorted.
func RejectUnknown(p map[string]any, allowed ...string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, field := range allowed {
		allowedSet[field] = struct{}{}
	}

	var unknown []string

	for field := range p {
		if _, ok := allowedSet[field]; !ok {
			unknown = append(unknown, field)
		}
	}

	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)

	return mcperr.New(
		"UNKNOWN_FIELD",
		"Unknown fields are not allowed.",
		map[string]any{"fields": unknown},
	)
}

// Require fails with the given code when the field is absent.
func Require(p map[string]any, field, code, message string) (any, error) {
	v, ok := p[field]
	if !ok {
		return nil, mcperr.New(code, message, map[string]any{"fields": []string{field}})
	}

	return v, nil
}

// String asserts a value is a string, labeling the error with the field
// name.
func String(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mcperr.New(
			"INVALID_TYPE",
			fmt.Sprintf("%s must be a string.", field),
			map[string]any{field: fmt.Sprint(v), "type": TypeName(v)},
		)
	}

	return s, nil
}

// OptString reads an optional string field.
func OptString(p map[string]any, field string) (string, bool, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return "", false, nil
	}

	s, err := String(field, v)
	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

// OptBool reads an optional boolean field.
func OptBool(p map[string]any, field string) (bool, bool, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return false, false, nil
	}

	b, isBool := v.(bool)
	if !isBool {
		return false, false, mcperr.New(
			"INVALID_TYPE",
			fmt.Sprintf("%s must be a boolean.", field),
			map[string]any{field: fmt.Sprint(v), "type": TypeName(v)},
		)
	}

	return b, true, nil
}

// OptInt reads an optional integer field. JSON numbers decode as float64;
// only integral values pass.
func OptInt(p map[string]any, field string) (int, bool, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int(n)) {
			return int(n), true, nil
		}
	}

	return 0, false, mcperr.New(
		"INVALID_TYPE",
		fmt.Sprintf("%s must be an integer.", field),
		map[string]any{field: fmt.Sprint(v), "type": TypeName(v)},
	)
}

// OptStringSlice reads an optional array-of-strings field.
func OptStringSlice(p map[string]any, field string) ([]string, bool, error) {
	v, ok := p[field]
	if !ok || v == nil {
		return nil, false, nil
	}

	raw, isSlice := v.([]any)
	if !isSlice {
		return nil, false, mcperr.New(
			"INVALID_TYPE",
			fmt.Sprintf("%s must be a list.", field),
			map[string]any{field: fmt.Sprint(v), "type": TypeName(v)},
		)
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		s, isString := item.(string)
		if !isString {
			return nil, false, mcperr.New(
				"INVALID_TYPE",
				fmt.Sprintf("%s entries must be strings.", field),
				map[string]any{field: fmt.Sprint(item), "type": TypeName(item)},
			)
		}

		out = append(out, s)
	}

	return out, true, nil
}

// TypeName reports the JSON type of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}

	return fmt.Sprintf("%T", v)
}

// ParseOperation validates a markdown operation object.
func ParseOperation(raw any) (mdedit.Operation, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return mdedit.Operation{}, mcperr.New(
			"INVALID_TYPE",
			"Operation must be an object.",
			map[string]any{"operation": fmt.Sprint(raw), "type": TypeName(raw)},
		)
	}

	err := RejectUnknown(obj, "type", "content", "target")
	if err != nil {
		return mdedit.Operation{}, err
	}

	rawType, ok := obj["type"]
	if !ok {
		return mdedit.Operation{}, mcperr.New(
			"MISSING_OPERATION_TYPE",
			"Operation type is required.",
			map[string]any{"fields": []string{"type"}},
		)
	}

	rawContent, ok := obj["content"]
	if !ok {
		return mdedit.Operation{}, mcperr.New(
			"MISSING_CONTENT",
			"Operation content is required.",
			map[string]any{"fields": []string{"content"}},
		)
	}

	opType, ok := rawType.(string)
	if !ok {
		return mdedit.Operation{}, mcperr.New(
			"INVALID_TYPE",
			"Operation type must be a string.",
			map[string]any{"type": TypeName(rawType)},
		)
	}

	opContent, ok := rawContent.(string)
	if !ok {
		return mdedit.Operation{}, mcperr.New(
			"INVALID_TYPE",
			"Operation content must be a string.",
			map[string]any{"type": TypeName(rawContent)},
		)
	}

	op := mdedit.Operation{Type: opType, Content: opContent}

	rawTarget, ok := obj["target"]
	if ok && rawTarget != nil {
		target, isString := rawTarget.(string)
		if !isString {
			return mdedit.Operation{}, mcperr.New(
				"INVALID_TYPE",
				"Operation target must be a string.",
				map[string]any{"type": TypeName(rawTarget)},
			)
		}

		op.Target = target
	}

	return op, nil
}
