// Package toolspec loads and validates the embedded tool catalogue.
package toolspec

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed mcp_tools.json
var toolDefinitions []byte

//go:embed tool-schema.json
var catalogueSchema []byte

// Load returns the tool definitions after validating them against the
// catalogue schema. The raw JSON shape is preserved so callers can serve
// it verbatim.
func Load() ([]map[string]any, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogueSchema),
		gojsonschema.NewBytesLoader(toolDefinitions),
	)
	if err != nil {
		return nil, fmt.Errorf("validate tool definitions: %w", err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return nil, fmt.Errorf("tool definitions invalid: %s: %s", first.Field(), first.Description())
	}

	var tools []map[string]any

	err = json.Unmarshal(toolDefinitions, &tools)
	if err != nil {
		return nil, fmt.Errorf("decode tool definitions: %w", err)
	}

	return tools, nil
}

// Names returns the declared tool names in catalogue order.
func Names() ([]string, error) {
	tools, err := Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tools))

	for _, tool := range tools {
		function, _ := tool["function"].(map[string]any)
		name, _ := function["name"].(string)
		names = append(names, name)
	}

	return names, nil
}
