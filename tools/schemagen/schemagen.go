// Package main extracts the per-tool parameter schemas from the embedded
// tool catalogue, verifies each one is a valid JSON Schema and has a
// registered handler, and writes one schema file per tool.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"

	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/internal/toolspec"
)

var outputDir string

func main() {
	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	catalogue, err := toolspec.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tool catalogue: %v\n", err)
		os.Exit(1)
	}

	failed := false

	for _, tool := range catalogue {
		function, _ := tool["function"].(map[string]any)
		name, _ := function["name"].(string)
		parameters, _ := function["parameters"].(map[string]any)

		if genErr := generateSchema(name, parameters); genErr != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema for %s: %v\n", name, genErr)

			failed = true
		}
	}

	if err := checkRegistryParity(catalogue); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		failed = true
	}

	if failed {
		os.Exit(1)
	}

	fmt.Printf("Wrote %d schemas to %s\n", len(catalogue), outputDir)
}

// generateSchema validates the parameters block against the draft-07
// meta-schema and writes it to <outputDir>/<name>.schema.json.
func generateSchema(name string, parameters map[string]any) error {
	raw, err := json.MarshalIndent(parameters, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	// Compiling the loader is what exercises the meta-schema check: an
	// invalid schema fails here before anything is written.
	_, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("invalid parameter schema: %w", err)
	}

	outPath := filepath.Join(outputDir, name+".schema.json")

	err = os.WriteFile(outPath, append(raw, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	fmt.Printf("Generated %s\n", outPath)

	return nil
}

// checkRegistryParity verifies the catalogue and the handler registry agree
// on the tool set in both directions.
func checkRegistryParity(catalogue []map[string]any) error {
	declared := make(map[string]bool, len(catalogue))

	for _, tool := range catalogue {
		function, _ := tool["function"].(map[string]any)
		name, _ := function["name"].(string)
		declared[name] = true

		if _, ok := tools.Lookup(name); !ok {
			return fmt.Errorf("catalogue tool %q has no registered handler", name)
		}
	}

	for _, name := range tools.Names() {
		if !declared[name] {
			return fmt.Errorf("registered handler %q is missing from the catalogue", name)
		}
	}

	return nil
}
