// Command schema writes JSON schemas for the files named by WALLEDIN_CONFIG.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/benruijl/walledin/internal/config"
)

var targets = map[string]struct {
	value any
	title string
}{
	"server": {new(config.GameServer), "Walledin game server configuration"},
	"master": {new(config.Master), "Walledin master server configuration"},
	"client": {new(config.Client), "Walledin client configuration"},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write <kind>.schema.json files into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for kind, target := range targets {
		schema := buildSchema(target.value, target.title)
		path := filepath.Join(outDir, kind+".schema.json")
		if err := writeSchema(path, schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s schema: %v\n", kind, err)
			os.Exit(1)
		}
	}
}

func buildSchema(value any, title string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(value)
	schema.Title = title
	schema.Description = "Durations are integer nanoseconds. Environment variables (WALLEDIN_*) override file values."
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
