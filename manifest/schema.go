package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// docSchema is compiled once at package load. The schema ships with the
// binary, so a compile failure is a programming error.
var docSchema = jsonschema.MustCompileString("manifest.json", schemaJSON)

// Validate checks data against the bundled manifest schema before any
// decoding into Go types. ext selects the format like in Parse. YAML input
// is normalised through a JSON round-trip because the validator only
// understands JSON-decoded values.
func Validate(data []byte, ext string) error {
	var doc any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var y any
		if err := yaml.Unmarshal(data, &y); err != nil {
			return fmt.Errorf("parsing YAML manifest: %w", err)
		}
		jsonData, err := json.Marshal(y)
		if err != nil {
			return fmt.Errorf("normalising YAML manifest: %w", err)
		}
		if err := json.Unmarshal(jsonData, &doc); err != nil {
			return fmt.Errorf("normalising YAML manifest: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing JSON manifest: %w", err)
		}
	default:
		return fmt.Errorf("unsupported manifest extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := docSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest schema violation: %w", err)
	}
	return nil
}
