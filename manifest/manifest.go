// Package manifest reads plugin unit files. A unit is a YAML or JSON
// document declaring one or more plugin type definitions, each an attribute
// map plus the list of operations the type implements:
//
//	version: 1
//	types:
//	  - attrs:
//	      name: s3
//	      scheme: s3
//	    ops: [open, stat]
//
// Parsing is strict about shape only; which definitions are abstract or
// keyless is the registry's call, not the manifest's.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SupportedVersion is the newest manifest format version this package reads.
const SupportedVersion = 1

// Definition is one declared plugin type.
type Definition struct {
	Attrs map[string]string `json:"attrs" yaml:"attrs"`
	Ops   []string          `json:"ops,omitempty" yaml:"ops,omitempty"`
}

// Document is a parsed unit file.
type Document struct {
	Version int          `json:"version,omitempty" yaml:"version,omitempty"`
	Types   []Definition `json:"types" yaml:"types"`
}

// Parse decodes a manifest document from data. ext selects the format:
// ".yaml" and ".yml" decode as YAML, ".json" as JSON.
func Parse(data []byte, ext string) (*Document, error) {
	var doc Document
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML manifest: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q: use .json, .yaml, or .yml", ext)
	}

	if doc.Version > SupportedVersion {
		return nil, fmt.Errorf("manifest version %d not supported (max %d)", doc.Version, SupportedVersion)
	}
	return &doc, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}
