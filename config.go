package plugkit

import (
	"fmt"
	"path/filepath"
)

// ConflictPolicy decides what happens when a definition reuses a key that
// is already registered.
type ConflictPolicy string

// ConflictPolicy constants define the supported duplicate-key behaviors.
const (
	// ConflictOverwrite replaces the existing type and logs a warning.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictReject refuses the new definition with a KeyConflictError.
	ConflictReject ConflictPolicy = "reject"
)

// SecondaryDef routes registered keys into an additional Index. Secondary
// indexes are filled at definition time, alongside the primary insert.
type SecondaryDef struct {
	// Index receives the secondary entries. Required.
	Index *Index
	// KeyAttr names the attribute used as the secondary key. Empty reuses
	// the primary key.
	KeyAttr string
	// SourceAttr names the attribute copied as the secondary value.
	// Definitions lacking it are skipped for this index. Required.
	SourceAttr string
}

// Config describes one registry. It is supplied in code at construction;
// there is no file format for it.
type Config struct {
	// Name labels the registry in logs and metrics. Defaults to the base
	// name of Dir.
	Name string
	// KeyField names the attribute whose value becomes the registration
	// key. Definitions without it are treated as intermediate bases and
	// skipped. Required.
	KeyField string
	// Dir is the root of the discovery tree. Required.
	Dir string
	// UnitPatterns are file base-name patterns selecting plugin units
	// during a scan. Defaults to "*.yaml", "*.yml", "*.json".
	UnitPatterns []string
	// RequiredOps lists operations a definition must implement to be
	// registered. Definitions missing any of them are abstract and
	// skipped, key or no key.
	RequiredOps []string
	// Secondaries are filled in order for every accepted definition.
	Secondaries []SecondaryDef
	// OnConflict selects the duplicate-key policy. Defaults to
	// ConflictOverwrite.
	OnConflict ConflictPolicy
	// Loader loads unit files. Defaults to the built-in manifest loader.
	Loader Loader
	// CacheDir overrides the per-user discovery cache directory.
	CacheDir string
	// DisableCache turns the disk cache off: every process rescans.
	DisableCache bool
	// ValidateUnits checks each manifest against the bundled JSON schema
	// before decoding. Only meaningful with the built-in loader.
	ValidateUnits bool
}

// defaultUnitPatterns select manifest files during a scan.
var defaultUnitPatterns = []string{"*.yaml", "*.yml", "*.json"}

func (c *Config) validate() error {
	if c.KeyField == "" {
		return &ConfigError{Field: "KeyField", Reason: "required"}
	}
	if c.Dir == "" {
		return &ConfigError{Field: "Dir", Reason: "required"}
	}
	switch c.OnConflict {
	case "", ConflictOverwrite, ConflictReject:
	default:
		return &ConfigError{Field: "OnConflict", Reason: "unknown policy " + string(c.OnConflict)}
	}
	for i, sec := range c.Secondaries {
		if sec.Index == nil {
			return &ConfigError{Field: "Secondaries", Reason: fmt.Sprintf("index is required (entry %d)", i)}
		}
		if sec.SourceAttr == "" {
			return &ConfigError{Field: "Secondaries", Reason: fmt.Sprintf("source attribute is required (entry %d)", i)}
		}
	}
	for _, p := range c.UnitPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return &ConfigError{Field: "UnitPatterns", Reason: "bad pattern " + p}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = filepath.Base(c.Dir)
	}
	if len(c.UnitPatterns) == 0 {
		c.UnitPatterns = defaultUnitPatterns
	}
	if c.OnConflict == "" {
		c.OnConflict = ConflictOverwrite
	}
	if c.Loader == nil {
		c.Loader = manifestLoader{validate: c.ValidateUnits}
	}
}
