package plugkit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// collectDefs returns a DefineFunc that appends into defs.
func collectDefs(defs *[]TypeDef) DefineFunc {
	return func(def TypeDef) error {
		*defs = append(*defs, def)
		return nil
	}
}

func TestManifestLoader_DefinesEveryType(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "unit.yaml", `version: 1
types:
  - attrs:
      name: alpha
      scheme: mem
    ops: [open]
  - attrs:
      name: beta
`)

	var defs []TypeDef
	if err := (manifestLoader{}).Load(context.Background(), path, collectDefs(&defs)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].Attrs["name"] != "alpha" || defs[1].Attrs["name"] != "beta" {
		t.Errorf("got %v, want alpha then beta in document order", defs)
	}
	if len(defs[0].Ops) != 1 || defs[0].Ops[0] != "open" {
		t.Errorf("got ops %v, want [open]", defs[0].Ops)
	}
}

func TestManifestLoader_JSONUnit(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "unit.json", `{"types": [{"attrs": {"name": "gamma"}, "ops": ["open"]}]}`)

	var defs []TypeDef
	if err := (manifestLoader{}).Load(context.Background(), path, collectDefs(&defs)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 || defs[0].Attrs["name"] != "gamma" {
		t.Errorf("got %v, want one gamma definition", defs)
	}
}

func TestManifestLoader_MalformedDefinesNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "unit.yaml", "types: [unclosed")

	var defs []TypeDef
	err := (manifestLoader{}).Load(context.Background(), path, collectDefs(&defs))
	if err == nil {
		t.Fatal("expected parse error")
	}
	// The document failed to parse, so no definition was announced.
	if len(defs) != 0 {
		t.Errorf("got %d definitions from a malformed unit, want 0", len(defs))
	}
}

func TestManifestLoader_DefineErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "unit.yaml", unitAlpha)

	sentinel := errors.New("registration refused")
	err := (manifestLoader{}).Load(context.Background(), path, func(TypeDef) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want the define error unchanged", err)
	}
}

func TestManifestLoader_SchemaValidation(t *testing.T) {
	dir := t.TempDir()
	// Decodes fine (unknown fields are ignored) but violates the schema.
	path := writeUnit(t, dir, "unit.yaml", "types: []\nextra: true")

	var defs []TypeDef
	if err := (manifestLoader{}).Load(context.Background(), path, collectDefs(&defs)); err != nil {
		t.Fatalf("Load without validation: %v", err)
	}
	if err := (manifestLoader{validate: true}).Load(context.Background(), path, collectDefs(&defs)); err == nil {
		t.Fatal("expected schema violation with validation enabled")
	}
}

func TestManifestLoader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	err := (manifestLoader{}).Load(context.Background(), path, func(TypeDef) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing unit file")
	}
}
