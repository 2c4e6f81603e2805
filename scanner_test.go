package plugkit

import (
	"path/filepath"
	"testing"
)

func TestListUnits(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "b.yaml", "types: []")
	writeUnit(t, dir, "a.yml", "types: []")
	writeUnit(t, dir, "nested/deep/c.json", `{"types": []}`)
	writeUnit(t, dir, "README.md", "not a unit")
	writeUnit(t, dir, "notes.txt", "not a unit")

	units, err := ListUnits(dir, defaultUnitPatterns)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "deep", "c.json"),
	}
	if len(units) != len(want) {
		t.Fatalf("got %d units, want %d: %+v", len(units), len(want), units)
	}
	for i, u := range units {
		if u.Path != want[i] {
			t.Errorf("unit %d: got %q, want %q (lexical order)", i, u.Path, want[i])
		}
		if u.MTime == 0 {
			t.Errorf("unit %d: got zero mtime", i)
		}
		if len(u.Keys) != 0 {
			t.Errorf("unit %d: got keys %v from a bare listing, want none", i, u.Keys)
		}
	}
}

func TestListUnits_CustomPatterns(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "keep.plugin.yaml", "types: []")
	writeUnit(t, dir, "skip.yaml", "types: []")

	units, err := ListUnits(dir, []string{"*.plugin.yaml"})
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(units) != 1 || filepath.Base(units[0].Path) != "keep.plugin.yaml" {
		t.Errorf("got %+v, want just keep.plugin.yaml", units)
	}
}

func TestListUnits_MissingRoot(t *testing.T) {
	units, err := ListUnits(filepath.Join(t.TempDir(), "absent"), defaultUnitPatterns)
	if err != nil {
		t.Fatalf("got %v, want nil error for missing root", err)
	}
	if len(units) != 0 {
		t.Errorf("got %d units, want 0", len(units))
	}
}
