package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferro-labs/plugkit"
	"github.com/ferro-labs/plugkit/diskcache"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// seedCache runs one real discovery pass so the cache contains a genuine
// entry, and returns the plugin dir, cache root, and entry ID.
func seedCache(t *testing.T) (string, string, string) {
	t.Helper()
	unitsDir := t.TempDir()
	cacheRoot := t.TempDir()
	unit := filepath.Join(unitsDir, "alpha.yaml")
	if err := os.WriteFile(unit, []byte("types:\n  - attrs:\n      name: alpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := plugkit.New(plugkit.Config{KeyField: "name", Dir: unitsDir, CacheDir: cacheRoot})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}

	abs, err := filepath.Abs(unitsDir)
	if err != nil {
		t.Fatal(err)
	}
	return unitsDir, cacheRoot, diskcache.EntryID(abs, "name")
}

func TestListShowsEntries(t *testing.T) {
	_, cacheRoot, id := seedCache(t)

	out, err := runCLI(t, "--cache-dir", cacheRoot, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "ok") {
		t.Errorf("got %q, want a row for %s with status ok", out, id)
	}

	out, err = runCLI(t, "--cache-dir", t.TempDir(), "list")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if !strings.Contains(out, "No cache entries") {
		t.Errorf("got %q, want empty-cache message", out)
	}
}

func TestShowPrintsEntry(t *testing.T) {
	unitsDir, cacheRoot, id := seedCache(t)

	out, err := runCLI(t, "--cache-dir", cacheRoot, "show", id)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	abs, _ := filepath.Abs(unitsDir)
	if !strings.Contains(out, abs) || !strings.Contains(out, `"alpha"`) {
		t.Errorf("got %q, want entry JSON naming %s and key alpha", out, abs)
	}

	if _, err := runCLI(t, "--cache-dir", cacheRoot, "show", "deadbeefdeadbeef"); err == nil {
		t.Error("expected error for a missing entry")
	}
}

func TestVerifyDetectsStaleness(t *testing.T) {
	unitsDir, cacheRoot, id := seedCache(t)

	out, err := runCLI(t, "--cache-dir", cacheRoot, "verify", id)
	if err != nil {
		t.Fatalf("verify fresh entry: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("got %q, want valid report", out)
	}

	unit := filepath.Join(unitsDir, "alpha.yaml")
	future := time.Now().Add(3 * time.Second)
	if err := os.Chtimes(unit, future, future); err != nil {
		t.Fatal(err)
	}
	_, err = runCLI(t, "--cache-dir", cacheRoot, "verify", id)
	if err == nil || !strings.Contains(err.Error(), "stale") {
		t.Errorf("got %v, want stale error after touching a unit", err)
	}
}

func TestClearDeletesEntries(t *testing.T) {
	_, cacheRoot, id := seedCache(t)

	if _, err := runCLI(t, "--cache-dir", cacheRoot, "clear", id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	store := diskcache.New(cacheRoot)
	if _, err := os.Stat(store.Path(id)); !os.IsNotExist(err) {
		t.Errorf("got %v, want entry file deleted", err)
	}

	if _, err := runCLI(t, "--cache-dir", cacheRoot, "clear"); err == nil {
		t.Error("expected error when neither IDs nor --all given")
	}
}

func TestIDMatchesRegistry(t *testing.T) {
	unitsDir, _, id := seedCache(t)

	out, err := runCLI(t, "id", unitsDir, "name")
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	if got := strings.TrimSpace(out); got != id {
		t.Errorf("got %q, want %q", got, id)
	}
}
