// Package diskcache persists discovery results between processes. Each
// registry owns one JSON entry file, named by a stable hash of its discovery
// directory and key field, holding the set of plugin units seen during the
// last successful scan together with the keys each unit contributed.
//
// An entry is only trusted while the directory it describes is unchanged:
// same format version, same units, same modification times. Anything else
// invalidates the whole entry and the registry rescans.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrCorrupt marks a cache entry that exists on disk but cannot be decoded.
// Callers should treat it as a cache miss and rebuild.
var ErrCorrupt = errors.New("cache entry corrupt")

// Module records one plugin unit as seen during a scan.
type Module struct {
	// Path of the unit file, as produced by walking the discovery directory.
	Path string `json:"path"`
	// MTime is the unit file's modification time in Unix nanoseconds.
	// Nanosecond resolution catches edits within the same second.
	MTime int64 `json:"mtime"`
	// Keys the unit contributed to the registry, in registration order.
	Keys []string `json:"keys,omitempty"`
}

// Entry is the persisted result of one discovery pass.
type Entry struct {
	Version   string    `json:"version"`
	Package   string    `json:"package"`
	Modules   []Module  `json:"modules"`
	Keys      []string  `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryID derives the stable cache file name for a registry from its
// discovery directory and key field. Two registries over the same directory
// with different key fields get separate entries.
func EntryID(dir, keyField string) string {
	sum := sha256.Sum256([]byte(dir + "\x00" + keyField))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate reports why the entry cannot serve the given live directory
// listing, or nil when it can. version is the current cache format tag;
// live is the current unit listing (paths and mtimes) of the discovery
// directory.
func (e *Entry) Validate(version string, live []Module) error {
	if e.Version != version {
		return fmt.Errorf("format version changed: recorded %q, current %q", e.Version, version)
	}

	recorded := make(map[string]int64, len(e.Modules))
	for _, m := range e.Modules {
		recorded[m.Path] = m.MTime
	}

	seen := make(map[string]bool, len(live))
	for _, m := range live {
		mtime, ok := recorded[m.Path]
		if !ok {
			return fmt.Errorf("new unit %s", m.Path)
		}
		if mtime != m.MTime {
			return fmt.Errorf("unit %s modified", m.Path)
		}
		seen[m.Path] = true
	}

	for _, m := range e.Modules {
		if !seen[m.Path] {
			return fmt.Errorf("unit %s removed", m.Path)
		}
	}
	return nil
}
