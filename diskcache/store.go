package diskcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

// DefaultRoot returns the per-user cache directory used when a Store is
// created without an explicit root.
func DefaultRoot() string {
	return filepath.Join(xdg.CacheHome, "plugkit")
}

// Store reads and writes cache entries under a single root directory.
// The directory is created lazily on first write.
type Store struct {
	root string
}

// New creates a Store rooted at dir. An empty dir selects DefaultRoot.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultRoot()
	}
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the file path an entry ID maps to.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, id+".json")
}

// Load reads the entry for id. A missing entry is not an error: Load
// returns (nil, nil). An unreadable or undecodable entry returns an error
// wrapping ErrCorrupt so callers can treat it as a miss.
func (s *Store) Load(id string) (*Entry, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache entry %s: %w", id, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", id, ErrCorrupt)
	}
	if entry.Version == "" {
		return nil, fmt.Errorf("cache entry %s has no version: %w", id, ErrCorrupt)
	}
	return &entry, nil
}

// Store writes the entry for id atomically: the JSON is written to a
// temporary file in the same directory and renamed over the target, so
// readers never observe a partial entry. A sibling .lock file serializes
// writers across processes.
func (s *Store) Store(id string, entry *Entry) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(s.Path(id) + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking cache entry %s: %w", id, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.root, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(id)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache entry %s: %w", id, err)
	}
	return nil
}

// Delete removes the entry for id. Deleting a missing entry is not an error.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting cache entry %s: %w", id, err)
	}
	_ = os.Remove(s.Path(id) + ".lock")
	return nil
}

// List returns the IDs of all entries in the store, in directory order.
// A missing root directory yields an empty list.
func (s *Store) List() ([]string, error) {
	names, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache directory: %w", err)
	}

	var ids []string
	for _, n := range names {
		if n.IsDir() {
			continue
		}
		if ext := filepath.Ext(n.Name()); ext == ".json" {
			ids = append(ids, n.Name()[:len(n.Name())-len(ext)])
		}
	}
	return ids, nil
}
