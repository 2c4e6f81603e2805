package plugkit

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ferro-labs/plugkit/diskcache"
)

// ListUnits walks the discovery tree rooted at dir and returns every file
// whose base name matches one of patterns, with its current modification
// time. The listing is in lexical path order, so unit loads happen in a
// deterministic order. A missing root yields an empty listing; unreadable
// subtrees are skipped. This is the same enumeration a discovery pass and
// cache validation use, exposed for tooling.
func ListUnits(dir string, patterns []string) ([]diskcache.Module, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var units []diskcache.Module
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !matchesAny(d.Name(), patterns) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		units = append(units, diskcache.Module{
			Path:  path,
			MTime: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
