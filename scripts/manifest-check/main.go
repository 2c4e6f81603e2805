// manifest-check parses every plugin manifest under a directory tree and
// reports units that would fail to load: malformed documents, schema
// violations, and (optionally) duplicate registration keys across units.
// The process exits with code 1 if any problems are found so CI can fail
// a plugin package before a registry ever scans it at runtime.
//
// Usage:
//
// go run ./scripts/manifest-check -dir ./plugins
// go run ./scripts/manifest-check -dir ./plugins -key-field name
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ferro-labs/plugkit"
	"github.com/ferro-labs/plugkit/internal/version"
	"github.com/ferro-labs/plugkit/manifest"
)

func main() {
	dir := flag.String("dir", "", "plugin directory to check (default: ./plugins)")
	patterns := flag.String("patterns", "*.yaml,*.yml,*.json", "comma-separated unit file patterns")
	keyField := flag.String("key-field", "", "also report duplicate values of this key attribute across units")
	concurrency := flag.Int("concurrency", 8, "number of units checked in parallel")
	flag.Parse()

	if *dir == "" {
		cwd, _ := os.Getwd()
		*dir = cwd + "/plugins"
	}

	units, err := plugkit.ListUnits(*dir, strings.Split(*patterns, ","))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot list units: %v\n", err)
		os.Exit(2)
	}
	if len(units) == 0 {
		fmt.Fprintf(os.Stderr, "error: no units under %s\n", *dir)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "manifest-check %s: checking %d units (concurrency=%d)...\n",
		version.Short(), len(units), *concurrency)

	type result struct {
		path string
		keys []string
		err  error
	}

	sem := make(chan struct{}, *concurrency)
	results := make(chan result, len(units))
	var wg sync.WaitGroup

	for _, u := range units {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := os.ReadFile(path)
			if err != nil {
				results <- result{path: path, err: err}
				return
			}
			ext := filepath.Ext(path)
			if err := manifest.Validate(data, ext); err != nil {
				results <- result{path: path, err: err}
				return
			}
			doc, err := manifest.Parse(data, ext)
			if err != nil {
				results <- result{path: path, err: err}
				return
			}

			var keys []string
			if *keyField != "" {
				for _, d := range doc.Types {
					if k := d.Attrs[*keyField]; k != "" {
						keys = append(keys, k)
					}
				}
			}
			results <- result{path: path, keys: keys}
		}(u.Path)
	}

	wg.Wait()
	close(results)

	owners := map[string][]string{}
	var failures []string
	ok := 0
	for r := range results {
		if r.err != nil {
			failures = append(failures, fmt.Sprintf("  INVALID  %s\n           %v", r.path, r.err))
			continue
		}
		ok++
		for _, k := range r.keys {
			owners[k] = append(owners[k], r.path)
		}
	}

	// A key defined by more than one unit would silently overwrite (or, in
	// strict registries, abort the whole scan) at runtime.
	for key, paths := range owners {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		failures = append(failures, fmt.Sprintf("  DUP KEY  %q defined by %s", key, strings.Join(paths, ", ")))
	}

	sort.Strings(failures)
	fmt.Fprintf(os.Stderr, "%d OK, %d failed\n\n", ok, len(failures))

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "Problems:")
		for _, f := range failures {
			fmt.Fprintln(os.Stderr, f)
		}
		os.Exit(1)
	}
}
