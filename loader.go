package plugkit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferro-labs/plugkit/manifest"
)

// manifestLoader is the built-in Loader. It parses a unit file as a plugin
// manifest and announces each declared type.
type manifestLoader struct {
	validate bool
}

func (l manifestLoader) Load(_ context.Context, path string, define DefineFunc) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("reading unit: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))

	if l.validate {
		if err := manifest.Validate(data, ext); err != nil {
			return err
		}
	}
	doc, err := manifest.Parse(data, ext)
	if err != nil {
		return err
	}

	// The whole document is parsed before any definition is announced, so
	// a malformed unit registers nothing.
	for _, d := range doc.Types {
		if err := define(TypeDef{Attrs: d.Attrs, Ops: d.Ops}); err != nil {
			return err
		}
	}
	return nil
}
