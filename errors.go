package plugkit

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when discovery has genuinely completed and
// no type is registered under the requested key.
var ErrNotFound = errors.New("plugin type not found")

// ConfigError reports an invalid registry configuration. It is returned by
// New and is always fatal: a registry is never constructed around a config
// it cannot honour.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("registry config: %s: %s", e.Field, e.Reason)
}

// KeyConflictError reports a duplicate key registration under the
// ConflictReject policy. Existing and Incoming name the unit files that
// defined each side; an empty path means the type was defined by host code.
type KeyConflictError struct {
	Registry string
	Key      string
	Existing string
	Incoming string
}

func (e *KeyConflictError) Error() string {
	existing := e.Existing
	if existing == "" {
		existing = "host code"
	}
	incoming := e.Incoming
	if incoming == "" {
		incoming = "host code"
	}
	return fmt.Sprintf("registry %s: key %q already defined by %s, rejected redefinition by %s",
		e.Registry, e.Key, existing, incoming)
}

// UnitError wraps a failure to load a single plugin unit.
type UnitError struct {
	Path string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Path, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}
