package plugkit

import (
	"context"
	"maps"
	"slices"
)

// TypeDef is one plugin type definition as announced by a loader or by host
// code. It carries the type's attribute map and the operations the type
// implements; the registry decides whether the definition participates.
type TypeDef struct {
	Attrs map[string]string
	Ops   []string
}

// DefineFunc announces one type definition to the registry that initiated
// the load. Loaders must return its error unchanged so that conflict
// handling can abort a pass.
type DefineFunc func(TypeDef) error

// Loader loads one plugin unit and announces every type definition it
// contains through define. Load is called once per unit during a discovery
// pass, and again for individual units when a cache hit defers loading.
// Implementations are free to interpret path however suits their unit
// format; the built-in loader treats it as a manifest file.
type Loader interface {
	Load(ctx context.Context, path string, define DefineFunc) error
}

// Type is a registered plugin type.
type Type struct {
	// Key the type is registered under.
	Key string
	// Module is the unit file that defined the type, empty for types
	// defined by host code.
	Module string
	// Attrs is the definition's attribute map.
	Attrs map[string]string
	// Ops lists the operations the type implements.
	Ops []string
}

// Implements reports whether the type declares the given operation.
func (t *Type) Implements(op string) bool {
	return slices.Contains(t.Ops, op)
}

// Attr returns the named attribute and whether it is present.
func (t *Type) Attr(name string) (string, bool) {
	v, ok := t.Attrs[name]
	return v, ok
}

func newType(key, module string, def TypeDef) *Type {
	return &Type{
		Key:    key,
		Module: module,
		Attrs:  maps.Clone(def.Attrs),
		Ops:    slices.Clone(def.Ops),
	}
}

// State tracks how far a registry's discovery has progressed.
type State int

const (
	// StateNotStarted means no accessor has triggered discovery yet.
	StateNotStarted State = iota
	// StateInProgress means a discovery pass is running.
	StateInProgress
	// StateComplete means the key set is authoritative; misses are genuine.
	StateComplete
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}
