// Package plugkit implements automatic plugin type registration with lazy,
// disk-cached discovery.
//
// A Registry is the central lookup table for one plugin base type: create it
// with New, point it at a directory tree of plugin unit files, and the first
// read access (Get, Contains, Keys, Len) discovers every plugin type under
// that tree. Discovery results are cached on disk, so later processes skip
// the tree walk entirely and load individual units only when a type is
// actually requested. Host code with compiled-in types announces them with
// Define, typically from an init function.
//
// A type definition carries an attribute map and an operation list; the
// registry decides participation. A definition without the configured key
// attribute is an intermediate base, one missing a required operation is
// abstract, and neither is ever registered. Accepted definitions propagate
// into any configured secondary [Index] alongside the primary mapping.
package plugkit

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ferro-labs/plugkit/diskcache"
	"github.com/ferro-labs/plugkit/internal/logging"
	"github.com/ferro-labs/plugkit/internal/metrics"
	"github.com/ferro-labs/plugkit/internal/reentrant"
	"github.com/ferro-labs/plugkit/internal/version"
)

// Registry is a lazy lookup table from key to plugin Type. All read
// accessors trigger discovery on first use; once discovery is complete,
// reads are lock-free against an immutable snapshot. A Registry is safe for
// concurrent use.
type Registry struct {
	cfg     Config
	cacheID string
	cache   *diskcache.Store

	// guard serializes discovery and mutation. It is reentrant so that a
	// unit loaded during a pass can call back into this registry on the
	// same goroutine without deadlocking.
	guard reentrant.Mutex

	// Working state, touched only with the guard held.
	state    State
	types    map[string]*Type
	pending  map[string]string   // key → unit file recorded by the cache, not yet loaded
	loading  map[string]struct{} // unit files currently being loaded
	unitKeys map[string][]string // unit file → keys it currently owns

	snap    atomic.Pointer[snapshot]
	history *scanHistory
}

// snapshot is an immutable view of a registry's contents, republished after
// every guarded mutation. Readers of a registry whose discovery is complete
// touch nothing else.
type snapshot struct {
	state   State
	types   map[string]*Type
	pending map[string]string
	keys    []string
}

func (s *snapshot) has(key string) bool {
	if _, ok := s.types[key]; ok {
		return true
	}
	_, ok := s.pending[key]
	return ok
}

// New creates a Registry from cfg. The configuration is validated once
// here; a registry is never constructed around a config it cannot honour.
// No filesystem access happens until the first read accessor.
func New(cfg Config) (*Registry, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, &ConfigError{Field: "Dir", Reason: err.Error()}
	}
	cfg.Dir = dir

	r := &Registry{
		cfg:      cfg,
		cacheID:  diskcache.EntryID(dir, cfg.KeyField),
		cache:    diskcache.New(cfg.CacheDir),
		types:    make(map[string]*Type),
		pending:  make(map[string]string),
		loading:  make(map[string]struct{}),
		unitKeys: make(map[string][]string),
		history:  newScanHistory(16),
	}
	r.snap.Store(&snapshot{state: StateNotStarted})
	return r, nil
}

// Config returns a copy of the registry's configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Name returns the registry's label used in logs and metrics.
func (r *Registry) Name() string {
	return r.cfg.Name
}

// State reports discovery progress without triggering discovery.
func (r *Registry) State() State {
	return r.snap.Load().state
}

// CachePath returns the file this registry's discovery cache entry lives in.
func (r *Registry) CachePath() string {
	return r.cache.Path(r.cacheID)
}

// Get returns the type registered under key, running discovery first when
// it has not completed yet. A key restored from the cache whose unit has
// not been loaded loads that one unit on the spot. A miss after discovery
// wraps ErrNotFound.
func (r *Registry) Get(ctx context.Context, key string) (*Type, error) {
	snap, err := r.ensure(ctx)
	if err != nil {
		return nil, err
	}
	if t, ok := snap.types[key]; ok {
		return t, nil
	}
	if _, ok := snap.pending[key]; ok {
		return r.materialize(ctx, key)
	}
	return nil, r.notFound(key)
}

// Contains reports whether key is registered, running discovery first when
// it has not completed yet.
func (r *Registry) Contains(ctx context.Context, key string) (bool, error) {
	snap, err := r.ensure(ctx)
	if err != nil {
		return false, err
	}
	return snap.has(key), nil
}

// Keys returns the registered keys in sorted order as a restartable
// sequence: every range over it re-yields from the same snapshot.
func (r *Registry) Keys(ctx context.Context) (iter.Seq[string], error) {
	snap, err := r.ensure(ctx)
	if err != nil {
		return nil, err
	}
	keys := snap.keys
	return func(yield func(string) bool) {
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}, nil
}

// Len returns the number of registered keys, running discovery first when
// it has not completed yet.
func (r *Registry) Len(ctx context.Context) (int, error) {
	snap, err := r.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.keys), nil
}

// Define announces one type definition to the registry. This is the hook
// host code calls for compiled-in plugin types, typically from an init
// function; unit loaders go through the same path during discovery.
// Definitions without the key attribute or missing a required operation are
// skipped without error. A duplicate key from a different source follows
// the configured conflict policy.
func (r *Registry) Define(def TypeDef) error {
	r.guard.Lock()
	defer r.guard.Unlock()
	err := r.defineLocked(context.Background(), "", nil, def)
	r.publishLocked()
	return err
}

// ForceFull completes discovery and eagerly loads every recorded unit, so
// that afterwards every key's type object is materialised. On a registry
// already past discovery it drains whatever units the cache deferred.
func (r *Registry) ForceFull(ctx context.Context) error {
	r.guard.Lock()
	defer r.guard.Unlock()
	if r.state == StateNotStarted {
		return r.discoverLocked(ctx, true)
	}
	err := r.drainLocked(ctx, nil)
	r.publishLocked()
	return err
}

// Invalidate deletes the registry's cache entry and re-arms discovery: the
// next accessor runs a fresh pass against the live filesystem. Types
// registered so far stay visible; the rescan refreshes them.
func (r *Registry) Invalidate(ctx context.Context) error {
	r.guard.Lock()
	defer r.guard.Unlock()
	if !r.cfg.DisableCache {
		if err := r.cache.Delete(r.cacheID); err != nil {
			return err
		}
	}
	r.pending = make(map[string]string)
	r.state = StateNotStarted
	r.publishLocked()
	logging.FromContext(ctx).Info("registry invalidated", "registry", r.cfg.Name)
	return nil
}

// LastScan returns the report of the most recent discovery pass, or nil
// when none has run yet.
func (r *Registry) LastScan() *ScanReport {
	return r.history.last()
}

// History returns up to n recent pass reports, newest first. n <= 0 returns
// all retained reports.
func (r *Registry) History(n int) []*ScanReport {
	return r.history.recent(n)
}

// ensure makes sure discovery has run and returns the snapshot to read
// from. The fast path is one atomic load. When the calling goroutine is
// already inside this registry's own pass (a loader reading the registry
// that is loading it), ensure answers from the working state instead of
// recursing into the protocol.
func (r *Registry) ensure(ctx context.Context) (*snapshot, error) {
	if snap := r.snap.Load(); snap.state == StateComplete {
		return snap, nil
	}
	r.guard.Lock()
	defer r.guard.Unlock()
	switch r.state {
	case StateComplete:
		// Another goroutine finished the pass while we waited.
		return r.snap.Load(), nil
	case StateInProgress:
		// Only reachable nested under our own pass: a pass on another
		// goroutine would have blocked the Lock above.
		return r.workingViewLocked(), nil
	}
	if err := r.discoverLocked(ctx, false); err != nil {
		return nil, err
	}
	return r.snap.Load(), nil
}

// discoverLocked runs one discovery pass: list the live units, restore from
// a valid cache entry or load every unit, then publish Complete. The guard
// must be held and state must not be InProgress. eager additionally loads
// the units a cache hit would otherwise defer.
func (r *Registry) discoverLocked(ctx context.Context, eager bool) error {
	passID := logging.NewPassID()
	ctx = logging.WithPassID(ctx, passID)
	log := logging.FromContext(ctx).With("registry", r.cfg.Name)

	r.state = StateInProgress
	r.publishLocked()

	report := &ScanReport{
		Registry: r.cfg.Name,
		PassID:   passID,
		Source:   SourceScan,
		Started:  time.Now(),
	}
	fail := func(err error) error {
		r.state = StateNotStarted
		r.publishLocked()
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		report.Duration = time.Since(report.Started)
		r.history.add(report)
		metrics.ScansTotal.WithLabelValues(r.cfg.Name, string(OutcomeFailed)).Inc()
		log.Error("discovery failed", "error", err.Error())
		return err
	}

	live, err := ListUnits(r.cfg.Dir, r.cfg.UnitPatterns)
	if err != nil {
		return fail(fmt.Errorf("listing units under %s: %w", r.cfg.Dir, err))
	}
	report.Units = len(live)
	before := len(r.types) + len(r.pending)

	if entry := r.loadCacheEntryLocked(ctx, live); entry != nil {
		// Cache hit: the key set is trusted as-is, units load on demand.
		report.Source = SourceCache
		r.pending = make(map[string]string, len(entry.Keys))
		for _, m := range entry.Modules {
			for _, k := range m.Keys {
				if _, ok := r.types[k]; !ok {
					r.pending[k] = m.Path
				}
			}
		}
		if eager {
			if err := r.drainLocked(ctx, report); err != nil {
				return fail(err)
			}
		}
	} else {
		r.pending = make(map[string]string)
		for _, unit := range live {
			err := r.loadUnitLocked(ctx, unit.Path)
			if err == nil {
				continue
			}
			var conflict *KeyConflictError
			if errors.As(err, &conflict) {
				return fail(err)
			}
			// Partial-failure semantics: one bad unit never aborts the pass.
			report.Failures = append(report.Failures, UnitFailure{Path: unit.Path, Err: err.Error()})
			metrics.UnitLoadFailures.WithLabelValues(r.cfg.Name).Inc()
			log.Error("unit load failed", "unit", unit.Path, "error", err.Error())
		}
		if !r.cfg.DisableCache {
			if err := r.cache.Store(r.cacheID, r.buildEntryLocked(live)); err != nil {
				metrics.CacheEvents.WithLabelValues(r.cfg.Name, "write_error").Inc()
				return fail(fmt.Errorf("writing discovery cache: %w", err))
			}
		}
	}

	r.state = StateComplete
	r.publishLocked()

	report.Outcome = OutcomeCompleted
	report.Types = len(r.types) + len(r.pending) - before
	if report.Types < 0 {
		report.Types = 0
	}
	report.Duration = time.Since(report.Started)
	r.history.add(report)
	metrics.ScansTotal.WithLabelValues(r.cfg.Name, string(OutcomeCompleted)).Inc()
	metrics.ScanDuration.WithLabelValues(r.cfg.Name).Observe(report.Duration.Seconds())
	log.Info("discovery completed",
		"source", report.Source,
		"units", report.Units,
		"keys", len(r.types)+len(r.pending),
		"failures", len(report.Failures),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return nil
}

// loadCacheEntryLocked returns a cache entry valid for the live unit
// listing, or nil when the registry must scan. Cache problems never
// propagate: corrupt and stale entries log, count, and fall through to a
// fresh scan.
func (r *Registry) loadCacheEntryLocked(ctx context.Context, live []diskcache.Module) *diskcache.Entry {
	if r.cfg.DisableCache {
		return nil
	}
	log := logging.FromContext(ctx).With("registry", r.cfg.Name)

	entry, err := r.cache.Load(r.cacheID)
	if err != nil {
		metrics.CacheEvents.WithLabelValues(r.cfg.Name, "corrupt").Inc()
		log.Warn("discovery cache unreadable, rescanning", "error", err.Error())
		return nil
	}
	if entry == nil {
		metrics.CacheEvents.WithLabelValues(r.cfg.Name, "miss").Inc()
		return nil
	}
	if err := entry.Validate(version.CacheSchema, live); err != nil {
		metrics.CacheEvents.WithLabelValues(r.cfg.Name, "stale").Inc()
		log.Info("discovery cache stale, rescanning", "reason", err.Error())
		return nil
	}
	metrics.CacheEvents.WithLabelValues(r.cfg.Name, "hit").Inc()
	log.Debug("discovery cache hit", "units", len(entry.Modules), "keys", len(entry.Keys))
	return entry
}

// loadUnitLocked loads one unit through the configured loader, attributing
// every accepted definition to it. The guard must be held.
func (r *Registry) loadUnitLocked(ctx context.Context, unit string) error {
	r.loading[unit] = struct{}{}
	defer delete(r.loading, unit)

	announced := make(map[string]struct{})
	err := r.cfg.Loader.Load(ctx, unit, func(def TypeDef) error {
		return r.defineLocked(ctx, unit, announced, def)
	})
	if err != nil {
		return &UnitError{Path: unit, Err: err}
	}
	metrics.UnitsLoaded.WithLabelValues(r.cfg.Name).Inc()

	// Keys the cache attributed to this unit that did not materialise are
	// dropped rather than retried on every lookup.
	for k, owner := range r.pending {
		if owner == unit {
			delete(r.pending, k)
			logging.FromContext(ctx).Warn("cached key missing after unit load",
				"registry", r.cfg.Name, "key", k, "unit", unit)
		}
	}
	return nil
}

// defineLocked is the registration hook: every definition, whether from a
// loader or host code, lands here. module is the unit file that produced
// the definition, empty for host code. announced holds the keys the current
// loader invocation has registered so far, nil for host code. The guard
// must be held.
func (r *Registry) defineLocked(ctx context.Context, module string, announced map[string]struct{}, def TypeDef) error {
	log := logging.FromContext(ctx).With("registry", r.cfg.Name)

	key := def.Attrs[r.cfg.KeyField]
	if key == "" {
		// No key attribute: an intermediate base, not a participant.
		log.Debug("skipping keyless definition", "module", module, "key_field", r.cfg.KeyField)
		return nil
	}
	for _, op := range r.cfg.RequiredOps {
		if !slices.Contains(def.Ops, op) {
			// Abstract definitions are never inserted, key or no key.
			log.Debug("skipping abstract definition", "key", key, "module", module, "missing_op", op)
			return nil
		}
	}

	// A unit reloaded on a later pass refreshes keys it already owns without
	// conflict. Every other occupied key follows the policy, including a host
	// redefinition and a unit announcing the same key twice in one load.
	existing := r.types[key]
	_, duplicate := announced[key]
	if existing != nil && (existing.Module != module || module == "" || duplicate) {
		if r.cfg.OnConflict == ConflictReject {
			metrics.KeyConflicts.WithLabelValues(r.cfg.Name, string(ConflictReject)).Inc()
			return &KeyConflictError{
				Registry: r.cfg.Name,
				Key:      key,
				Existing: existing.Module,
				Incoming: module,
			}
		}
		metrics.KeyConflicts.WithLabelValues(r.cfg.Name, string(ConflictOverwrite)).Inc()
		log.Warn("overwriting registered key", "key", key, "existing", existing.Module, "incoming", module)
		if existing.Module != "" && existing.Module != module {
			r.unitKeys[existing.Module] = slices.DeleteFunc(r.unitKeys[existing.Module], func(k string) bool {
				return k == key
			})
		}
	}

	r.types[key] = newType(key, module, def)
	delete(r.pending, key)
	if module != "" && (existing == nil || existing.Module != module) {
		r.unitKeys[module] = append(r.unitKeys[module], key)
	}
	if announced != nil {
		announced[key] = struct{}{}
	}
	metrics.TypesRegistered.WithLabelValues(r.cfg.Name).Inc()

	for _, sec := range r.cfg.Secondaries {
		secKey := key
		if sec.KeyAttr != "" {
			v := def.Attrs[sec.KeyAttr]
			if v == "" {
				continue
			}
			secKey = v
		}
		value, ok := def.Attrs[sec.SourceAttr]
		if !ok {
			continue
		}
		sec.Index.set(secKey, value)
	}
	return nil
}

// materialize loads the unit the discovery cache recorded for key and
// returns the resulting type.
func (r *Registry) materialize(ctx context.Context, key string) (*Type, error) {
	r.guard.Lock()
	defer r.guard.Unlock()
	t, err := r.materializeLocked(ctx, key)
	r.publishLocked()
	return t, err
}

func (r *Registry) materializeLocked(ctx context.Context, key string) (*Type, error) {
	if t, ok := r.types[key]; ok {
		// Someone loaded the owning unit while we waited for the guard.
		return t, nil
	}
	unit, ok := r.pending[key]
	if !ok {
		return nil, r.notFound(key)
	}
	if _, busy := r.loading[unit]; busy {
		// The owning unit is mid-load on this goroutine; its definitions
		// are not visible yet.
		return nil, r.notFound(key)
	}

	if err := r.loadUnitLocked(ctx, unit); err != nil {
		metrics.UnitLoadFailures.WithLabelValues(r.cfg.Name).Inc()
		logging.FromContext(ctx).Error("unit load failed",
			"registry", r.cfg.Name, "unit", unit, "error", err.Error())
		return nil, err
	}
	t, ok := r.types[key]
	if !ok {
		return nil, r.notFound(key)
	}
	return t, nil
}

// drainLocked loads every unit that still has pending keys, in path order.
// Load failures follow scan semantics: recorded and skipped, with the
// unit's keys left pending so a direct Get surfaces the error. Strict-mode
// key conflicts propagate. The guard must be held.
func (r *Registry) drainLocked(ctx context.Context, report *ScanReport) error {
	seen := make(map[string]bool)
	var units []string
	for _, unit := range r.pending {
		if seen[unit] {
			continue
		}
		if _, busy := r.loading[unit]; busy {
			continue
		}
		seen[unit] = true
		units = append(units, unit)
	}
	sort.Strings(units)

	log := logging.FromContext(ctx).With("registry", r.cfg.Name)
	for _, unit := range units {
		if !r.ownsPendingLocked(unit) {
			continue // already loaded through a nested access
		}
		err := r.loadUnitLocked(ctx, unit)
		if err == nil {
			continue
		}
		var conflict *KeyConflictError
		if errors.As(err, &conflict) {
			return err
		}
		metrics.UnitLoadFailures.WithLabelValues(r.cfg.Name).Inc()
		log.Error("unit load failed", "unit", unit, "error", err.Error())
		if report != nil {
			report.Failures = append(report.Failures, UnitFailure{Path: unit, Err: err.Error()})
		}
	}
	return nil
}

func (r *Registry) ownsPendingLocked(unit string) bool {
	for _, owner := range r.pending {
		if owner == unit {
			return true
		}
	}
	return false
}

// buildEntryLocked assembles the cache entry for a finished scan over the
// live unit listing, attributing to each unit the keys it currently owns.
func (r *Registry) buildEntryLocked(live []diskcache.Module) *diskcache.Entry {
	var all []string
	for i := range live {
		keys := slices.Clone(r.unitKeys[live[i].Path])
		live[i].Keys = keys
		all = append(all, keys...)
	}
	sort.Strings(all)
	return &diskcache.Entry{
		Version:   version.CacheSchema,
		Package:   r.cfg.Dir,
		Modules:   live,
		Keys:      all,
		CreatedAt: time.Now().UTC(),
	}
}

// publishLocked atomically replaces the read snapshot with a copy of the
// working state. The guard must be held.
func (r *Registry) publishLocked() {
	r.snap.Store(&snapshot{
		state:   r.state,
		types:   maps.Clone(r.types),
		pending: maps.Clone(r.pending),
		keys:    sortedKeys(r.types, r.pending),
	})
}

// workingViewLocked snapshots the in-flight contents for accessors nested
// under a pass. Units currently being loaded are excluded from pending so
// a self-referential unit cannot re-trigger its own load.
func (r *Registry) workingViewLocked() *snapshot {
	pending := make(map[string]string, len(r.pending))
	for k, unit := range r.pending {
		if _, busy := r.loading[unit]; !busy {
			pending[k] = unit
		}
	}
	return &snapshot{
		state:   r.state,
		types:   maps.Clone(r.types),
		pending: pending,
		keys:    sortedKeys(r.types, pending),
	}
}

func sortedKeys(types map[string]*Type, pending map[string]string) []string {
	keys := make([]string, 0, len(types)+len(pending))
	for k := range types {
		keys = append(keys, k)
	}
	for k := range pending {
		if _, ok := types[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) notFound(key string) error {
	return fmt.Errorf("registry %s: key %q: %w", r.cfg.Name, key, ErrNotFound)
}
