// Package state persists audit history: runs, the per-dependency and
// per-page checks inside them, fetched artifact facts, lint findings,
// and the cached symbol surface of scanned Python modules.
//
// Two backends implement core.Store: SQLite (the default, one file per
// checkout) and Postgres (shared state for CI fleets). Backends
// register themselves in an init() and are selected by name, so
// importing a backend package is enough to make it available.
package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/starpoint-labs/starpin/pkg/core"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() core.Store)
)

// Register adds a store factory to the registry.
// Called by backend implementations in their init() functions.
func Register(name string, factory func() core.Store) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates an unopened store for the named backend. An empty name
// selects SQLite.
func New(backend string) (core.Store, error) {
	if backend == "" {
		backend = "sqlite"
	}

	registryMu.RLock()
	factory, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownBackendError{
			Backend:   backend,
			Available: Backends(),
		}
	}
	return factory(), nil
}

// Backends returns all registered backend names (sorted).
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a store for cfg, opens it, and brings the schema up to
// date. The caller owns the returned store and must Close it.
func Open(cfg core.StateConfig) (core.Store, error) {
	st, err := New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if err := st.Open(DSN(cfg)); err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return st, nil
}

// DSN builds the connection string for cfg. An explicit state.dsn wins;
// otherwise SQLite uses the file path and Postgres assembles a
// key=value string from the individual fields.
func DSN(cfg core.StateConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Backend == "postgres" {
		return buildPostgresDSN(cfg)
	}
	return cfg.Path
}

// UnknownBackendError is returned when an unknown state backend is requested.
type UnknownBackendError struct {
	Backend   string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown state backend %q\nAvailable backends: %v\nHint: Check state.backend in starpin.yaml", e.Backend, e.Available)
}
