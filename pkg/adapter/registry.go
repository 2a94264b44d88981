package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapextract/pkg/core"
)

// Factory builds an unconnected adapter.
type Factory func(*slog.Logger) Adapter

// ErrUnknownAdapter is matched by every *UnknownAdapterError.
var ErrUnknownAdapter = errors.New("unknown adapter type")

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register adds an adapter factory under a target type.
// Called by adapter implementations in their init() functions; registering
// a name twice replaces the factory.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// Get retrieves an adapter factory by target type, case-insensitively.
func Get(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// NewAdapter creates an unconnected adapter for the target type of cfg.
// A nil logger is replaced by the adapter with a discard logger.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered target types, sorted.
func ListAdapters() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsRegistered reports whether a target type has an adapter.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when no adapter serves a target type.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %s\nHint: Check target.type in leapextract.yaml",
		e.Type, strings.Join(e.Available, ", "))
}

// Is makes errors.Is(err, ErrUnknownAdapter) hold.
func (e *UnknownAdapterError) Is(target error) bool {
	return target == ErrUnknownAdapter
}
