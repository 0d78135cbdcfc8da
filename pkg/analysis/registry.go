package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory constructs a Backend. A nil logger means discard.
type Factory func(*slog.Logger) Backend

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a backend factory to the registry.
// Called by backend implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a backend factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewBackend creates a backend instance by registered name.
func NewBackend(name string, logger *slog.Logger) (Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("backend not specified")
	}

	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownBackendError{
			Name:      name,
			Available: ListBackends(),
		}
	}
	return factory(logger), nil
}

// ListBackends returns all registered backend names (sorted).
func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownBackendError is returned when an unknown backend is requested.
type UnknownBackendError struct {
	Name      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend %q\nAvailable backends: %v\nHint: Check the backend key in leapsense.yaml", e.Name, e.Available)
}
