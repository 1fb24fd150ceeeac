package params

import (
	"fmt"
	"sort"
	"sync"
)

// The builtin registry maps literature parameter set names to their values.
// Resolution copies values so callers never alias registry state.
var (
	registryMu sync.RWMutex
	registry   = map[string]map[string]float64{
		"Chen2020": chen2020,
	}
)

// Register adds a named parameter set to the builtin registry. Registering
// an already-registered name fails.
func Register(name string, values map[string]float64) error {
	if name == "" {
		return fmt.Errorf("params: registry requires a set name")
	}
	if len(values) == 0 {
		return fmt.Errorf("params: registry set %q requires values", name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("params: parameter set %q already registered", name)
	}
	registry[name] = copyValues(values)
	return nil
}

// Names returns the sorted names of all registered parameter sets.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve returns a copy of the named builtin set's values. Resolution is
// exact-match; unregistered names fail with ErrUnknownSet.
func Resolve(name string) (map[string]float64, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	values, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownSet, name, registeredNamesLocked())
	}
	return copyValues(values), nil
}

func registeredNamesLocked() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
