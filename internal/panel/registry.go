package panel

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Desc{}
)

// Register adds a variant under its compatible string. Tables are checked
// with Validate and a compatible can only be registered once.
func Register(d *Desc) error {
	if err := d.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[d.Compatible]; dup {
		return fmt.Errorf("%w: %q already registered", ErrConfig, d.Compatible)
	}
	registry[d.Compatible] = d
	return nil
}

func mustRegister(d *Desc) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the variant matching compatible.
func Lookup(compatible string) (*Desc, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[compatible]
	if !ok {
		return nil, fmt.Errorf("%w: no panel matches %q", ErrConfig, compatible)
	}
	return d, nil
}

// Compatibles lists the registered match strings, sorted.
func Compatibles() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
