package db

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// providers holds every engine implementation that registered itself
var providers = xsync.NewMapOf[Implementation, Provider]()

// Register makes a provider available by its name.
// Engines call this from their init function; registering a name twice panics.
func Register(p Provider) {
	if _, loaded := providers.LoadOrStore(p.Name(), p); loaded {
		panic(fmt.Sprintf("db: provider %q registered twice", p.Name()))
	}
}

// GetProvider returns the provider registered under name.
func GetProvider(name Implementation) (Provider, error) {
	p, ok := providers.Load(name)
	if !ok {
		return nil, fmt.Errorf("db: unknown engine %q (available: %v)", name, Implementations())
	}
	return p, nil
}

// Implementations lists the registered implementations in sorted order
func Implementations() []Implementation {
	var names []Implementation
	providers.Range(func(name Implementation, _ Provider) bool {
		names = append(names, name)
		return true
	})
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
