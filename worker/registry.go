package worker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Bind-Forward/port/domain/entities"
)

// registryConfig holds configuration for the loader registry.
type registryConfig struct {
	strictMode bool
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a loader registry.
type RegistryOption func(*registryConfig)

// WithStrictMode makes duplicate registrations fail. Default is true; the
// runtime turns it off so WithLoader can replace a built-in loader.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// loaderRegistry maps model kinds to the loader that prepares them.
type loaderRegistry struct {
	loaders sync.Map // map[entities.ModelKind]Loader
	config  registryConfig
}

func newLoaderRegistry(opts ...RegistryOption) *loaderRegistry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &loaderRegistry{config: cfg}
}

// Register adds the loader for kind.
func (r *loaderRegistry) Register(kind entities.ModelKind, l Loader) error {
	if kind == "" {
		return fmt.Errorf("model kind cannot be empty")
	}
	if l == nil {
		return fmt.Errorf("loader for %q is nil", kind)
	}
	if r.config.strictMode {
		if _, exists := r.loaders.Load(kind); exists {
			return fmt.Errorf("loader for %q already registered", kind)
		}
	}
	r.loaders.Store(kind, l)
	return nil
}

// Get returns the loader for kind.
func (r *loaderRegistry) Get(kind entities.ModelKind) (Loader, bool) {
	v, ok := r.loaders.Load(kind)
	if !ok {
		return nil, false
	}
	return v.(Loader), true
}

// Kinds lists the registered kinds, sorted.
func (r *loaderRegistry) Kinds() []string {
	var kinds []string
	r.loaders.Range(func(k, _ any) bool {
		kinds = append(kinds, string(k.(entities.ModelKind)))
		return true
	})
	sort.Strings(kinds)
	return kinds
}
