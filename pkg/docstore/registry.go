package docstore

import (
	"context"
	"sync"

	"github.com/Zereker/docstore/pkg/search"
)

// RegistryConfig holds the settings applied to indexes the registry
// creates.
type RegistryConfig struct {
	// Settings is an engine-native settings/mappings payload for newly
	// created indexes. It wins over SettingsFile.
	Settings map[string]any `toml:"settings"`

	// SettingsFile points to a JSON settings payload, loaded only when
	// Settings is empty.
	SettingsFile string `toml:"settings_file"`
}

// Registry hands out stores by index name, sharing one engine
// connection and running index creation once per name.
type Registry struct {
	engine search.Engine
	config RegistryConfig

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry over the engine.
func NewRegistry(engine search.Engine, cfg RegistryConfig) *Registry {
	return &Registry{
		engine: engine,
		config: cfg,
		stores: make(map[string]*Store),
	}
}

// Open returns the store for the named index, creating the index on
// first use. Stores are shared: repeated calls with one name return the
// same instance.
func (r *Registry) Open(ctx context.Context, name string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[name]; ok {
		return store, nil
	}

	store, err := New(ctx, r.engine, Config{
		Name:         name,
		Settings:     r.config.Settings,
		SettingsFile: r.config.SettingsFile,
	})
	if err != nil {
		return nil, err
	}

	r.stores[name] = store
	return store, nil
}

// Forget drops the named store from the registry so the next Open runs
// index creation again. The index itself is untouched.
func (r *Registry) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, name)
}
