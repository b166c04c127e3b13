// control/hotreload.go
// Re-reads configuration on demand and hands it to registered hooks.

package control

import "sync"

// Reloader runs reload hooks with a freshly loaded Config.
type Reloader struct {
	mu    sync.Mutex
	load  func() (*Config, error)
	hooks []func(*Config)
}

// NewReloader returns a reloader that obtains configuration from load.
func NewReloader(load func() (*Config, error)) *Reloader {
	return &Reloader{load: load}
}

// RegisterReloadHook adds a new component reload listener.
func (r *Reloader) RegisterReloadHook(fn func(*Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

// Reload loads the configuration and invokes every hook synchronously, in
// registration order. Hooks are skipped when loading fails.
func (r *Reloader) Reload() (*Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, fn := range r.hooks {
		fn(cfg)
	}
	return cfg, nil
}
