package config

import (
	"slices"
	"sync"
)

var (
	hooksMu sync.Mutex
	hooks   []func(*Config)
)

// OnReload registers fn to run with the new configuration after every
// successful Reload.
func OnReload(fn func(*Config)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks = append(hooks, fn)
}

func notifyReload(cfg *Config) {
	hooksMu.Lock()
	fns := slices.Clone(hooks)
	hooksMu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}

func resetReloadHooks() {
	hooksMu.Lock()
	hooks = nil
	hooksMu.Unlock()
}
