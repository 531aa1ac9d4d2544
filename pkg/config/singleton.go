package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current holds the process-wide configuration.
	current atomic.Pointer[Config]

	// initOnce ensures Initialize loads the file only once.
	initOnce sync.Once

	// reloadMu serializes reloads so two watchers cannot interleave a
	// load-and-swap.
	reloadMu sync.Mutex
)

// Initialize loads configuration from path with environment variable
// overrides and installs it as the process configuration. Subsequent calls
// are ignored.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		current.Store(cfg)
	})

	return initErr
}

// GetConfig returns the process configuration, or nil before Initialize
// succeeded. The returned value must be treated as read-only; reloads swap in
// a new instance instead of mutating it.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process configuration. Intended for tests and for
// commands that build a Config without a file.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig reloads the configuration from path and swaps it in only if
// loading and validation succeed. It returns the configuration that was
// active before the reload.
func ReloadConfig(path string) (*Config, error) {
	reloadMu.Lock()
	defer reloadMu.Unlock()

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	return current.Swap(cfg), nil
}

// MustGetConfig returns the process configuration and panics when it has not
// been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
