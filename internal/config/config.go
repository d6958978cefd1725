// Package config holds functional-option configuration for the storage
// layer and a small resource manager for deterministic cleanup.
package config

import "io"

// DatabaseConfig holds tunables for opening a database file.
type DatabaseConfig struct {
	PageCacheSize  int
	MaxConcurrency int
	ReadTimeoutMS  int
}

// Option configures a DatabaseConfig.
type Option func(*DatabaseConfig)

// WithPageCacheSize bounds the pager's LRU page cache.
func WithPageCacheSize(n int) Option {
	return func(c *DatabaseConfig) { c.PageCacheSize = n }
}

// WithMaxConcurrency bounds the worker pools that decode page-1 schema
// cells and that fetch rows by rowid for an index plan.
func WithMaxConcurrency(n int) Option {
	return func(c *DatabaseConfig) { c.MaxConcurrency = n }
}

// WithReadTimeoutMS sets the deadline the CLI gives the context of a whole
// command; page reads check that context before reading.
func WithReadTimeoutMS(ms int) Option {
	return func(c *DatabaseConfig) { c.ReadTimeoutMS = ms }
}

// Default returns sane defaults for the CLI's common path.
func Default() *DatabaseConfig {
	return &DatabaseConfig{
		PageCacheSize:  128,
		MaxConcurrency: 8,
		ReadTimeoutMS:  5000,
	}
}

// Apply folds a list of options onto Default.
func Apply(opts ...Option) *DatabaseConfig {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ResourceManager closes a LIFO stack of resources exactly once, even
// across error paths during construction.
type ResourceManager struct {
	resources []io.Closer
	cleaners  []func() error
}

// NewResourceManager creates an empty resource manager.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{}
}

// Add registers a closeable resource.
func (rm *ResourceManager) Add(resource io.Closer) {
	rm.resources = append(rm.resources, resource)
}

// AddCleaner registers a custom cleanup function.
func (rm *ResourceManager) AddCleaner(cleaner func() error) {
	rm.cleaners = append(rm.cleaners, cleaner)
}

// Close runs cleaners then closes resources, both LIFO, collecting the
// last error encountered.
func (rm *ResourceManager) Close() error {
	var lastErr error

	for i := len(rm.cleaners) - 1; i >= 0; i-- {
		if err := rm.cleaners[i](); err != nil {
			lastErr = err
		}
	}
	for i := len(rm.resources) - 1; i >= 0; i-- {
		if err := rm.resources[i].Close(); err != nil {
			lastErr = err
		}
	}
	rm.cleaners = nil
	rm.resources = nil

	return lastErr
}
