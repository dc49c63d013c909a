package config

import (
	"strings"
	"sync/atomic"
)

// Live holds the current configuration and is safe for concurrent use.
// Readers always see a complete Config; Store swaps it atomically.
type Live struct {
	v atomic.Pointer[Config]
}

// NewLive creates a holder seeded with cfg.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.v.Store(cfg)
	return l
}

// Get returns the current configuration.
func (l *Live) Get() *Config { return l.v.Load() }

// Store replaces the current configuration.
func (l *Live) Store(cfg *Config) { l.v.Store(cfg) }

// SecretSegment returns the configured admin path segment. It satisfies
// guard.SecretSource.
func (l *Live) SecretSegment() string {
	cfg := l.v.Load()
	if cfg == nil {
		return ""
	}
	return strings.Trim(cfg.Site.SecretPath, "/")
}
