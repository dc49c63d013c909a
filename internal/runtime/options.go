package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/allmovieshub/internal/admin"
	"github.com/tjfontaine/allmovieshub/internal/config"
	"github.com/tjfontaine/allmovieshub/internal/mail"
	"github.com/tjfontaine/allmovieshub/internal/stats"
	"github.com/tjfontaine/allmovieshub/internal/storage"
)

// Option is a functional option for configuring a Site.
type Option func(*Site) error

// WithConfig uses an already loaded configuration. It is not watched.
func WithConfig(cfg *config.Config) Option {
	return func(s *Site) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		s.cfg = cfg
		return nil
	}
}

// WithConfigFile loads path and watches it for changes once the site starts.
func WithConfigFile(path string) Option {
	return func(s *Site) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		s.cfg = cfg
		s.configPath = path
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) error {
		s.logger = logger
		return nil
	}
}

// WithSender replaces the configured mail transport.
func WithSender(sender mail.Sender) Option {
	return func(s *Site) error {
		s.sender = sender
		return nil
	}
}

// WithStorage replaces the configured store. The caller keeps ownership and
// must close it.
func WithStorage(store storage.Store) Option {
	return func(s *Site) error {
		s.store = store
		return nil
	}
}

// WithStats replaces the configured submission counters.
func WithStats(rec StatsBackend) Option {
	return func(s *Site) error {
		s.stats = rec
		return nil
	}
}

// WithGenerator replaces the OpenAI-backed metadata generator.
func WithGenerator(gen admin.Generator) Option {
	return func(s *Site) error {
		s.generator = gen
		return nil
	}
}

// StatsBackend both records and reports submission counters.
type StatsBackend interface {
	stats.Recorder
	stats.Reader
}
