// Package runtime assembles the site from configuration: HTTP server,
// path guard, public pages, contact pipeline and the hidden admin surface.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tjfontaine/allmovieshub/internal/admin"
	"github.com/tjfontaine/allmovieshub/internal/api/openai"
	"github.com/tjfontaine/allmovieshub/internal/config"
	"github.com/tjfontaine/allmovieshub/internal/contact"
	"github.com/tjfontaine/allmovieshub/internal/guard"
	"github.com/tjfontaine/allmovieshub/internal/mail"
	"github.com/tjfontaine/allmovieshub/internal/metadata"
	"github.com/tjfontaine/allmovieshub/internal/server"
	"github.com/tjfontaine/allmovieshub/internal/site"
	"github.com/tjfontaine/allmovieshub/internal/stats"
	"github.com/tjfontaine/allmovieshub/internal/storage"
	"github.com/tjfontaine/allmovieshub/internal/storage/memory"
	"github.com/tjfontaine/allmovieshub/internal/storage/sqlite"
	"github.com/tjfontaine/allmovieshub/internal/telemetry"
)

// ContactPath is the contact form endpoint.
const ContactPath = "/api/contact"

// Site is a fully wired AllMoviesHub instance.
type Site struct {
	cfg        *config.Config
	configPath string
	live       *config.Live
	logger     *slog.Logger

	sender    mail.Sender
	store     storage.Store
	stats     StatsBackend
	generator admin.Generator

	limiter  *server.ClientLimiter
	pipeline *contact.Pipeline
	srv      *server.Server

	mailTransport string
	statsBackend  string

	// closers release resources the Site created itself.
	closers []func() error

	mu             sync.Mutex
	cancel         context.CancelFunc
	tracerShutdown func(context.Context) error
	started        bool
}

// New creates a Site. A configuration is required (WithConfig or
// WithConfigFile); every other collaborator is built from it unless an
// option supplies one.
func New(opts ...Option) (*Site, error) {
	s := &Site{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.cfg == nil {
		return nil, fmt.Errorf("config required (use WithConfig or WithConfigFile)")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.live = config.NewLive(s.cfg)

	if err := s.setupDefaults(); err != nil {
		s.close()
		return nil, err
	}
	if err := s.buildRouter(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Site) setupDefaults() error {
	cfg := s.cfg

	if s.sender == nil {
		if cfg.Mail.SMTP.Host != "" {
			sender, err := mail.NewSMTPSender(mail.SMTPConfig{
				Host:     cfg.Mail.SMTP.Host,
				Port:     cfg.Mail.SMTP.Port,
				Username: cfg.Mail.SMTP.Username,
				Password: cfg.Mail.SMTP.Password,
				TLS:      cfg.Mail.SMTP.TLS,
				Timeout:  cfg.Mail.SMTP.Timeout,
			})
			if err != nil {
				return fmt.Errorf("create smtp sender: %w", err)
			}
			s.sender = sender
			s.mailTransport = "smtp"
		} else {
			s.logger.Warn("mail.smtp.host not set, outbound mail will only be logged")
			s.sender = mail.NewLogSender(s.logger)
			s.mailTransport = "log"
		}
	} else {
		s.mailTransport = "custom"
	}

	if s.store == nil {
		store, err := OpenStore(cfg.Storage)
		if err != nil {
			return err
		}
		if store != nil {
			s.store = store
			s.closers = append(s.closers, store.Close)
		}
	}

	if s.stats == nil {
		if cfg.Stats.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Stats.Addr,
				Password: cfg.Stats.Password,
				DB:       cfg.Stats.DB,
			})
			s.closers = append(s.closers, rdb.Close)
			s.stats = stats.NewRedisRecorder(rdb,
				stats.WithPrefix(cfg.Stats.Prefix),
				stats.WithBucketTTL(cfg.Stats.BucketTTL),
			)
			s.statsBackend = "redis"
		} else {
			s.stats = stats.NewMemory()
			s.statsBackend = "memory"
		}
	} else {
		s.statsBackend = "custom"
	}

	if s.generator == nil && cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithTimeout(cfg.OpenAI.Timeout),
		)
		var cache storage.MetadataStore
		if s.store != nil {
			cache = s.store
		}
		s.generator = metadata.NewGenerator(client, cache, metadata.Config{Model: cfg.OpenAI.Model}, s.logger)
	}

	if cfg.RateLimit.Enabled {
		s.limiter = server.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	return nil
}

// OpenStore builds the store selected by cfg. It returns nil for "none".
func OpenStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLite.Path, err)
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func (s *Site) buildRouter() error {
	cfg := s.cfg

	s.srv = server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Tracing:        cfg.Telemetry.Enabled,
	}, s.logger)
	r := s.srv.Router

	// The guard rewrites the path, so it must run before routing.
	r.Use(guard.Middleware(s.live, s.logger))

	var pinger site.Pinger
	if s.store != nil {
		pinger = s.store
	}
	pages, err := site.New(site.Info{Name: cfg.Site.Name, URL: cfg.Site.URL}, pinger, s.logger)
	if err != nil {
		return fmt.Errorf("create site handler: %w", err)
	}
	pages.Routes(r)

	pipelineOpts := []contact.Option{
		contact.WithRecorder(s.stats),
		contact.WithLogger(s.logger),
	}
	if s.store != nil {
		pipelineOpts = append(pipelineOpts, contact.WithArchive(s.store))
	}
	s.pipeline = contact.NewPipeline(contact.Config{
		OperatorAddress: cfg.Mail.Operator,
		SenderAddress:   cfg.Mail.From,
		SiteURL:         cfg.Site.URL,
		SiteName:        cfg.Site.Name,
	}, s.sender, pipelineOpts...)

	keyFn := server.ClientKey(cfg.Server.TrustForwardedFor)
	r.With(server.RateLimitMiddleware(s.limiter, keyFn)).
		Post(ContactPath, contact.NewHandler(s.pipeline, keyFn).ServeHTTP)

	adminOpts := admin.Options{
		Stats:     s.stats,
		Generator: s.generator,
		Overview:  s.overview,
		Logger:    s.logger,
	}
	if s.store != nil {
		adminOpts.Store = s.store
	}
	r.Mount(guard.AdminPrefix, admin.NewServer(adminOpts))

	return nil
}

func (s *Site) overview() admin.Overview {
	cfg := s.live.Get()
	ov := admin.Overview{
		SiteName:      cfg.Site.Name,
		SiteURL:       cfg.Site.URL,
		StorageType:   s.cfg.Storage.Type,
		MailTransport: s.mailTransport,
		RateLimited:   s.limiter != nil,
		StatsBackend:  s.statsBackend,
		Tracing:       s.cfg.Telemetry.Enabled,
	}
	if s.generator != nil {
		ov.MetadataModel = s.cfg.OpenAI.Model
	}
	return ov
}

// Handler returns the root HTTP handler.
func (s *Site) Handler() http.Handler {
	return s.srv.Router
}

// Live returns the reloadable configuration.
func (s *Site) Live() *config.Live {
	return s.live
}

// Start begins serving. Background work (tracing, rate limiter cleanup and
// config watching) stops on Shutdown or when ctx is done.
func (s *Site) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("site already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(telemetry.Options{
			ServiceName: "allmovieshub",
			Writer:      os.Stdout,
			PrettyPrint: s.cfg.Telemetry.PrettyPrint,
		}, s.logger)
		if err != nil {
			cancel()
			return fmt.Errorf("init tracer: %w", err)
		}
		s.tracerShutdown = shutdown
	}

	if s.limiter != nil {
		s.limiter.StartJanitor(ctx, time.Minute)
	}

	if s.configPath != "" {
		if err := config.Watch(ctx, s.configPath, s.logger, s.reload); err != nil {
			s.logger.Warn("config watch disabled", slog.String("error", err.Error()))
		}
	}

	if err := s.srv.Start(); err != nil {
		cancel()
		return err
	}
	s.started = true

	s.logger.Info("site started",
		slog.Int("port", s.cfg.Server.Port),
		slog.String("mail", s.mailTransport),
		slog.String("stats", s.statsBackend),
		slog.Bool("metadata", s.generator != nil),
	)
	return nil
}

// reload publishes a new configuration. Only the admin secret path and the
// site overview follow reloads; other settings need a restart.
func (s *Site) reload(cfg *config.Config) {
	prev := s.live.Get()
	s.live.Store(cfg)

	if prev.Site.SecretPath != cfg.Site.SecretPath {
		s.logger.Info("admin path rotated")
	}
	if prev.Server.Port != cfg.Server.Port || prev.Storage != cfg.Storage || prev.Mail != cfg.Mail {
		s.logger.Warn("config change requires restart to take full effect")
	}
}

// Shutdown stops the server and releases owned resources.
func (s *Site) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if s.tracerShutdown != nil {
		if err := s.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
		s.tracerShutdown = nil
	}
	if err := s.close(); err != nil {
		errs = append(errs, err)
	}
	s.started = false
	return errors.Join(errs...)
}

func (s *Site) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
