// Package config loads site configuration from an optional YAML file and
// AMH_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: AMH_SERVER__PORT sets server.port.
const EnvPrefix = "AMH_"

// DefaultFile is read when Load is called without a path and it exists.
const DefaultFile = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Site      SiteConfig      `koanf:"site"`
	Mail      MailConfig      `koanf:"mail"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Stats     StatsConfig     `koanf:"stats"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// TrustForwardedFor keys clients by X-Forwarded-For (behind a proxy).
	TrustForwardedFor bool `koanf:"trust_forwarded_for"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type SiteConfig struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
	// SecretPath is the path segment that serves the admin surface.
	SecretPath string `koanf:"secret_path"`
}

type MailConfig struct {
	From     string     `koanf:"from"`
	Operator string     `koanf:"operator"` // defaults to From
	SMTP     SMTPConfig `koanf:"smtp"`
}

type SMTPConfig struct {
	Host     string        `koanf:"host"` // empty logs mail instead of sending
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	TLS      string        `koanf:"tls"` // mandatory, opportunistic, ssl, none
	Timeout  time.Duration `koanf:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

type StatsConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	Prefix    string        `koanf:"prefix"`
	BucketTTL time.Duration `koanf:"bucket_ttl"`
}

type TelemetryConfig struct {
	Enabled     bool `koanf:"enabled"`
	PrettyPrint bool `koanf:"pretty_print"`
}

var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "30s",
	"log.level":              "info",
	"log.format":             "json",
	"site.name":              "AllMoviesHub",
	"site.url":               "https://allmovieshub.com",
	"site.secret_path":       "admin-secret-dashboard-2024",
	"mail.from":              "noreply@allmovieshub.com",
	"mail.smtp.port":         587,
	"mail.smtp.tls":          "mandatory",
	"mail.smtp.timeout":      "15s",
	"openai.base_url":        "https://api.openai.com/v1",
	"openai.model":           "gpt-4o-mini",
	"openai.timeout":         "60s",
	"storage.type":           "sqlite",
	"storage.sqlite.path":    "allmovieshub.db",
	"ratelimit.enabled":      true,
	"ratelimit.rps":          0.2,
	"ratelimit.burst":        5,
	"stats.addr":             "localhost:6379",
	"stats.prefix":           "allmovieshub:contact",
	"stats.bucket_ttl":       "24h",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (or DefaultFile when path is empty and present), then
// environment overrides, then defaults for anything still unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	filePath := path
	if filePath == "" {
		filePath = DefaultFile
	}
	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		// A missing default file is fine; a missing explicit file is not.
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Mail.SMTP.Password = substituteEnvVars(cfg.Mail.SMTP.Password)
	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)
	cfg.Stats.Password = substituteEnvVars(cfg.Stats.Password)

	if cfg.Mail.Operator == "" {
		cfg.Mail.Operator = cfg.Mail.From
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the site cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Type {
	case "sqlite", "memory", "none":
	default:
		return fmt.Errorf("storage.type %q: want sqlite, memory or none", c.Storage.Type)
	}
	if strings.Contains(strings.Trim(c.Site.SecretPath, "/"), "/") {
		return fmt.Errorf("site.secret_path %q must be a single path segment", c.Site.SecretPath)
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("ratelimit.rps must be positive when enabled")
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
