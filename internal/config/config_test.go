package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("Load() request timeout = %v, want 30s", cfg.Server.RequestTimeout)
		}
		if cfg.Site.SecretPath != "admin-secret-dashboard-2024" {
			t.Errorf("Load() secret path = %q", cfg.Site.SecretPath)
		}
		if cfg.Site.URL != "https://allmovieshub.com" {
			t.Errorf("Load() site url = %q", cfg.Site.URL)
		}
		if cfg.Mail.Operator != cfg.Mail.From {
			t.Errorf("Load() operator = %q, want from address %q", cfg.Mail.Operator, cfg.Mail.From)
		}
		if cfg.Storage.Type != "sqlite" {
			t.Errorf("Load() storage type = %q", cfg.Storage.Type)
		}
	})

	t.Run("env var overrides", func(t *testing.T) {
		t.Setenv("AMH_SERVER__PORT", "9000")
		t.Setenv("AMH_SITE__SECRET_PATH", "hidden-panel")
		t.Setenv("AMH_MAIL__SMTP__HOST", "smtp.example.com")
		t.Setenv("AMH_RATELIMIT__RPS", "0.5")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
		if cfg.Site.SecretPath != "hidden-panel" {
			t.Errorf("Load() secret path = %q, want hidden-panel", cfg.Site.SecretPath)
		}
		if cfg.Mail.SMTP.Host != "smtp.example.com" {
			t.Errorf("Load() smtp host = %q", cfg.Mail.SMTP.Host)
		}
		if cfg.RateLimit.RPS != 0.5 {
			t.Errorf("Load() rps = %v, want 0.5", cfg.RateLimit.RPS)
		}
	})

	t.Run("file then env", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 7000
site:
  secret_path: from-file
mail:
  from: hello@allmovieshub.com
  operator: ops@allmovieshub.com
  smtp:
    password: ${TEST_SMTP_PASSWORD}
openai:
  api_key: ${TEST_OPENAI_KEY}
storage:
  type: memory
`)
		t.Setenv("TEST_SMTP_PASSWORD", "s3cret")
		t.Setenv("TEST_OPENAI_KEY", "sk-test")
		t.Setenv("AMH_SERVER__PORT", "7001")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 7001 {
			t.Errorf("Load() port = %v, want env override 7001", cfg.Server.Port)
		}
		if cfg.Site.SecretPath != "from-file" {
			t.Errorf("Load() secret path = %q", cfg.Site.SecretPath)
		}
		if cfg.Mail.Operator != "ops@allmovieshub.com" {
			t.Errorf("Load() operator = %q", cfg.Mail.Operator)
		}
		if cfg.Mail.SMTP.Password != "s3cret" {
			t.Errorf("Load() smtp password = %q, want substituted value", cfg.Mail.SMTP.Password)
		}
		if cfg.OpenAI.APIKey != "sk-test" {
			t.Errorf("Load() openai key = %q, want substituted value", cfg.OpenAI.APIKey)
		}
		if cfg.Site.URL != "https://allmovieshub.com" {
			t.Errorf("Load() site url default not applied: %q", cfg.Site.URL)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("Load() error = nil, want error for missing file")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Storage:   StorageConfig{Type: "memory"},
			Site:      SiteConfig{SecretPath: "hidden"},
			RateLimit: RateLimitConfig{Enabled: true, RPS: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad storage", func(c *Config) { c.Storage.Type = "postgres" }, true},
		{"nested secret", func(c *Config) { c.Site.SecretPath = "a/b" }, true},
		{"slashes trimmed", func(c *Config) { c.Site.SecretPath = "/hidden/" }, false},
		{"zero rps enabled", func(c *Config) { c.RateLimit.RPS = 0 }, true},
		{"zero rps disabled", func(c *Config) { c.RateLimit = RateLimitConfig{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR_AMH}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLive(t *testing.T) {
	live := NewLive(&Config{Site: SiteConfig{SecretPath: "/first/"}})
	if got := live.SecretSegment(); got != "first" {
		t.Errorf("SecretSegment() = %q, want first", got)
	}

	live.Store(&Config{Site: SiteConfig{SecretPath: "second"}})
	if got := live.SecretSegment(); got != "second" {
		t.Errorf("SecretSegment() after Store = %q, want second", got)
	}

	if got := (&Live{}).SecretSegment(); got != "" {
		t.Errorf("empty Live SecretSegment() = %q, want empty", got)
	}
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "site:\n  secret_path: before\nstorage:\n  type: memory\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	if err := Watch(ctx, path, nil, func(cfg *Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("site:\n  secret_path: after\nstorage:\n  type: memory\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			// A write may be observed before the content is complete.
			if cfg.Site.SecretPath == "after" {
				return
			}
		case <-timeout:
			t.Fatal("Watch() did not report the change")
		}
	}
}

func TestWatch_EmptyPath(t *testing.T) {
	if err := Watch(context.Background(), "", nil, func(*Config) {}); err == nil {
		t.Fatal("Watch() error = nil, want error")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
