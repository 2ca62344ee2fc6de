package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: true
  level: debug
http:
  user_agent: real-agent
  timeout: 45s
  retries: 4
  delay: 250ms
  cache_ttl: 1m
pipeline:
  page_retries: 2
  traversal: bfs
markers:
  driver: postgres
  dsn: postgres://localhost/scrapper
  upsert_retries: 1
storage:
  root: /srv/scrapper
  backend: gcs
  gcs_bucket: bucket
sites:
  file: /etc/scrapper/sites.yaml
metrics:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}
	if cfg.HTTP.UserAgent != "real-agent" || cfg.HTTP.Timeout != 45*time.Second {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.HTTP.Retries != 4 || cfg.HTTP.Delay != 250*time.Millisecond || cfg.HTTP.CacheTTL != time.Minute {
		t.Fatalf("expected fetch policy overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Markers.Driver != "postgres" || cfg.Markers.UpsertRetries != 1 {
		t.Fatalf("expected marker overrides to apply: %+v", cfg.Markers)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "bucket" {
		t.Fatalf("expected storage overrides to apply: %+v", cfg.Storage)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Fatalf("expected metrics addr, got %q", cfg.Metrics.Addr)
	}

	defaults := cfg.JobDefaults()
	if defaults.PageRetries != 2 || defaults.Traversal != crawler.TraversalBreadthFirst || defaults.HTTPRetries != 4 {
		t.Fatalf("unexpected job defaults: %+v", defaults)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.CacheTTL != 5*time.Minute {
		t.Fatalf("expected cache ttl 5m, got %v", cfg.HTTP.CacheTTL)
	}
	if cfg.HTTP.Retries != 3 || cfg.HTTP.Delay != 0 {
		t.Fatalf("expected 3 retries and no delay, got %+v", cfg.HTTP)
	}
	if cfg.Pipeline.PageRetries != 5 || cfg.Pipeline.Traversal != "dfs" {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Markers.Driver != "sqlite" || cfg.Markers.DSN != "scrapper.db" || cfg.Markers.UpsertRetries != 3 {
		t.Fatalf("unexpected marker defaults: %+v", cfg.Markers)
	}
}

func TestLoadReadsEnvironmentThroughViper(t *testing.T) {
	t.Setenv("SCRAPPER_PIPELINE_PAGE_RETRIES", "9")

	v := viper.New()
	v.SetEnvPrefix("SCRAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.PageRetries != 9 {
		t.Fatalf("expected env override, got %d", cfg.Pipeline.PageRetries)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		HTTP:     HTTPConfig{Retries: 3},
		Pipeline: PipelineConfig{PageRetries: 5, Traversal: "dfs"},
		Markers:  MarkersConfig{Driver: "memory"},
		Storage:  StorageConfig{Backend: "local"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "negative retries",
			cfg: func() Config {
				c := base
				c.HTTP.Retries = -1
				return c
			}(),
			want: "http.retries",
		},
		{
			name: "negative delay",
			cfg: func() Config {
				c := base
				c.HTTP.Delay = -time.Second
				return c
			}(),
			want: "http.delay",
		},
		{
			name: "negative page retries",
			cfg: func() Config {
				c := base
				c.Pipeline.PageRetries = -1
				return c
			}(),
			want: "pipeline.page_retries",
		},
		{
			name: "unknown traversal",
			cfg: func() Config {
				c := base
				c.Pipeline.Traversal = "random"
				return c
			}(),
			want: "pipeline.traversal",
		},
		{
			name: "unknown marker driver",
			cfg: func() Config {
				c := base
				c.Markers.Driver = "redis"
				return c
			}(),
			want: "markers.driver",
		},
		{
			name: "sqlite without dsn",
			cfg: func() Config {
				c := base
				c.Markers.Driver = "sqlite"
				return c
			}(),
			want: "markers.dsn",
		},
		{
			name: "unknown storage backend",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "s3"
				return c
			}(),
			want: "storage.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
