// Package config loads and validates scrapper configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/sites"
)

// Config captures all process-wide configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Markers  MarkersConfig  `mapstructure:"markers"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sites    SitesConfig    `mapstructure:"sites"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the fetch stack shared by page retrieval and downloads.
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	Delay         time.Duration `mapstructure:"delay"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	// FileRoot is the directory file:// URLs resolve against.
	FileRoot string `mapstructure:"file_root"`
}

// PipelineConfig holds defaults for jobs that do not set them.
type PipelineConfig struct {
	PageRetries int    `mapstructure:"page_retries"`
	Traversal   string `mapstructure:"traversal"`
}

// MarkersConfig selects the page marker store.
type MarkersConfig struct {
	// Driver is one of memory, sqlite, postgres or disabled.
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	Table         string `mapstructure:"table"`
	UpsertRetries int    `mapstructure:"upsert_retries"`
	MaxConns      int32  `mapstructure:"max_conns"`
}

// StorageConfig sets defaults for file-system repositories.
type StorageConfig struct {
	Root      string `mapstructure:"root"`
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// SitesConfig locates the site definitions.
type SitesConfig struct {
	File string `mapstructure:"file"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load applies defaults to v, decodes it and validates the result.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads a single config file on top of defaults and the environment.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "scrapper/1.0")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.retries", 3)
	v.SetDefault("http.delay", "0s")
	v.SetDefault("http.cache_ttl", "5m")
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.file_root", "/")
	v.SetDefault("pipeline.page_retries", 5)
	v.SetDefault("pipeline.traversal", string(crawler.TraversalDepthFirst))
	v.SetDefault("markers.driver", "sqlite")
	v.SetDefault("markers.dsn", "scrapper.db")
	v.SetDefault("markers.table", "page_markers")
	v.SetDefault("markers.upsert_retries", 3)
	v.SetDefault("storage.root", "data")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("sites.file", "sites.yaml")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must be >= 0")
	}
	if c.HTTP.Delay < 0 || c.HTTP.Timeout < 0 || c.HTTP.CacheTTL < 0 {
		return fmt.Errorf("http.delay, http.timeout and http.cache_ttl must not be negative")
	}
	if c.Pipeline.PageRetries < 0 {
		return fmt.Errorf("pipeline.page_retries must be >= 0")
	}
	switch crawler.Traversal(c.Pipeline.Traversal) {
	case crawler.TraversalDepthFirst, crawler.TraversalBreadthFirst:
	default:
		return fmt.Errorf("pipeline.traversal must be dfs or bfs, got %q", c.Pipeline.Traversal)
	}
	switch c.Markers.Driver {
	case "memory", "disabled":
	case "sqlite", "postgres":
		if c.Markers.DSN == "" {
			return fmt.Errorf("markers.dsn must be set for the %s driver", c.Markers.Driver)
		}
	default:
		return fmt.Errorf("markers.driver must be memory, sqlite, postgres or disabled, got %q", c.Markers.Driver)
	}
	if c.Markers.UpsertRetries < 0 {
		return fmt.Errorf("markers.upsert_retries must be >= 0")
	}
	switch c.Storage.Backend {
	case "local", "memory", "gcs":
	default:
		return fmt.Errorf("storage.backend must be local, memory or gcs, got %q", c.Storage.Backend)
	}
	return nil
}

// JobDefaults returns the values applied to sites that leave them unset.
func (c Config) JobDefaults() sites.Defaults {
	return sites.Defaults{
		HTTPRetries: c.HTTP.Retries,
		HTTPDelay:   c.HTTP.Delay,
		PageRetries: c.Pipeline.PageRetries,
		Traversal:   crawler.Traversal(c.Pipeline.Traversal),
	}
}
