package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "TRENDCREATE_CONFIG"
	dbPathEnv     = "TRENDCREATE_DB_PATH"
	exportDirEnv  = "TRENDCREATE_EXPORT_DIR"
	logLevelEnv   = "TRENDCREATE_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Export    ExportConfig    `yaml:"export"`
	Retention RetentionConfig `yaml:"retention"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FetcherConfig controls full-content retrieval.
type FetcherConfig struct {
	Enabled      bool     `yaml:"enabled"`
	DelaySeconds int      `yaml:"delaySeconds"`
	Blacklist    []string `yaml:"blacklist"`
}

// ExportConfig names the markdown export root.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// RetentionConfig bounds the duplicate-cleanup horizon.
type RetentionConfig struct {
	Days int `yaml:"days"`
}

// SourceConfig describes a single listing source with its scanner strategy.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URL     string            `yaml:"url"`
	Section string            `yaml:"section"`
	Options map[string]string `yaml:"options"`
}

// fileConfig mirrors Config for YAML decoding. Fetcher.Enabled is a pointer
// so an explicit "enabled: false" is distinguishable from an absent key.
type fileConfig struct {
	Logging   LoggingConfig     `yaml:"logging"`
	Database  DatabaseConfig    `yaml:"database"`
	Fetcher   fileFetcherConfig `yaml:"fetcher"`
	Export    ExportConfig      `yaml:"export"`
	Retention RetentionConfig   `yaml:"retention"`
	Sources   []SourceConfig    `yaml:"sources"`
}

type fileFetcherConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	DelaySeconds int      `yaml:"delaySeconds"`
	Blacklist    []string `yaml:"blacklist"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg fileConfig
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(exportDirEnv); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base Config, override fileConfig) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.Path != "" {
		base.Database = override.Database
	}
	if override.Export.Dir != "" {
		base.Export = override.Export
	}
	if override.Retention.Days > 0 {
		base.Retention = override.Retention
	}
	if override.Fetcher.Enabled != nil {
		base.Fetcher.Enabled = *override.Fetcher.Enabled
	}
	if override.Fetcher.DelaySeconds > 0 {
		base.Fetcher.DelaySeconds = override.Fetcher.DelaySeconds
	}
	if len(override.Fetcher.Blacklist) > 0 {
		base.Fetcher.Blacklist = override.Fetcher.Blacklist
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/trendcreate.db"},
		Fetcher: FetcherConfig{
			Enabled:      true,
			DelaySeconds: 1,
			Blacklist:    []string{"minihf.com", "slow-site.com"},
		},
		Export:    ExportConfig{Dir: "content"},
		Retention: RetentionConfig{Days: 90},
		Sources: []SourceConfig{
			{
				Name:    "TLDR AI",
				Scanner: "tldr",
				URL:     "https://tldr.tech/",
				Section: "ai",
			},
		},
	}
}
