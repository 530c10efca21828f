// Package config loads the layered application configuration: built-in
// defaults, an optional YAML file, then EVENTSAMMLER_* environment variables,
// later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix guards which environment variables are read. Nesting uses a
// double underscore: EVENTSAMMLER_DATABASE__PATH sets database.path.
const EnvPrefix = "EVENTSAMMLER_"

// PathEnvVar overrides the config file location.
const PathEnvVar = "EVENTSAMMLER_CONFIG"

// DefaultConfigPaths is searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"eventsammler.yaml",
	"eventsammler.yml",
	"/etc/eventsammler/eventsammler.yaml",
}

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	HTTP     HTTPConfig     `koanf:"http"`
	Scrape   ScrapeConfig   `koanf:"scrape"`
	Sources  SourcesConfig  `koanf:"sources"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig locates the SQLite events database.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// HTTPConfig configures the web server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// ScrapeConfig holds the fetch settings shared by all sources. Zero values
// defer to the scraper package's defaults.
type ScrapeConfig struct {
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
	Delay     time.Duration `koanf:"delay"`
	Retries   int           `koanf:"retries"`
	Limit     int           `koanf:"limit"`
}

// SourcesConfig carries the per-site settings.
type SourcesConfig struct {
	Siwikultur SourceConfig `koanf:"siwikultur"`
	Flohmarkt  SourceConfig `koanf:"flohmarkt"`
	Hamelnr    SourceConfig `koanf:"hamelnr"`
}

// SourceConfig configures one site. An empty BaseURL means the production
// site; overriding it is mainly for tests and mirrors.
type SourceConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Path: "data/events.sqlite3",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Scrape: ScrapeConfig{
			Timeout: 30 * time.Second,
			Delay:   300 * time.Millisecond,
			Retries: 2,
			Limit:   0,
		},
		Sources: SourcesConfig{
			Siwikultur: SourceConfig{Enabled: true},
			Flohmarkt:  SourceConfig{Enabled: true},
			Hamelnr:    SourceConfig{Enabled: true},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path names an explicit config file and must
// exist when non-empty; otherwise the default paths are tried and silently
// skipped when absent.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToPath), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envToPath maps EVENTSAMMLER_DATABASE__PATH to database.path.
func envToPath(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr must not be empty")
	}
	if c.Scrape.Limit < 0 {
		return fmt.Errorf("scrape.limit must not be negative")
	}
	for name, src := range map[string]SourceConfig{
		"siwikultur": c.Sources.Siwikultur,
		"flohmarkt":  c.Sources.Flohmarkt,
		"hamelnr":    c.Sources.Hamelnr,
	} {
		if src.BaseURL != "" && !strings.HasPrefix(src.BaseURL, "http") {
			return fmt.Errorf("sources.%s.base_url must be an http(s) URL", name)
		}
	}
	return nil
}
