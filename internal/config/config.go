// Package config loads crawler settings from an optional YAML file, a .env
// file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment variables naming the store. Both are required for any command
// that touches the store.
const (
	EnvStoreURL        = "CHIDA_STORE_URL"
	EnvStoreServiceKey = "CHIDA_STORE_SERVICE_KEY"
	EnvStoreDriver     = "CHIDA_STORE_DRIVER"
	EnvLogLevel        = "CHIDA_LOG_LEVEL"
	EnvLogFormat       = "CHIDA_LOG_FORMAT"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	ErrMissingStoreURL   = errors.New(EnvStoreURL + " is not set")
	ErrMissingServiceKey = errors.New(EnvStoreServiceKey + " is not set")
)

// StoreConfig selects and addresses the tournament store.
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"-"` // Loaded from environment
	ServiceKey string `yaml:"-"` // Loaded from environment
}

// CrawlerConfig describes the scraped site and the HTTP client.
type CrawlerConfig struct {
	ListURL   string `yaml:"list_url"`
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	// HTTPTimeout bounds each request. Zero disables the timeout, so a hung
	// upstream stalls the run until it is cancelled.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Timezone    string        `yaml:"timezone"`
}

type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Crawler CrawlerConfig `yaml:"crawler"`

	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`

	Snapshot struct {
		Dir string `yaml:"dir"`
	} `yaml:"snapshot"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Store.Driver = DriverPostgres
	cfg.Crawler.ListURL = "https://kato.kr/openList"
	cfg.Crawler.BaseURL = "https://kato.kr"
	cfg.Crawler.UserAgent = "chida-crawler/1.0 (+https://chida.kr)"
	cfg.Crawler.Timezone = "Asia/Seoul"
	cfg.Schedule.Cron = "0 6 * * *"
	cfg.Snapshot.Dir = "~/.local/share/chida-crawler"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads .env (next to configPath, or in the working directory), then
// the YAML file at configPath if one is given, then applies environment
// overrides. A missing .env is not an error; a missing YAML file is, unless
// configPath is empty.
func Load(configPath string) (*Config, error) {
	envPath := ".env"
	if configPath != "" {
		envPath = filepath.Join(filepath.Dir(configPath), ".env")
	}
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.URL = os.Getenv(EnvStoreURL)
	c.Store.ServiceKey = os.Getenv(EnvStoreServiceKey)
	if v := os.Getenv(EnvStoreDriver); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate checks settings every command relies on. Store credentials are
// checked separately by ValidateStore because scrape-only commands do not
// need them.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if c.Crawler.ListURL == "" {
		return fmt.Errorf("crawler list_url is required")
	}
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler base_url is required")
	}
	if c.Crawler.HTTPTimeout < 0 {
		return fmt.Errorf("crawler http_timeout must not be negative")
	}
	if _, err := time.LoadLocation(c.Crawler.Timezone); err != nil {
		return fmt.Errorf("invalid crawler timezone %q: %w", c.Crawler.Timezone, err)
	}

	if c.Schedule.Cron != "" {
		if err := ValidateCron(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule cron %q: %w", c.Schedule.Cron, err)
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}

var secondsParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCron accepts standard five-field expressions, descriptors such as
// @daily, and six-field expressions with a leading seconds field.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) == 6 {
		_, err := secondsParser.Parse(expr)
		return err
	}
	_, err := cron.ParseStandard(expr)
	return err
}

// ValidateStore checks that the store endpoint and credential are present.
// SQLite stores are local files and need no credential.
func (c *Config) ValidateStore() error {
	if strings.TrimSpace(c.Store.URL) == "" {
		return ErrMissingStoreURL
	}
	if c.Store.Driver == DriverPostgres && strings.TrimSpace(c.Store.ServiceKey) == "" {
		return ErrMissingServiceKey
	}
	return nil
}

// Location returns the crawler time zone, falling back to a fixed KST offset
// when the zone database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Crawler.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
