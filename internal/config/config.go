package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// IMDB contains configuration for the movie database search client.
type IMDB struct {
	BaseURL            string `toml:"base_url"`
	UserAgent          string `toml:"user_agent"`
	AcceptLanguage     string `toml:"accept_language"`
	MinIntervalSeconds int    `toml:"min_interval_seconds"`
	MaxResults         int    `toml:"max_results"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Matching contains the tunable weights of the best-match resolver.
type Matching struct {
	AkaWeight   float64 `toml:"aka_weight"`
	FirstWeight float64 `toml:"first_weight"`
	MinMatch    float64 `toml:"min_match"`
	MinDiff     float64 `toml:"min_diff"`
	SingleMatch bool    `toml:"single_match"`
}

// Cache contains configuration for the search result cache.
type Cache struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

// Workflow contains execution worker and queue sizing.
type Workflow struct {
	Workers             int `toml:"workers"`
	QueueCapacity       int `toml:"queue_capacity"`
	LogBufferSize       int `toml:"log_buffer_size"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Task defines a single user task: where entries come from and how they
// are filtered before metadata lookup.
type Task struct {
	Inputs []string `toml:"inputs"`
	Accept []string `toml:"accept"`
	Reject []string `toml:"reject"`
	Lookup bool     `toml:"lookup"`
	Year   int      `toml:"year"`
}

// Config is the root trawler configuration.
type Config struct {
	Paths    Paths           `toml:"paths"`
	IMDB     IMDB            `toml:"imdb"`
	Matching Matching        `toml:"matching"`
	Cache    Cache           `toml:"cache"`
	Workflow Workflow        `toml:"workflow"`
	Logging  Logging         `toml:"logging"`
	Tasks    map[string]Task `toml:"tasks"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	return "~/.config/trawler/config.toml"
}

// Load reads the configuration file at path, applying defaults for any
// omitted fields. A missing file yields the defaults with ErrNotFound
// preserved for callers that care.
func Load(path string) (*Config, error) {
	resolved, err := ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	cfg := Default()

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if normErr := cfg.normalize(); normErr != nil {
				return nil, normErr
			}
			return &cfg, fmt.Errorf("config file %s: %w", resolved, err)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path, refusing
// to overwrite an existing file.
func WriteSample(path string) error {
	resolved, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config file already exists at %s", resolved)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(resolved, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	if c.Paths.LogDir != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("ensure log dir: %w", err)
		}
	}
	if c.Cache.Enabled && c.Cache.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Cache.Path), 0o755); err != nil {
			return fmt.Errorf("ensure cache dir: %w", err)
		}
	}
	return nil
}

// MinInterval returns the configured inter-request delay for the search host.
func (i IMDB) MinInterval() time.Duration {
	return time.Duration(i.MinIntervalSeconds) * time.Second
}

// Timeout returns the search client request timeout.
func (i IMDB) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime.
func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// FetchTimeout returns the per-input fetch timeout for task runs.
func (w Workflow) FetchTimeout() time.Duration {
	return time.Duration(w.FetchTimeoutSeconds) * time.Second
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Cache.Path, err = ExpandPath(c.Cache.Path); err != nil {
		return err
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueueCapacity <= 0 {
		c.Workflow.QueueCapacity = defaultQueueCapacity
	}
	if c.Workflow.LogBufferSize <= 0 {
		c.Workflow.LogBufferSize = defaultLogBufferSize
	}
	if c.IMDB.MaxResults <= 0 {
		c.IMDB.MaxResults = defaultIMDBMaxResults
	}
	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
