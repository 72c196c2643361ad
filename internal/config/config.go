// Package config loads server settings. Precedence, lowest first: built-in
// defaults, an optional YAML file, a .env file, the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	Store          string        `yaml:"store"`
	DatabaseURL    string        `yaml:"database_url"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`

	LateBirdHour              int `yaml:"late_bird_hour"`
	EarlyBirdHour             int `yaml:"early_bird_hour"`
	DefaultDoubleCountTimeout int `yaml:"default_double_count_timeout"`
	DefaultLaneLength         int `yaml:"default_lane_length"`
}

func Default() Config {
	return Config{
		Addr:                      ":8080",
		Store:                     StoreMemory,
		LogLevel:                  "info",
		LogFormat:                 "json",
		RequestTimeout:            15 * time.Second,
		LateBirdHour:              0,
		EarlyBirdHour:             5,
		DefaultDoubleCountTimeout: 15,
		DefaultLaneLength:         25,
	}
}

// Load builds the config. path may be empty, in which case SWIM24_CONFIG is
// consulted; no file at all is fine.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SWIM24_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs error

	envString("SWIM24_ADDR", &cfg.Addr)
	envString("SWIM24_STORE", &cfg.Store)
	envString("DATABASE_URL", &cfg.DatabaseURL)
	envString("SWIM24_LOG_LEVEL", &cfg.LogLevel)
	envString("SWIM24_LOG_FORMAT", &cfg.LogFormat)
	if v, ok := os.LookupEnv("SWIM24_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}

	errs = multierr.Append(errs, envDuration("SWIM24_REQUEST_TIMEOUT", &cfg.RequestTimeout))
	errs = multierr.Append(errs, envInt("SWIM24_LATE_BIRD_HOUR", &cfg.LateBirdHour))
	errs = multierr.Append(errs, envInt("SWIM24_EARLY_BIRD_HOUR", &cfg.EarlyBirdHour))
	errs = multierr.Append(errs, envInt("SWIM24_DEFAULT_DOUBLE_COUNT_TIMEOUT", &cfg.DefaultDoubleCountTimeout))
	errs = multierr.Append(errs, envInt("SWIM24_DEFAULT_LANE_LENGTH", &cfg.DefaultLaneLength))
	return errs
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Addr) == "" {
		errs = multierr.Append(errs, errors.New("config: addr is empty"))
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = multierr.Append(errs, errors.New("config: DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: unknown store %q", c.Store))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: unknown log format %q", c.LogFormat))
	}
	if c.LateBirdHour < 0 || c.LateBirdHour > 23 {
		errs = multierr.Append(errs, fmt.Errorf("config: late bird hour %d outside 0-23", c.LateBirdHour))
	}
	if c.EarlyBirdHour < 0 || c.EarlyBirdHour > 23 {
		errs = multierr.Append(errs, fmt.Errorf("config: early bird hour %d outside 0-23", c.EarlyBirdHour))
	}
	if c.DefaultDoubleCountTimeout < 0 {
		errs = multierr.Append(errs, errors.New("config: default double count timeout is negative"))
	}
	if c.DefaultLaneLength < 1 {
		errs = multierr.Append(errs, errors.New("config: default lane length must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = multierr.Append(errs, errors.New("config: request timeout must be positive"))
	}
	return errs
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
