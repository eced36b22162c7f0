// Package daemon manages the RankFlow runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/rankflow/rankflow/internal/app/persist"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Persist   PersistConfig   `toml:"persist"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host           string   `toml:"host" validate:"required"`
	Port           int      `toml:"port" validate:"gte=1,lte=65535"`
	CORSOrigins    []string `toml:"cors_origins"`
	RequestTimeout string   `toml:"request_timeout"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend       string `toml:"backend" validate:"oneof=sqlite file memory mongo"`
	Dir           string `toml:"dir"`
	Format        string `toml:"format" validate:"omitempty,oneof=json yaml yml toml cbor"`
	Watch         bool   `toml:"watch"`
	MongoURI      string `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase string `toml:"mongo_database"`
}

// PersistConfig controls background task saves.
type PersistConfig struct {
	MaxRetries int    `toml:"max_retries" validate:"gte=1"`
	BaseDelay  string `toml:"base_delay"`
	MaxDelay   string `toml:"max_delay"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
	File   string `toml:"file"` // empty = stderr
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := rankflowHome()
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8787,
			CORSOrigins:    []string{"*"},
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{
			Backend:       BackendSQLite,
			Dir:           homeDir,
			Format:        "json",
			MongoDatabase: "rankflow",
		},
		Persist: PersistConfig{
			MaxRetries: 5,
			BaseDelay:  "200ms",
			MaxDelay:   "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from ~/.rankflow/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads config from path. A missing file yields defaults.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	// Environment overrides
	if uri := os.Getenv("RANKFLOW_MONGO_URI"); uri != "" {
		cfg.Storage.MongoURI = uri
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = rankflowHome()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enumerations, ranges and durations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (got %v)", f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, v := range map[string]string{
		"api.request_timeout": c.API.RequestTimeout,
		"persist.base_delay":  c.Persist.BaseDelay,
		"persist.max_delay":   c.Persist.MaxDelay,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// PersistOptions converts the [persist] section for the background writer.
func (c Config) PersistOptions() persist.Config {
	def := persist.DefaultConfig()
	return persist.Config{
		MaxRetries: max(1, c.Persist.MaxRetries),
		BaseDelay:  parseDuration(c.Persist.BaseDelay, def.BaseDelay),
		MaxDelay:   parseDuration(c.Persist.MaxDelay, def.MaxDelay),
	}
}

// SaveConfig writes the config to ~/.rankflow/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes the config to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(rankflowHome(), "config.toml")
}

// rankflowHome returns the RankFlow data directory.
func rankflowHome() string {
	if env := strings.TrimSpace(os.Getenv("RANKFLOW_HOME")); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rankflow")
}

// Home is exported for use by other packages.
func Home() string {
	return rankflowHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
