// Package config loads the process configuration. Sources are applied in
// order, each overriding only the values it sets:
//
//	defaults -> YAML file -> PAGESMITH_* environment -> command-line flags
//
// Flags are applied by the CLI after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PAGESMITH_"

// Storage backends.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the process configuration.
type Config struct {
	DataPath        string `yaml:"data_path" env:"DATA_PATH"`
	StorageBackend  string `yaml:"storage_backend" env:"STORAGE_BACKEND"`
	ListenAddr      string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string `yaml:"log_format" env:"LOG_FORMAT"`
	MetricsEnabled  bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED"`
	BroadcastBuffer int    `yaml:"broadcast_buffer" env:"BROADCAST_BUFFER"`
	// ServerURL makes CLI commands talk to a running server instead of
	// opening the store directly.
	ServerURL string `yaml:"server_url,omitempty" env:"SERVER_URL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataPath:        filepath.Join(DefaultDir(), "pagesmith.db"),
		StorageBackend:  BackendBolt,
		ListenAddr:      "127.0.0.1:7317",
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsEnabled:  true,
		BroadcastBuffer: 16,
	}
}

// DefaultDir returns the per-user directory for configuration and data.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pagesmith")
	}
	return ".pagesmith"
}

// DefaultConfigPath returns the config file used when none is named.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Source applies one layer of configuration.
type Source interface {
	Apply(cfg *Config) error
	Name() string
}

// Loader applies sources over the defaults in order.
type Loader struct {
	sources []Source
}

// NewLoader creates a loader for the file at path (or PAGESMITH_CONFIG, or
// the default path when both are empty) followed by the environment.
func NewLoader(path string) *Loader {
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	return &Loader{sources: []Source{
		NewFileSource(path, explicit),
		NewEnvSource(),
	}}
}

// AddSource appends a source applied after the existing ones.
func (l *Loader) AddSource(source Source) {
	l.sources = append(l.sources, source)
}

// Load builds and validates the configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	for _, source := range l.sources {
		if err := source.Apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("load %s config: %w", source.Name(), err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
