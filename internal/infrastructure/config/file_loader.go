package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSource reads a YAML config file. Keys missing from the file leave the
// current value alone.
type FileSource struct {
	path string
	// required makes a missing file an error; the default path may be absent.
	required bool
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string, required bool) *FileSource {
	return &FileSource{path: path, required: required}
}

func (s *FileSource) Name() string { return "file" }

// Path returns the file location.
func (s *FileSource) Path() string { return s.path }

// Apply overlays the file's values onto cfg.
func (s *FileSource) Apply(cfg *Config) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) && !s.required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	return nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
