package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvSource reads PAGESMITH_* environment variables. Unset variables leave
// the current value alone.
type EnvSource struct {
	environment map[string]string
}

// NewEnvSource reads the process environment.
func NewEnvSource() *EnvSource { return &EnvSource{} }

// NewEnvSourceFrom reads from the given map instead of the process
// environment.
func NewEnvSourceFrom(environment map[string]string) *EnvSource {
	return &EnvSource{environment: environment}
}

func (s *EnvSource) Name() string { return "env" }

// Apply overlays environment values onto cfg.
func (s *EnvSource) Apply(cfg *Config) error {
	opts := env.Options{Prefix: EnvPrefix}
	if s.environment != nil {
		opts.Environment = s.environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
