package cli

import (
	"github.com/spf13/pflag"

	"pagesmith.dev/engine/internal/infrastructure/config"
)

// flagSource applies command-line overrides. Only flags the user set
// explicitly replace values from earlier sources.
type flagSource struct {
	flags *pflag.FlagSet
}

func (s flagSource) Name() string { return "flag" }

func (s flagSource) Apply(cfg *config.Config) error {
	overrides := []struct {
		name   string
		target *string
	}{
		{"data-path", &cfg.DataPath},
		{"storage-backend", &cfg.StorageBackend},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"listen-addr", &cfg.ListenAddr},
		{"server", &cfg.ServerURL},
	}

	for _, o := range overrides {
		if !s.flags.Changed(o.name) {
			continue
		}
		value, err := s.flags.GetString(o.name)
		if err != nil {
			return err
		}
		*o.target = value
	}
	return nil
}
