package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the configuration after every source has been applied.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendBolt, BackendSQLite:
		if strings.TrimSpace(c.DataPath) == "" {
			return fmt.Errorf("data path is required for the %s backend", c.StorageBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (must be bolt, sqlite or memory)", c.StorageBackend)
	}

	if err := ValidateListenAddr(c.ListenAddr); err != nil {
		return err
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (must be text or json)", c.LogFormat)
	}

	if c.BroadcastBuffer < 0 {
		return fmt.Errorf("broadcast buffer cannot be negative")
	}

	if c.ServerURL != "" {
		if err := ValidateServerURL(c.ServerURL); err != nil {
			return err
		}
	}
	return nil
}

// ValidateServerURL checks the URL of a running server.
func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("server URL must include a host")
	}
	return nil
}

// ValidateListenAddr checks a host:port listen address.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}
