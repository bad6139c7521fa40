// Package settings holds the process-wide engine settings record.
//
// The record is loaded at startup, replaced wholesale by explicit updates
// and never deleted. Updates are full replacements, so callers read, modify
// and write back.
package settings

import (
	"strings"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/security"
)

const maxAPIKeyLength = 512

// Settings is the single settings record.
type Settings struct {
	SecurityLevel security.Level `json:"securityLevel" yaml:"security_level"`
	APIKey        string         `json:"apiKey,omitempty" yaml:"api_key,omitempty"`
	// PluginsEnabled is the global kill switch; when false no plugin applies to any page.
	PluginsEnabled bool `json:"pluginsEnabled" yaml:"plugins_enabled"`
	// AutoApplyPlugins enables newly created or imported plugins right away
	// when the security level allows them.
	AutoApplyPlugins bool `json:"autoApplyPlugins" yaml:"auto_apply_plugins"`
}

// Default returns the settings used before any update.
func Default() Settings {
	return Settings{
		SecurityLevel:    security.Safe,
		PluginsEnabled:   true,
		AutoApplyPlugins: false,
	}
}

// Validate checks the record before it replaces the stored one.
func (s Settings) Validate() error {
	if !s.SecurityLevel.Valid() {
		return apperr.Validationf("securityLevel", "unknown security level %d", int(s.SecurityLevel))
	}
	if strings.ContainsAny(s.APIKey, " \t\r\n") {
		return apperr.Validation("apiKey", "API key cannot contain whitespace")
	}
	if len(s.APIKey) > maxAPIKeyLength {
		return apperr.Validationf("apiKey", "API key cannot exceed %d characters", maxAPIKeyLength)
	}
	return nil
}

// HasAPIKey reports whether an API key is configured.
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// MaskedAPIKey returns the API key with all but its edges hidden.
func (s Settings) MaskedAPIKey() string {
	if s.APIKey == "" {
		return "(not set)"
	}
	if len(s.APIKey) <= 8 {
		return "***"
	}
	return s.APIKey[:4] + "..." + s.APIKey[len(s.APIKey)-4:]
}
