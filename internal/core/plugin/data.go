package plugin

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PluginData wraps a Plugin with store-managed metadata. It is the unit of
// persistence.
type PluginData struct {
	Plugin     Plugin     `json:"plugin"`
	Enabled    bool       `json:"enabled"`
	UsageCount int64      `json:"usageCount"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// ID returns the wrapped plugin's id.
func (d PluginData) ID() string {
	return d.Plugin.ID
}

// Clone returns a deep copy.
func (d PluginData) Clone() PluginData {
	out := d
	out.Plugin = d.Plugin.Clone()
	if d.LastUsedAt != nil {
		ts := *d.LastUsedAt
		out.LastUsedAt = &ts
	}
	return out
}

// NewID generates a fresh plugin identifier.
func NewID() string {
	return uuid.NewString()
}

// HasID reports whether the plugin carries a non-blank id.
func (p Plugin) HasID() bool {
	return strings.TrimSpace(p.ID) != ""
}
