// Package security gates plugin execution behind the user's configured
// trust level.
//
// Levels are totally ordered: Safe < Moderate < Advanced. A plugin's
// required level is derived from its operations and never stored.
package security

import (
	"fmt"
	"strings"
)

// Level is a security tier.
type Level int

const (
	// Safe allows DOM insert, update and delete operations.
	Safe Level = iota

	// Moderate is reserved for operations that call predefined external APIs
	// or events without running arbitrary code. No operation maps to it yet.
	Moderate

	// Advanced allows execute operations that run arbitrary code.
	Advanced
)

// Levels lists every level in ascending order.
var Levels = []Level{Safe, Moderate, Advanced}

// String returns the level's name.
func (l Level) String() string {
	switch l {
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case Advanced:
		return "advanced"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l >= Safe && l <= Advanced
}

// AtLeast reports whether l is the same as or above other.
func (l Level) AtLeast(other Level) bool {
	return l >= other
}

// ParseLevel parses a level name, ignoring case and surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return Safe, nil
	case "moderate":
		return Moderate, nil
	case "advanced":
		return Advanced, nil
	default:
		return Safe, fmt.Errorf("unknown security level %q (expected safe, moderate or advanced)", s)
	}
}

// MarshalText encodes the level by name for JSON and YAML.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid security level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
