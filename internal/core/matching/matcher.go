// Package matching decides whether a page hostname falls under a plugin's
// target domain patterns.
//
// A pattern is either an exact hostname ("example.com") or a wildcard
// subdomain form ("*.example.com"). The wildcard form matches the bare
// domain and every dot-separated subdomain of it, but never a hostname that
// merely shares the suffix ("notexample.com").
package matching

import (
	"fmt"
	"strings"
)

const wildcardPrefix = "*."

// Matches reports whether hostname is covered by pattern. Comparison is
// case-insensitive and ignores surrounding whitespace and a trailing dot.
func Matches(hostname, pattern string) bool {
	host := normalize(hostname)
	pat := normalize(pattern)
	if host == "" || pat == "" {
		return false
	}

	if base, ok := strings.CutPrefix(pat, wildcardPrefix); ok {
		if base == "" {
			return false
		}
		return host == base || strings.HasSuffix(host, "."+base)
	}

	return host == pat
}

// MatchesAny reports whether at least one pattern covers hostname.
// An empty pattern list never matches.
func MatchesAny(hostname string, patterns []string) bool {
	for _, pattern := range patterns {
		if Matches(hostname, pattern) {
			return true
		}
	}
	return false
}

// ValidatePattern checks that pattern is a usable domain pattern.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("domain pattern cannot be empty")
	}
	if strings.ContainsAny(pattern, " \t\r\n") {
		return fmt.Errorf("domain pattern %q contains whitespace", pattern)
	}
	if strings.ContainsAny(pattern, "/:") {
		return fmt.Errorf("domain pattern %q must be a hostname without scheme, port or path", pattern)
	}

	base := pattern
	if rest, ok := strings.CutPrefix(pattern, wildcardPrefix); ok {
		base = rest
	}
	if strings.Contains(base, "*") {
		return fmt.Errorf("domain pattern %q: wildcard is only allowed as a leading \"*.\" label", pattern)
	}

	base = strings.TrimSuffix(base, ".")
	if base == "" {
		return fmt.Errorf("domain pattern %q has no domain", pattern)
	}
	for _, label := range strings.Split(base, ".") {
		if label == "" {
			return fmt.Errorf("domain pattern %q contains an empty label", pattern)
		}
	}

	return nil
}

// IsWildcard reports whether pattern uses the wildcard subdomain form.
func IsWildcard(pattern string) bool {
	return strings.HasPrefix(normalize(pattern), wildcardPrefix)
}

func normalize(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
