package config

import (
	"regexp"
	"strings"
)

var (
	// ElevenLabs voice IDs are 20 alphanumeric characters.
	voiceIDRe    = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)
	aliasInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)
	edgeDashes   = regexp.MustCompile(`^-+|-+$`)
)

// NormalizeVoice turns user input into either a raw voice ID (returned
// unchanged) or a lowercase alias:
//   - surrounding whitespace is trimmed
//   - 20-character alphanumeric strings are treated as voice IDs
//   - anything else is lowercased, invalid chars become "-"
//   - empty input yields DefaultVoice
func NormalizeVoice(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultVoice
	}
	if voiceIDRe.MatchString(trimmed) {
		return trimmed
	}

	alias := aliasInvalid.ReplaceAllString(strings.ToLower(trimmed), "-")
	alias = edgeDashes.ReplaceAllString(alias, "")
	if alias == "" {
		return DefaultVoice
	}
	return alias
}
