package tts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Voice is a named ElevenLabs voice.
type Voice struct {
	Alias string `json:"alias"`
	ID    string `json:"id"`
}

var voiceAliases = map[string]string{
	"bill":  "pqHfZKP75CvOlQylNhV4",
	"brian": "nPczCjzI2devNBz1zQrb",
	"omin":  "2gPFXx8pN3Avh27Dw5Ma",
}

var rawVoiceID = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)

// Voices lists the built-in aliases sorted by name.
func Voices() []Voice {
	out := make([]Voice, 0, len(voiceAliases))
	for alias, id := range voiceAliases {
		out = append(out, Voice{Alias: alias, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ResolveVoice maps an alias to its voice ID. Raw voice IDs pass through.
func ResolveVoice(name string) (string, error) {
	name = strings.TrimSpace(name)
	if id, ok := voiceAliases[strings.ToLower(name)]; ok {
		return id, nil
	}
	if rawVoiceID.MatchString(name) {
		return name, nil
	}
	return "", fmt.Errorf("unknown voice %q (known: bill, brian, omin, or a 20-character voice ID)", name)
}
