package cmd

import (
	"fmt"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

// promptTTSConfig asks for ElevenLabs keys, voice and playback.
// Returns early on any error (e.g. user pressed Ctrl+C).
func promptTTSConfig(cfg *config.Config, ttsKeys *string) error {
	hint := "Comma separated. When a key is rejected (401) the next one is used."
	if len(cfg.TTS.APIKeys) > 0 {
		hint += " Leave empty to keep the current keys."
	}
	keys, err := promptPassword("ElevenLabs API keys", hint,
		optionalIf(len(cfg.TTS.APIKeys) > 0, validateAPIKeyList))
	if err != nil {
		return err
	}
	*ttsKeys = keys

	options := make([]SelectOption[string], 0, len(tts.Voices()))
	defaultIdx := 0
	current := config.NormalizeVoice(cfg.TTS.Voice)
	for i, v := range tts.Voices() {
		options = append(options, SelectOption[string]{Label: fmt.Sprintf("%-6s (%s)", v.Alias, v.ID), Value: v.Alias})
		if v.Alias == current {
			defaultIdx = i
		}
	}
	voice, err := promptSelect("Voice", options, defaultIdx)
	if err != nil {
		return err
	}
	cfg.TTS.Voice = voice

	player, err := promptString("Audio player command",
		"{file} is replaced by the audio path", cfg.Player.Command, validatePlayerCommand)
	if err != nil {
		return err
	}
	cfg.Player.Command = player

	fmt.Println()
	return nil
}
