package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nextlevelbuilder/visionvoice/internal/assistant"
	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
	"github.com/nextlevelbuilder/visionvoice/internal/vision"
)

// newVisionProvider builds the configured vision backend.
func newVisionProvider(ctx context.Context, cfg *config.Config) (vision.Provider, error) {
	v := cfg.Vision
	switch v.Provider {
	case "gemini":
		return vision.NewGeminiProvider(ctx, vision.GeminiConfig{
			APIKey:    v.APIKey,
			APIBase:   v.APIBase,
			Model:     v.Model,
			TimeoutMs: v.TimeoutMs,
		})
	case "openai", "":
		return vision.NewOpenAIProvider(vision.OpenAIConfig{
			APIKey:    v.APIKey,
			APIBase:   v.APIBase,
			Model:     v.Model,
			TimeoutMs: v.TimeoutMs,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", v.Provider)
	}
}

// newTTSProvider builds the ElevenLabs synthesizer. Rotation notices are
// written to notify (nil = silent).
func newTTSProvider(cfg *config.Config, notify io.Writer) (*tts.ElevenLabsProvider, error) {
	t := cfg.TTS
	pool, err := tts.NewKeyPool(t.APIKeys)
	if err != nil {
		return nil, err
	}
	voiceID, err := tts.ResolveVoice(config.NormalizeVoice(t.Voice))
	if err != nil {
		return nil, err
	}

	rotation := tts.DefaultRotationPolicy()
	rotation.MaxRotations = t.MaxRotations
	if t.RotationDelayMs > 0 {
		rotation.BaseDelay = time.Duration(t.RotationDelayMs) * time.Millisecond
	}
	if t.RotationMaxDelay > 0 {
		rotation.MaxDelay = time.Duration(t.RotationMaxDelay) * time.Millisecond
	}

	var onRotate func(int)
	if notify != nil {
		onRotate = assistant.RotationNotice(notify)
	}

	return tts.NewElevenLabsProvider(tts.ElevenLabsConfig{
		Keys:              pool,
		BaseURL:           t.BaseURL,
		VoiceID:           voiceID,
		ModelID:           t.ModelID,
		OutputPath:        config.ExpandHome(t.OutputPath),
		ChunkSize:         t.ChunkSize,
		TimeoutMs:         t.TimeoutMs,
		Rotation:          rotation,
		RequestsPerSecond: t.RequestsPerSecond,
		OnRotate:          onRotate,
	})
}

// newPlayer returns the configured audio player, or a silent one when muted.
func newPlayer(cfg *config.Config) (tts.Player, error) {
	if cfg.Player.Mute {
		return tts.NopPlayer{}, nil
	}
	return tts.NewCommandPlayer(cfg.Player.Command)
}

// newSpeaker wires synthesizer and player.
func newSpeaker(cfg *config.Config, notify io.Writer) (*tts.Speaker, *tts.ElevenLabsProvider, error) {
	provider, err := newTTSProvider(cfg, notify)
	if err != nil {
		return nil, nil, fmt.Errorf("tts: %w", err)
	}
	player, err := newPlayer(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("player: %w", err)
	}
	speaker := tts.NewSpeaker(tts.SpeakerConfig{
		Provider:      provider,
		Player:        player,
		StripMarkdown: cfg.TTS.StripMarkdown,
	})
	return speaker, provider, nil
}
