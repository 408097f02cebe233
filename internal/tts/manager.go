package tts

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
)

// Speaker turns text into audible speech: synthesize, then play.
type Speaker struct {
	provider      Provider
	player        Player
	opts          Options
	stripMarkdown bool
}

// SpeakerConfig configures a Speaker.
type SpeakerConfig struct {
	Provider      Provider
	Player        Player // nil = NopPlayer
	Voice         string
	Model         string
	StripMarkdown bool // drop markdown syntax before synthesis
}

// NewSpeaker creates a Speaker.
func NewSpeaker(cfg SpeakerConfig) *Speaker {
	s := &Speaker{
		provider:      cfg.Provider,
		player:        cfg.Player,
		opts:          Options{Voice: cfg.Voice, Model: cfg.Model},
		stripMarkdown: cfg.StripMarkdown,
	}
	if s.player == nil {
		s.player = NopPlayer{}
	}
	return s
}

// Speak synthesizes text and plays the result synchronously. Synthesis
// errors are returned as-is (nothing is played). A playback failure is
// returned wrapped in ErrPlayback together with the synthesis result.
func (s *Speaker) Speak(ctx context.Context, text string) (*SynthResult, error) {
	if s.stripMarkdown {
		text = stripMarkdown(text)
	}

	res, err := s.provider.Synthesize(ctx, text, s.opts)
	if err != nil {
		return nil, err
	}
	if res.Rotations > 0 {
		slog.Info("tts succeeded after key rotation", "provider", s.provider.Name(), "rotations", res.Rotations)
	}

	if err := s.player.Play(ctx, res.Path); err != nil {
		return res, fmt.Errorf("%w: %w", ErrPlayback, err)
	}
	return res, nil
}

var (
	mdCodeBlock  = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	mdBoldUnder  = regexp.MustCompile(`__([^_]+)__`)
	mdItalUnder  = regexp.MustCompile(`_([^_]+)_`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeader     = regexp.MustCompile(`(?m)^#+\s+`)
)

// stripMarkdown removes common markdown formatting for cleaner TTS input.
func stripMarkdown(text string) string {
	text = mdCodeBlock.ReplaceAllString(text, "")
	text = mdInlineCode.ReplaceAllString(text, "$1")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdBoldUnder.ReplaceAllString(text, "$1")
	text = mdItalUnder.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHeader.ReplaceAllString(text, "")
	return text
}
