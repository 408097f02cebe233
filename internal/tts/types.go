// Package tts converts assistant answers to speech.
//
// The only provider is ElevenLabs. It owns a pool of API keys and rotates
// to the next key whenever the service answers 401, writing the audio
// stream to a local file that a Player then plays.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// Provider synthesizes text into an audio file.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, opts Options) (*SynthResult, error)
}

// Options overrides provider defaults for one call.
type Options struct {
	Voice string // voice ID
	Model string // model ID
}

// SynthResult describes the audio file written by a successful synthesis.
type SynthResult struct {
	Path      string
	Bytes     int64
	MimeType  string
	Attempts  int // requests sent, including rejected ones
	Rotations int // keys switched during this call
}

// RemoteError is a non-200, non-401 answer from the TTS service.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("tts request failed with status %d: %s", e.StatusCode, e.Body)
}

var (
	// ErrKeysExhausted means every key allowed by the rotation policy was
	// rejected with 401.
	ErrKeysExhausted = errors.New("tts api keys exhausted")

	// ErrOutput marks failures writing the local audio file.
	ErrOutput = errors.New("write audio output")

	// ErrPlayback marks failures of the audio player.
	ErrPlayback = errors.New("play audio")
)
