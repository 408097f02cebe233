// Package assistant runs the ask-and-speak console loop.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/visionvoice/internal/tts"
	"github.com/nextlevelbuilder/visionvoice/internal/vision"
)

// Prompt is shown before every question.
const Prompt = "Enter your question or type 'exit' to quit: "

// ErrImage wraps failures to load the configured image. They end the loop.
var ErrImage = errors.New("load image")

// LineReader reads one line of user input. It returns io.EOF when input
// ends.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Speaker voices an answer.
type Speaker interface {
	Speak(ctx context.Context, text string) (*tts.SynthResult, error)
}

// Config wires a Loop.
type Config struct {
	Vision       vision.Provider
	Speaker      Speaker // nil = answers are only printed
	ImagePath    string
	MaxImageSide int
	Input        LineReader
	Output       io.Writer
}

// Loop asks the vision model about the same image once per line of input
// and speaks every answer. Turns are independent: nothing is carried from
// one question to the next.
type Loop struct {
	vision  vision.Provider
	speaker Speaker
	image   string
	maxSide int
	in      LineReader
	out     io.Writer
}

// New creates a Loop.
func New(cfg Config) *Loop {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &Loop{
		vision:  cfg.Vision,
		speaker: cfg.Speaker,
		image:   cfg.ImagePath,
		maxSide: cfg.MaxImageSide,
		in:      cfg.Input,
		out:     out,
	}
}

// Run reads questions until the user types exit (any case), input ends,
// or ctx is cancelled. Only local I/O failures are returned; remote
// failures are printed and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := l.in.ReadLine(Prompt)
		if err != nil {
			if isEndOfInput(err) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if IsExit(line) {
			return nil
		}

		if err := l.Turn(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// IsExit reports whether line asks to leave the loop.
func IsExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "exit")
}

// HasAnswer reports whether the model returned anything worth printing.
func HasAnswer(answer string) bool {
	return strings.TrimSpace(answer) != ""
}

// Turn handles one question: query, print, speak. It returns an error
// only for failures that should stop the program.
func (l *Loop) Turn(ctx context.Context, prompt string) error {
	answer, err := l.Ask(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrImage) {
			return err
		}
		l.printVisionFailure(err)
		return nil
	}
	if !HasAnswer(answer) {
		slog.Debug("empty answer, nothing to speak")
		return nil
	}

	fmt.Fprintf(l.out, "AI Response: %s\n", answer)
	if l.speaker == nil {
		return nil
	}

	res, err := l.speaker.Speak(ctx, answer)
	if err != nil {
		if errors.Is(err, tts.ErrOutput) {
			return err
		}
		l.printSpeechFailure(err)
		return nil
	}
	slog.Debug("answer spoken", "path", res.Path, "bytes", res.Bytes, "rotations", res.Rotations)
	return nil
}

// Ask loads the image fresh from disk and returns the model's answer.
func (l *Loop) Ask(ctx context.Context, prompt string) (string, error) {
	img, err := vision.LoadImage(l.image, l.maxSide)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImage, err)
	}
	return l.vision.Query(ctx, img, prompt)
}

func (l *Loop) printVisionFailure(err error) {
	var remote *vision.RemoteError
	if errors.As(err, &remote) {
		fmt.Fprintf(l.out, "Request failed with status code: %d\n", remote.StatusCode)
		fmt.Fprintf(l.out, "Response: %s\n", remote.Body)
		return
	}
	fmt.Fprintf(l.out, "Request failed: %v\n", err)
}

func (l *Loop) printSpeechFailure(err error) {
	var remote *tts.RemoteError
	switch {
	case errors.As(err, &remote):
		fmt.Fprintf(l.out, "Text-to-speech request failed with status code: %d\n", remote.StatusCode)
		fmt.Fprintf(l.out, "Response: %s\n", remote.Body)
	case errors.Is(err, tts.ErrKeysExhausted):
		fmt.Fprintln(l.out, "Text-to-speech failed: every API key was rejected.")
	case errors.Is(err, tts.ErrPlayback):
		fmt.Fprintf(l.out, "Audio playback failed: %v\n", err)
	default:
		fmt.Fprintf(l.out, "Text-to-speech failed: %v\n", err)
	}
}

// RotationNotice returns a tts OnRotate callback that tells the user a key
// was rejected and which key is now in use.
func RotationNotice(w io.Writer) func(keyNumber int) {
	return func(keyNumber int) {
		fmt.Fprintln(w, "API key likely out of credits or invalid. Switching to the next key...")
		fmt.Fprintf(w, "Switched to API key #%d\n", keyNumber)
	}
}
