package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Player plays an audio file and returns once playback has finished.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer runs an external program such as ffplay or mpv.
type CommandPlayer struct {
	argv []string
}

// NewCommandPlayer parses command with shell quoting rules. The token
// {file} is replaced with the audio path; without it the path is appended.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	return &CommandPlayer{argv: argv}, nil
}

// Binary is the program the player runs.
func (p *CommandPlayer) Binary() string { return p.argv[0] }

func (p *CommandPlayer) args(path string) []string {
	out := make([]string, 0, len(p.argv)+1)
	found := false
	for _, a := range p.argv[1:] {
		if strings.Contains(a, "{file}") {
			a = strings.ReplaceAll(a, "{file}", path)
			found = true
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, path)
	}
	return out
}

func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.argv[0], p.args(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", p.argv[0], err)
	}
	return nil
}

// NopPlayer discards audio.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, string) error { return nil }
