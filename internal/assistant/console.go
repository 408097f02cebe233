package assistant

import (
	"errors"
	"io"

	"github.com/chzyer/readline"
)

// Console reads lines from the terminal with editing and history.
type Console struct {
	rl *readline.Instance
}

// NewConsole opens a readline console. historyFile may be empty.
func NewConsole(historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            Prompt,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &Console{rl: rl}, nil
}

func (c *Console) ReadLine(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	return c.rl.Readline()
}

// Stdout is the writer that keeps output from clobbering the prompt line.
func (c *Console) Stdout() io.Writer { return c.rl.Stdout() }

func (c *Console) Close() error { return c.rl.Close() }

// isEndOfInput reports whether err means the user is done typing
// (Ctrl-D or Ctrl-C at the prompt).
func isEndOfInput(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt)
}
