package cmd

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

// runWithHelp wraps a huh field in a Form with help hints visible at the bottom.
func runWithHelp(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).Run()
}

// promptString prompts for a text input. An empty answer returns
// defaultVal, and validate (optional) sees the value that will be returned.
func promptString(title, description, defaultVal string, validate func(string) error) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		Value(&value)

	if description != "" {
		inp = inp.Description(description)
	}
	if defaultVal != "" {
		inp = inp.Placeholder(defaultVal)
	}
	if validate != nil {
		inp = inp.Validate(func(s string) error {
			if s == "" {
				s = defaultVal
			}
			return validate(s)
		})
	}

	if err := runWithHelp(inp); err != nil {
		return "", err
	}
	if value == "" {
		return defaultVal, nil
	}
	return value, nil
}

// promptPassword prompts for a secret (hidden characters). validate is
// required: secrets are never accepted unchecked.
func promptPassword(title, description string, validate func(string) error) (string, error) {
	var value string
	inp := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Validate(validate).
		Value(&value)

	if description != "" {
		inp = inp.Description(description)
	}

	if err := runWithHelp(inp); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// promptSelect shows a single-select list and returns the chosen value.
func promptSelect[T comparable](title string, options []SelectOption[T], defaultIdx int) (T, error) {
	var value T

	huhOpts := make([]huh.Option[T], len(options))
	for i, opt := range options {
		huhOpts[i] = huh.NewOption(opt.Label, opt.Value)
	}
	if defaultIdx >= 0 && defaultIdx < len(options) {
		huhOpts[defaultIdx] = huhOpts[defaultIdx].Selected(true)
	}

	sel := huh.NewSelect[T]().
		Title(title).
		Options(huhOpts...).
		Value(&value)

	if err := runWithHelp(sel); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// promptConfirm asks a yes/no question. Returns true for yes.
func promptConfirm(title string, defaultYes bool) (bool, error) {
	value := defaultYes

	c := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value)

	if err := runWithHelp(c); err != nil {
		return false, err
	}
	return value, nil
}

// SelectOption represents a single option in a select prompt.
type SelectOption[T any] struct {
	Label string
	Value T
}

// --- validators ---

var (
	errEmptyKey   = errors.New("enter an API key")
	errKeySpace   = errors.New("API keys cannot contain spaces")
	errEmptyValue = errors.New("a value is required")
)

// validateAPIKey accepts one non-empty key without inner whitespace.
func validateAPIKey(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errEmptyKey
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return errKeySpace
	}
	return nil
}

// validateAPIKeyList accepts a comma separated list with at least one key.
func validateAPIKeyList(s string) error {
	keys := config.SplitKeys(s)
	if len(keys) == 0 {
		return errEmptyKey
	}
	for _, k := range keys {
		if err := validateAPIKey(k); err != nil {
			return err
		}
	}
	return nil
}

// optionalIf lets an empty answer through when keep is true (an existing
// value will be kept), otherwise defers to validate.
func optionalIf(keep bool, validate func(string) error) func(string) error {
	return func(s string) error {
		if keep && strings.TrimSpace(s) == "" {
			return nil
		}
		return validate(s)
	}
}

func validateNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errEmptyValue
	}
	return nil
}

// validatePlayerCommand checks that the command parses into argv.
func validatePlayerCommand(s string) error {
	_, err := tts.NewCommandPlayer(s)
	return err
}
