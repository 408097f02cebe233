package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
)

// secretNames maps the CLI argument to the keyring account.
var secretNames = map[string]string{
	"vision": config.SecretVision,
	"tts":    config.SecretTTS,
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Store API keys in the OS keyring",
		Long: `Keys stored in the keyring are used when neither the config file nor the
environment provides them.

  vision  API key for the vision model (OpenRouter or Gemini)
  tts     ElevenLabs API keys, tried in order and rotated on 401`,
	}
	cmd.AddCommand(keysSetCmd())
	cmd.AddCommand(keysDeleteCmd())
	return cmd
}

func keysSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <vision|tts>",
		Short:     "Prompt for a key and store it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"vision", "tts"},
		Run: func(cmd *cobra.Command, args []string) {
			name, ok := secretNames[args[0]]
			if !ok {
				fmt.Fprintf(os.Stderr, "Unknown key %q (use vision or tts)\n", args[0])
				os.Exit(1)
			}

			description, validate := "", validateAPIKey
			if name == config.SecretTTS {
				description = "Separate several keys with commas; they are tried in order."
				validate = validateAPIKeyList
			}
			value, err := promptPassword(fmt.Sprintf("%s API key", strings.ToUpper(args[0])), description, validate)
			if err != nil {
				fmt.Println("Cancelled.")
				return
			}

			value, err = normalizeSecret(name, value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if err := (config.OSKeyring{}).Set(name, value); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing keyring: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Stored %s key in the %s keyring.\n", args[0], config.KeyringService)
		},
	}
}

// normalizeSecret trims value; TTS key lists are stored one per line.
func normalizeSecret(name, value string) (string, error) {
	if name == config.SecretTTS {
		keys := config.SplitKeys(value)
		if len(keys) == 0 {
			return "", errors.New("no key entered")
		}
		return strings.Join(keys, "\n"), nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("no key entered")
	}
	return value, nil
}

func keysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "delete <vision|tts>",
		Short:     "Remove a stored key",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"vision", "tts"},
		Run: func(cmd *cobra.Command, args []string) {
			name, ok := secretNames[args[0]]
			if !ok {
				fmt.Fprintf(os.Stderr, "Unknown key %q (use vision or tts)\n", args[0])
				os.Exit(1)
			}
			err := (config.OSKeyring{}).Delete(name)
			switch {
			case errors.Is(err, config.ErrSecretNotFound):
				fmt.Printf("No %s key stored.\n", args[0])
			case err != nil:
				fmt.Fprintf(os.Stderr, "Error writing keyring: %s\n", err)
				os.Exit(1)
			default:
				fmt.Printf("Deleted %s key.\n", args[0])
			}
		},
	}
}
