package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard: vision provider, ElevenLabs keys, voice, player",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

func runOnboard() {
	fmt.Println(titleStyle.Render("visionvoice setup"))
	fmt.Println()

	cfgPath := resolveConfigPath()
	cfg := config.Default()
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Found existing config at %s\n", cfgPath)
		useExisting, err := promptConfirm("Use existing config as base?", true)
		if err != nil {
			fmt.Println("Cancelled.")
			return
		}
		if useExisting {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				fmt.Printf("Warning: could not load existing config: %v\n", err)
			} else {
				cfg = loaded
			}
		}
	}

	// --- Vision ---
	providerIdx := 0
	if cfg.Vision.Provider == "gemini" {
		providerIdx = 1
	}
	provider, err := promptSelect("Vision provider", []SelectOption[string]{
		{"OpenRouter (OpenAI-compatible, Llama 3.2 Vision free tier)", "openai"},
		{"Gemini     (Google AI Studio key)", "gemini"},
	}, providerIdx)
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if provider != cfg.Vision.Provider {
		cfg.Vision.Provider = provider
		cfg.Vision.Model = ""
		cfg.Vision.APIBase = ""
	}

	visionHint := ""
	if cfg.Vision.APIKey != "" {
		visionHint = "Leave empty to keep the current key"
	}
	visionKey, err := promptPassword("Vision API key", visionHint,
		optionalIf(cfg.Vision.APIKey != "", validateAPIKey))
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if visionKey != "" {
		cfg.Vision.APIKey = visionKey
	}

	imagePath, err := promptString("Image to ask about", "", cfg.Vision.ImagePath, validateNonEmpty)
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	cfg.Vision.ImagePath = imagePath

	// --- Speech ---
	var ttsKeys string
	if err := promptTTSConfig(cfg, &ttsKeys); err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if keys := config.SplitKeys(ttsKeys); len(keys) > 0 {
		cfg.TTS.APIKeys = keys
	}

	// --- Secrets ---
	useKeyring, err := promptConfirm("Store API keys in the OS keyring instead of the config file?", true)
	if err != nil {
		fmt.Println("Cancelled.")
		return
	}
	if useKeyring {
		if err := moveSecretsToKeyring(cfg, config.OSKeyring{}); err != nil {
			fmt.Printf("Warning: keyring unavailable (%v), keys stay in the config file.\n", err)
		}
	}

	// Fill model/base defaults for a switched provider before saving.
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = config.DefaultVisionModel
		if cfg.Vision.Provider == "gemini" {
			cfg.Vision.Model = config.DefaultGeminiModel
		}
	}
	if cfg.Vision.APIBase == "" && cfg.Vision.Provider == "openai" {
		cfg.Vision.APIBase = config.DefaultVisionAPIBase
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config saved to %s\n", cfgPath)

	// Verify with the secrets restored so the checks see them.
	check, _ := config.Load(cfgPath)
	if check != nil {
		_ = check.ApplySecrets(config.OSKeyring{})
		printKeyChecks(check)
	}

	fmt.Println()
	fmt.Println("Start chatting with:  visionvoice")
}

// moveSecretsToKeyring stores the keys in store and clears them from cfg.
func moveSecretsToKeyring(cfg *config.Config, store config.SecretStore) error {
	if cfg.Vision.APIKey != "" {
		if err := store.Set(config.SecretVision, cfg.Vision.APIKey); err != nil {
			return err
		}
	}
	if len(cfg.TTS.APIKeys) > 0 {
		value, err := normalizeSecret(config.SecretTTS, strings.Join(cfg.TTS.APIKeys, ","))
		if err != nil {
			return err
		}
		if err := store.Set(config.SecretTTS, value); err != nil {
			return err
		}
	}
	cfg.Vision.APIKey = ""
	cfg.TTS.APIKeys = nil
	return nil
}

// printKeyChecks checks every configured key and prints the outcome.
func printKeyChecks(cfg *config.Config) {
	fmt.Println()
	fmt.Println("  Key checks:")
	if cfg.Vision.APIKey != "" && cfg.Vision.Provider == "openai" {
		printKeyCheck("vision:", verifyVisionKey(cfg))
	}
	for i, key := range cfg.TTS.APIKeys {
		printKeyCheck(fmt.Sprintf("tts #%d:", i+1), verifyTTSKey(cfg.TTS.BaseURL, key))
	}
}

func printKeyCheck(label string, verr *keyVerifyError) {
	switch {
	case verr == nil:
		fmt.Printf("    %-12s OK\n", label)
	case verr.fatal:
		fmt.Printf("    %-12s INVALID (%s)\n", label, verr.message)
	default:
		fmt.Printf("    %-12s warning: %s\n", label, verr.message)
	}
}
