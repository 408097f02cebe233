package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

func doctorCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(verify)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check every API key against its provider")
	return cmd
}

func runDoctor(verify bool) {
	fmt.Println("visionvoice doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	keyringErr := cfg.ApplySecrets(config.OSKeyring{})

	// Vision
	fmt.Println()
	fmt.Println("  Vision:")
	fmt.Printf("    %-12s %s\n", "Provider:", cfg.Vision.Provider)
	fmt.Printf("    %-12s %s\n", "Model:", cfg.Vision.Model)
	checkKey("API key:", cfg.Vision.APIKey)
	checkFile("Image:", cfg.Vision.ImagePath)

	// Speech
	fmt.Println()
	fmt.Println("  Speech:")
	if len(cfg.TTS.APIKeys) == 0 {
		fmt.Printf("    %-12s (not configured)\n", "API keys:")
	}
	for i, key := range cfg.TTS.APIKeys {
		checkKey(fmt.Sprintf("Key #%d:", i+1), key)
	}
	if id, err := tts.ResolveVoice(cfg.TTS.Voice); err != nil {
		fmt.Printf("    %-12s %s (INVALID)\n", "Voice:", cfg.TTS.Voice)
	} else {
		fmt.Printf("    %-12s %s (%s)\n", "Voice:", cfg.TTS.Voice, id)
	}
	fmt.Printf("    %-12s %s\n", "Output:", cfg.TTS.OutputPath)

	// Player
	fmt.Println()
	fmt.Println("  Player:")
	switch player, err := tts.NewCommandPlayer(cfg.Player.Command); {
	case cfg.Player.Mute:
		fmt.Printf("    %-12s muted\n", "Command:")
	case err != nil:
		fmt.Printf("    %-12s %s\n", "Command:", err)
	default:
		checkBinary(player.Binary())
	}

	// Keyring
	fmt.Println()
	fmt.Printf("  Keyring:  ")
	if _, err := (config.OSKeyring{}).Get(config.SecretVision); err != nil && !errors.Is(err, config.ErrSecretNotFound) {
		fmt.Printf("unavailable (%s)\n", err)
	} else if keyringErr != nil {
		fmt.Printf("error (%s)\n", keyringErr)
	} else {
		fmt.Println("OK")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println()
		fmt.Printf("  Problems: %s\n", err)
	}

	if verify {
		printKeyChecks(cfg)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkKey(label, key string) {
	if key != "" {
		fmt.Printf("    %-12s %s\n", label, config.MaskSecret(key))
	} else {
		fmt.Printf("    %-12s (not configured)\n", label)
	}
}

func checkFile(label, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Printf("    %-12s %s (NOT FOUND)\n", label, path)
	} else {
		fmt.Printf("    %-12s %s (OK)\n", label, path)
	}
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}
