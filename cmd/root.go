package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "0.1.0"

var (
	cfgFile  string
	envFiles []string
	verbose  bool
	logJSON  bool

	rootChat chatOptions
)

var rootCmd = &cobra.Command{
	Use:   "visionvoice",
	Short: "Ask a vision model about an image and hear the answer",
	Long: `visionvoice sends a fixed image and your question to a vision-language
model, prints the answer and reads it aloud through ElevenLabs.

Without a subcommand it starts the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv(envFiles...)
		setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runChat(cmd, rootChat))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.visionvoice/config.json, env VISIONVOICE_CONFIG)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	addChatFlags(rootCmd, &rootChat)

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(sayCmd())
	rootCmd.AddCommand(voicesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("visionvoice %s\n", Version)
		},
	}
}

// resolveConfigPath returns --config, then $VISIONVOICE_CONFIG, then the
// default location.
func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	if v := os.Getenv(config.EnvConfigPath); v != "" {
		return config.ExpandHome(v)
	}
	return config.DefaultPath()
}

// setupLogging installs the default slog logger. Logs go to stderr so they
// never mix with answers on stdout.
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the config file, fills missing secrets from the OS
// keyring and exits on a broken file.
func loadConfig() (*config.Config, string) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplySecrets(config.OSKeyring{}); err != nil {
		slog.Debug("keyring unavailable", "error", err)
	}
	return cfg, cfgPath
}
