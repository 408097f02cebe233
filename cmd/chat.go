package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/assistant"
	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// chatOptions are command-line overrides shared by chat, ask and the root
// command.
type chatOptions struct {
	image        string
	voice        string
	mute         bool
	maxRotations int
}

func addChatFlags(cmd *cobra.Command, opts *chatOptions) {
	cmd.Flags().StringVar(&opts.image, "image", "", "image to ask about (overrides vision.imagePath)")
	cmd.Flags().StringVar(&opts.voice, "voice", "", "voice alias (bill, brian, omin) or ElevenLabs voice ID")
	cmd.Flags().BoolVar(&opts.mute, "mute", false, "synthesize speech but do not play it")
	cmd.Flags().IntVar(&opts.maxRotations, "max-rotations", 0, "key switches per answer (0 = each key once, -1 = unlimited)")
}

// apply copies the flags that were set onto cfg.
func (o chatOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.image != "" {
		cfg.Vision.ImagePath = o.image
	}
	if o.voice != "" {
		cfg.TTS.Voice = o.voice
	}
	if o.mute {
		cfg.Player.Mute = true
	}
	if cmd.Flags().Changed("max-rotations") {
		cfg.TTS.MaxRotations = o.maxRotations
	}
}

func chatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: ask about the image, hear the answer",
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(runChat(cmd, opts))
		},
	}
	addChatFlags(cmd, &opts)
	return cmd
}

func runChat(cmd *cobra.Command, opts chatOptions) error {
	cfg, cfgPath := loadConfig()
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w (run 'visionvoice onboard' or set %s and %s)",
			err, config.EnvVisionAPIKey, config.EnvTTSAPIKeys)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := initTelemetry(ctx, cfg)
	defer shutdownTelemetry()

	history := config.ExpandHome(cfg.Console.HistoryFile)
	if history != "" {
		_ = os.MkdirAll(filepath.Dir(history), 0700)
	}
	console, err := assistant.NewConsole(history)
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}
	defer console.Close()
	out := console.Stdout()

	visionProvider, err := newVisionProvider(ctx, cfg)
	if err != nil {
		return err
	}
	speaker, ttsProvider, err := newSpeaker(cfg, out)
	if err != nil {
		return err
	}

	watchKeys(ctx, cfgPath, cfg, ttsProvider.Keys())
	printChatBanner(out, cfg)

	loop := assistant.New(assistant.Config{
		Vision:       visionProvider,
		Speaker:      speaker,
		ImagePath:    cfg.Vision.ImagePath,
		MaxImageSide: cfg.Vision.MaxImageSide,
		Input:        console,
		Output:       out,
	})
	return loop.Run(ctx)
}

// exitOnError prints err and exits with status 1.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

// watchKeys reloads the TTS key list when the config file changes, so
// rejected keys can be replaced without restarting the chat.
func watchKeys(ctx context.Context, cfgPath string, cfg *config.Config, pool *tts.KeyPool) {
	if _, err := os.Stat(cfgPath); err != nil {
		slog.Debug("no config file to watch", "path", cfgPath)
		return
	}
	reloader := newKeyReloader(pool, cfg.TTS.APIKeys)
	w := config.NewWatcher(cfgPath, config.OSKeyring{})
	w.OnChange(func(next *config.Config) { reloader.apply(next) })
	go func() {
		if err := w.Run(ctx, cfg); err != nil {
			slog.Warn("config watcher stopped", "error", err)
		}
	}()
}

// keyReloader swaps the pool's keys when a reloaded config lists different
// ones. An empty list keeps the previous keys.
type keyReloader struct {
	mu      sync.Mutex
	pool    *tts.KeyPool
	current []string
}

func newKeyReloader(pool *tts.KeyPool, keys []string) *keyReloader {
	return &keyReloader{pool: pool, current: slices.Clone(keys)}
}

// apply reports whether the pool was replaced.
func (r *keyReloader) apply(next *config.Config) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Equal(r.current, next.TTS.APIKeys) {
		return false
	}
	if err := r.pool.Replace(next.TTS.APIKeys); err != nil {
		slog.Warn("config reload: keeping previous tts keys", "error", err)
		return false
	}
	r.current = slices.Clone(next.TTS.APIKeys)
	slog.Info("tts keys reloaded", "count", r.pool.Len())
	return true
}

func printChatBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, titleStyle.Render("visionvoice"))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("image: %s  model: %s  voice: %s",
		cfg.Vision.ImagePath, cfg.Vision.Model, config.NormalizeVoice(cfg.TTS.Voice))))
	fmt.Fprintln(w)
}
