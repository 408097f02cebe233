package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/assistant"
	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

func askCmd() *cobra.Command {
	var (
		opts    chatOptions
		message string
		speak   bool
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask one question about the image and exit",
		Example: `  visionvoice ask -m "What colour is the bear?"
  visionvoice ask -m "Describe it" --speak --voice brian`,
		Run: func(cmd *cobra.Command, args []string) {
			if message == "" && len(args) > 0 {
				message = strings.Join(args, " ")
			}
			exitOnError(runAsk(cmd, opts, message, speak))
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "question to ask")
	cmd.Flags().BoolVar(&speak, "speak", false, "also read the answer aloud")
	addChatFlags(cmd, &opts)
	return cmd
}

func runAsk(cmd *cobra.Command, opts chatOptions, message string, speak bool) error {
	cfg, _ := loadConfig()
	opts.apply(cmd, cfg)
	if cfg.Vision.APIKey == "" {
		return fmt.Errorf("vision API key is not set (run 'visionvoice onboard' or set %s)", config.EnvVisionAPIKey)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	shutdownTelemetry := initTelemetry(ctx, cfg)
	defer shutdownTelemetry()

	visionProvider, err := newVisionProvider(ctx, cfg)
	if err != nil {
		return err
	}

	loopCfg := assistant.Config{
		Vision:       visionProvider,
		ImagePath:    cfg.Vision.ImagePath,
		MaxImageSide: cfg.Vision.MaxImageSide,
		Output:       os.Stdout,
	}
	if speak {
		speaker, _, err := newSpeaker(cfg, os.Stderr)
		if err != nil {
			return err
		}
		loopCfg.Speaker = speaker
	}
	loop := assistant.New(loopCfg)

	answer, err := loop.Ask(ctx, message)
	if err != nil {
		return err
	}
	if !assistant.HasAnswer(answer) {
		return nil
	}
	fmt.Printf("AI Response: %s\n", answer)

	if loopCfg.Speaker == nil {
		return nil
	}
	if _, err := loopCfg.Speaker.Speak(ctx, answer); err != nil {
		var remote *tts.RemoteError
		if errors.As(err, &remote) {
			return fmt.Errorf("text-to-speech request failed with status code %d: %s", remote.StatusCode, remote.Body)
		}
		return err
	}
	return nil
}
