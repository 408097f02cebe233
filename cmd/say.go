package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func sayCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Speak text with the configured voice",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitOnError(runSay(cmd, opts, strings.Join(args, " ")))
		},
	}
	addChatFlags(cmd, &opts)
	return cmd
}

func runSay(cmd *cobra.Command, opts chatOptions, text string) error {
	cfg, _ := loadConfig()
	opts.apply(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	shutdownTelemetry := initTelemetry(ctx, cfg)
	defer shutdownTelemetry()

	speaker, _, err := newSpeaker(cfg, os.Stderr)
	if err != nil {
		return err
	}
	res, err := speaker.Speak(ctx, text)
	if err != nil {
		return err
	}
	fmt.Printf("Audio saved to %s (%d bytes", res.Path, res.Bytes)
	if res.Rotations > 0 {
		fmt.Printf(", %d key switches", res.Rotations)
	}
	fmt.Println(")")
	return nil
}
