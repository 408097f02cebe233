package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/visionvoice/internal/config"
	"github.com/nextlevelbuilder/visionvoice/internal/tts"
)

type voiceEntry struct {
	Alias   string `json:"alias"`
	ID      string `json:"id"`
	Default bool   `json:"default"`
}

func voicesCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List built-in voice aliases",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _ := loadConfig()
			entries := buildVoiceList(config.NormalizeVoice(cfg.TTS.Voice))

			if jsonOutput {
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ALIAS\tVOICE ID\tDEFAULT\n")
			for _, e := range entries {
				mark := ""
				if e.Default {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Alias, e.ID, mark)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func buildVoiceList(current string) []voiceEntry {
	var entries []voiceEntry
	for _, v := range tts.Voices() {
		entries = append(entries, voiceEntry{
			Alias:   v.Alias,
			ID:      v.ID,
			Default: v.Alias == current || v.ID == current,
		})
	}
	return entries
}
