package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fretforge/internal/timingmap"
)

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "sync <timing.sync.json> <seconds>",
		Short:       "Resolve a playback timestamp against a persisted timing map",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read timing map: %w", err)
			}
			var m timingmap.Map
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("parse timing map: %w", err)
			}
			if err := m.Validate(); err != nil {
				return err
			}

			seconds, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse timestamp %q: %w", args[1], err)
			}
			position, err := m.PositionAt(seconds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "audio:    %.3f s\n", seconds)
			fmt.Fprintf(out, "notation: %.3f ms\n", position)
			fmt.Fprintf(out, "tempo:    %.2f bpm, %d rest bars\n", m.BPMEstimate, m.RestBars)
			return nil
		},
	}
}
