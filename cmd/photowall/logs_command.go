package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photowall/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}
			filter.SlotID = strings.TrimSpace(filter.SlotID)
			path := filepath.Join(cfg.Paths.LogDir, "photowall.log")
			recent, offset, err := logs.Tail(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing records as they are written")
	cmd.Flags().StringVar(&filter.SlotID, "slot", "", "Only show records for this slot")
	cmd.Flags().StringVar(&filter.Level, "level", "", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
