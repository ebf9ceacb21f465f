package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"photowall/internal/ipc"
	"photowall/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var slotID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deliveries and failures from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			entries, err := loadHistory(cmd, ctx, strings.TrimSpace(slotID), limit)
			if err != nil {
				return err
			}
			return emit(cmd, asJSON, entries, func(out io.Writer) error {
				if len(entries) == 0 {
					fmt.Fprintln(out, "No journal entries")
					return nil
				}
				fmt.Fprintln(out, renderHistory(entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&slotID, "slot", "", "Only show entries for this slot")
	addJSONFlag(cmd, &asJSON, "entries")
	return cmd
}

// loadHistory asks the running daemon first and falls back to reading the
// journal file directly.
func loadHistory(cmd *cobra.Command, ctx *commandContext, slotID string, limit int) ([]journal.Entry, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, errors.New("journal is disabled in the configuration")
	}

	if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
		defer client.Close()
		resp, err := client.History(ipc.HistoryRequest{SlotID: slotID, Limit: limit})
		if err != nil {
			return nil, err
		}
		return resp.Entries, nil
	}

	if _, err := os.Stat(cfg.JournalPath()); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	j, err := journal.OpenReadOnly(cfg.JournalPath())
	if err != nil {
		return nil, err
	}
	defer j.Close()
	return j.Recent(cmd.Context(), slotID, limit)
}
