package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photowall/internal/daemon"
	"photowall/internal/ipc"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPauseCommand(ctx),
		newResumeCommand(ctx),
		newNextCommand(ctx),
		newStickyCommand(ctx),
		newGridCommand(ctx),
		newResizeCommand(ctx),
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause auto-advance and hide the frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause()
				if err != nil {
					return err
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Auto-advance paused")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Auto-advance already paused")
				}
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume auto-advance and show the frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume()
				if err != nil {
					return err
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Auto-advance resumed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Auto-advance already running")
				}
				return nil
			})
		},
	}
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Replace every non-sticky settled photo now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Next()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Advanced %d slot(s)\n", resp.Advanced)
				return nil
			})
		},
	}
}

func newStickyCommand(ctx *commandContext) *cobra.Command {
	var on, off bool
	cmd := &cobra.Command{
		Use:   "sticky <slot>",
		Short: "Toggle whether a slot is skipped by auto-advance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if on && off {
				return errors.New("--on and --off are mutually exclusive")
			}
			req := ipc.StickyRequest{SlotID: strings.TrimSpace(args[0])}
			if on || off {
				value := on
				req.Set = &value
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sticky(req)
				if err != nil {
					return err
				}
				state := "released"
				if resp.Sticky {
					state = "pinned"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Slot %s %s\n", resp.SlotID, state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&on, "on", false, "Pin the slot instead of toggling")
	cmd.Flags().BoolVar(&off, "off", false, "Release the slot instead of toggling")
	return cmd
}

func newGridCommand(ctx *commandContext) *cobra.Command {
	ops := []string{daemon.GridAddRow, daemon.GridRemoveRow, daemon.GridAddColumn, daemon.GridRemoveColumn}
	return &cobra.Command{
		Use:       "grid <frame> <" + strings.Join(ops, "|") + ">",
		Short:     "Grow or shrink a frame's grid",
		Args:      cobra.ExactArgs(2),
		ValidArgs: ops,
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, op := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Grid(ipc.GridRequest{Frame: frame, Op: op})
				if err != nil {
					return err
				}
				verb := "Added"
				if strings.HasPrefix(op, "remove") {
					verb = "Removed"
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %d slot(s) on %s\n", verb, len(resp.Slots), frame)
				for _, id := range resp.Slots {
					fmt.Fprintf(out, "  %s\n", id)
				}
				return nil
			})
		},
	}
}

func newResizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <frame> <width>x<height>",
		Short: "Change a frame's pixel size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame := strings.TrimSpace(args[0])
			width, height, err := parseSize(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resize(ipc.ResizeRequest{Frame: frame, Width: width, Height: height})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resized %s to %dx%d; %d slot(s) reloading\n", frame, width, height, len(resp.Reloading))
				return nil
			})
		},
	}
}

// parseSize reads a WIDTHxHEIGHT pair of positive integers.
func parseSize(value string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WIDTHxHEIGHT", value)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("size %q: width and height must be positive integers", value)
	}
	return width, height, nil
}
