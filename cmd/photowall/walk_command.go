package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"photowall/internal/logging"
	"photowall/internal/rotation"
)

func newWalkCommand(ctx *commandContext) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Print photo paths the configured rotation would pick",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return errors.New("-n must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := rotation.FromConfig(cfg, logging.NewNop())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				path, err := source.Next()
				if err != nil {
					return fmt.Errorf("pick %d: %w", i+1, err)
				}
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of paths to print")
	return cmd
}
