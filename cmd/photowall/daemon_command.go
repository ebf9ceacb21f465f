package main

import (
	"github.com/spf13/cobra"

	"photowall/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var stdout bool
	var development bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the photowall daemon in the foreground",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(),
				Development: development,
				Stdout:      stdout,
			})
		},
	}
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write console logs to stdout instead of stderr")
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in log records")
	return cmd
}
