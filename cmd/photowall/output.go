package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// addJSONFlag registers the shared --json switch on cmd.
func addJSONFlag(cmd *cobra.Command, target *bool, what string) {
	cmd.Flags().BoolVar(target, "json", false, "Emit "+what+" as JSON")
}

// emit writes v as indented JSON when asJSON is set; otherwise render draws
// the human view on the command's stdout.
func emit(cmd *cobra.Command, asJSON bool, v any, render func(io.Writer) error) error {
	out := cmd.OutOrStdout()
	if !asJSON {
		return render(out)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
