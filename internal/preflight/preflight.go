package preflight

import (
	"context"
	"fmt"

	"photowall/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Photo directory", cfg.Paths.PhotoDir),
		CheckPhotoSource(cfg),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, frame := range cfg.Frames {
		if frame.OutputDir == "" {
			continue
		}
		results = append(results, CheckDirectoryAccess(fmt.Sprintf("Frame %s output", frame.Name), frame.OutputDir))
	}

	if cfg.Metrics.Bind != "" {
		results = append(results, CheckBindAddress(cfg.Metrics.Bind))
	}

	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
