package rotation

import (
	"fmt"
	"log/slog"

	"photowall/internal/config"
)

// Source produces candidate photo paths on demand. Implementations are safe
// for concurrent use.
type Source interface {
	Next() (string, error)
}

// FromConfig builds the Source selected by rotation.mode.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Source, error) {
	switch cfg.Rotation.Mode {
	case config.RotationRandom:
		return NewRandomWalk(cfg.Paths.PhotoDir,
			WithRewriteSuffix(cfg.Rotation.RewriteSuffix),
			WithResetOnExhaust(cfg.Rotation.ExhaustedPolicy == config.ExhaustedReset),
			WithLogger(logger),
		), nil
	case config.RotationSequential:
		return NewSequential(cfg.Paths.PhotoDir, cfg.Rotation.RewriteSuffix, logger), nil
	default:
		return nil, fmt.Errorf("rotation mode %q is not supported", cfg.Rotation.Mode)
	}
}
