package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"photowall/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PhotoDir = filepath.Join(base, "photos")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.Workers = 2
	cfgVal.Metrics.Bind = ""
	cfgVal.Frames = []config.Frame{{Name: "test", Rows: 2, Columns: 2, Width: 200, Height: 100}}

	if err := os.MkdirAll(cfgVal.Paths.PhotoDir, 0o755); err != nil {
		t.Fatalf("mkdir photo dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFrame replaces the configured frames with a single grid.
func WithFrame(name string, rows, columns, width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Frames = []config.Frame{{Name: name, Rows: rows, Columns: columns, Width: width, Height: height}}
	}
}

// WithFrameSnapshots enables PNG output for every configured frame.
func WithFrameSnapshots() ConfigOption {
	return func(b *configBuilder) {
		for i := range b.cfg.Frames {
			b.cfg.Frames[i].OutputDir = filepath.Join(b.baseDir, "frames", b.cfg.Frames[i].Name)
		}
	}
}

// WithAdvance overrides the auto-advance cadence and grace period.
func WithAdvance(intervalMs, graceMs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Advance.IntervalMs = intervalMs
		b.cfg.Advance.GracePeriodMs = graceMs
	}
}

// WithSweep overrides the engine sweep cadence.
func WithSweep(intervalMs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.SweepIntervalMs = intervalMs
	}
}

// WithoutJournal disables the delivery journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
