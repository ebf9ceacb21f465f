package config

const (
	defaultConfigPath       = "~/.config/photowall/config.toml"
	defaultPhotoDir         = "~/Pictures"
	defaultStateDir         = "~/.local/share/photowall"
	defaultLogDir           = "~/.local/share/photowall/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultRotationMode    = RotationRandom
	defaultRewriteSuffix   = "_rewrite"
	defaultExhaustedPolicy = ExhaustedReset

	defaultSweepIntervalMs   = 100
	defaultFailureThreshold  = 3
	defaultRunTimeoutSeconds = 30

	defaultAdvanceIntervalMs = 3000
	defaultGracePeriodMs     = 2500

	defaultMetricsBind        = "127.0.0.1:7491"
	defaultJournalKeepEntries = 5000

	defaultFrameName    = "main"
	defaultFrameRows    = 2
	defaultFrameColumns = 2
	defaultFrameWidth   = 1920
	defaultFrameHeight  = 1080
)

// Rotation modes.
const (
	RotationRandom     = "random"
	RotationSequential = "sequential"
)

// Exhaustion policies for the random walk.
const (
	ExhaustedReset = "reset"
	ExhaustedFail  = "fail"
)

// EnvPhotoDir overrides paths.photo_dir when set.
const EnvPhotoDir = "PHOTOWALL_PHOTO_DIR"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PhotoDir: defaultPhotoDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Rotation: Rotation{
			Mode:            defaultRotationMode,
			RewriteSuffix:   defaultRewriteSuffix,
			ExhaustedPolicy: defaultExhaustedPolicy,
			WatchBlacklist:  true,
		},
		Engine: Engine{
			SweepIntervalMs:   defaultSweepIntervalMs,
			FailureThreshold:  defaultFailureThreshold,
			RunTimeoutSeconds: defaultRunTimeoutSeconds,
		},
		Advance: Advance{
			IntervalMs:    defaultAdvanceIntervalMs,
			GracePeriodMs: defaultGracePeriodMs,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
		Journal: Journal{
			Enabled:     true,
			KeepEntries: defaultJournalKeepEntries,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultFrame() Frame {
	return Frame{
		Name:    defaultFrameName,
		Rows:    defaultFrameRows,
		Columns: defaultFrameColumns,
		Width:   defaultFrameWidth,
		Height:  defaultFrameHeight,
	}
}
