package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRotation(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateAdvance(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	return c.validateFrames()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.PhotoDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.photo_dir is required. Set %s or edit %s (create with 'photowall config init')", EnvPhotoDir, defaultPath)
	}
	return nil
}

func (c *Config) validateRotation() error {
	switch c.Rotation.Mode {
	case RotationRandom, RotationSequential:
	default:
		return fmt.Errorf("rotation.mode: unsupported value %q (want %q or %q)", c.Rotation.Mode, RotationRandom, RotationSequential)
	}
	switch c.Rotation.ExhaustedPolicy {
	case ExhaustedReset, ExhaustedFail:
	default:
		return fmt.Errorf("rotation.exhausted_policy: unsupported value %q (want %q or %q)", c.Rotation.ExhaustedPolicy, ExhaustedReset, ExhaustedFail)
	}
	if strings.ContainsAny(c.Rotation.RewriteSuffix, `/\*?[`) {
		return fmt.Errorf("rotation.rewrite_suffix: %q must not contain path separators or glob characters", c.Rotation.RewriteSuffix)
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := ensurePositiveMap(map[string]int{
		"engine.sweep_interval_ms": c.Engine.SweepIntervalMs,
		"engine.workers":           c.Engine.Workers,
		"engine.failure_threshold": c.Engine.FailureThreshold,
	}); err != nil {
		return err
	}
	if c.Engine.RunTimeoutSeconds < 0 {
		return errors.New("engine.run_timeout_seconds must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateAdvance() error {
	if c.Advance.IntervalMs <= 0 {
		return errors.New("advance.interval_ms must be positive")
	}
	if c.Advance.GracePeriodMs < 0 {
		return errors.New("advance.grace_period_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.FileLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.file_level: unsupported value %q", c.Logging.FileLevel)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateJournal() error {
	if c.Journal.KeepEntries < 0 {
		return errors.New("journal.keep_entries must not be negative")
	}
	return nil
}

func (c *Config) validateFrames() error {
	seen := make(map[string]struct{}, len(c.Frames))
	for i, frame := range c.Frames {
		if _, dup := seen[frame.Name]; dup {
			return fmt.Errorf("frames[%d].name: duplicate frame %q", i, frame.Name)
		}
		seen[frame.Name] = struct{}{}
		if strings.Contains(frame.Name, ":") {
			return fmt.Errorf("frames[%d].name: %q must not contain ':'", i, frame.Name)
		}
		if err := ensurePositiveMap(map[string]int{
			fmt.Sprintf("frames[%d].rows", i):    frame.Rows,
			fmt.Sprintf("frames[%d].columns", i): frame.Columns,
			fmt.Sprintf("frames[%d].width", i):   frame.Width,
			fmt.Sprintf("frames[%d].height", i):  frame.Height,
		}); err != nil {
			return err
		}
		if frame.Width < frame.Columns || frame.Height < frame.Rows {
			return fmt.Errorf("frames[%d]: %dx%d is too small for a %dx%d grid", i, frame.Width, frame.Height, frame.Columns, frame.Rows)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
