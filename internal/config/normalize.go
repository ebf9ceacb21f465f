package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRotation()
	c.normalizeEngine()
	c.normalizeLogging()
	return c.normalizeFrames()
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(EnvPhotoDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.PhotoDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.PhotoDir, err = expandPath(c.Paths.PhotoDir); err != nil {
		return fmt.Errorf("paths.photo_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizeRotation() {
	c.Rotation.Mode = strings.ToLower(strings.TrimSpace(c.Rotation.Mode))
	if c.Rotation.Mode == "" {
		c.Rotation.Mode = defaultRotationMode
	}
	c.Rotation.ExhaustedPolicy = strings.ToLower(strings.TrimSpace(c.Rotation.ExhaustedPolicy))
	if c.Rotation.ExhaustedPolicy == "" {
		c.Rotation.ExhaustedPolicy = defaultExhaustedPolicy
	}
	c.Rotation.RewriteSuffix = strings.TrimSpace(c.Rotation.RewriteSuffix)
}

func (c *Config) normalizeEngine() {
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
	c.Logging.FileLevel = strings.ToLower(strings.TrimSpace(c.Logging.FileLevel))
}

func (c *Config) normalizeFrames() error {
	if len(c.Frames) == 0 {
		c.Frames = []Frame{defaultFrame()}
	}
	for i := range c.Frames {
		frame := &c.Frames[i]
		frame.Name = strings.TrimSpace(frame.Name)
		if frame.Name == "" {
			frame.Name = fmt.Sprintf("frame%d", i+1)
		}
		if strings.TrimSpace(frame.OutputDir) == "" {
			frame.OutputDir = ""
			continue
		}
		expanded, err := expandPath(frame.OutputDir)
		if err != nil {
			return fmt.Errorf("frames[%d].output_dir: %w", i, err)
		}
		frame.OutputDir = expanded
	}
	return nil
}
