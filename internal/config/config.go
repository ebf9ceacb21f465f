package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	PhotoDir string `toml:"photo_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Rotation controls how candidate photo paths are produced.
type Rotation struct {
	Mode            string `toml:"mode"`
	RewriteSuffix   string `toml:"rewrite_suffix"`
	ExhaustedPolicy string `toml:"exhausted_policy"`
	WatchBlacklist  bool   `toml:"watch_blacklist"`
}

// Engine contains demand engine timing and pool sizing.
type Engine struct {
	SweepIntervalMs   int `toml:"sweep_interval_ms"`
	Workers           int `toml:"workers"`
	FailureThreshold  int `toml:"failure_threshold"`
	RunTimeoutSeconds int `toml:"run_timeout_seconds"`
}

// Advance contains auto-advance scheduling.
type Advance struct {
	IntervalMs    int  `toml:"interval_ms"`
	GracePeriodMs int  `toml:"grace_period_ms"`
	StartPaused   bool `toml:"start_paused"`
}

// Metrics contains the metrics/health listener configuration. An empty bind
// disables the listener.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Journal contains the delivery history configuration.
type Journal struct {
	Enabled     bool `toml:"enabled"`
	KeepEntries int  `toml:"keep_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	FileLevel     string `toml:"file_level"`
	RetentionDays int    `toml:"retention_days"`
}

// Frame describes one headless display grid.
type Frame struct {
	Name      string `toml:"name"`
	Rows      int    `toml:"rows"`
	Columns   int    `toml:"columns"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	OutputDir string `toml:"output_dir"`
}

// Config encapsulates all configuration values for photowall.
//
// Configuration sections by subsystem:
//   - Paths: photo tree, daemon state and log directories
//   - Rotation: path source mode, rewrite suffix and exhaustion policy
//   - Engine: sweep cadence, worker pool, circuit breaker and run timeout
//   - Advance: auto-advance cadence and grace period
//   - Metrics: Prometheus/health listener
//   - Journal: sqlite delivery history
//   - Logging: log format, level, and retention
//   - Frames: headless display grids managed by the daemon
type Config struct {
	Paths    Paths    `toml:"paths"`
	Rotation Rotation `toml:"rotation"`
	Engine   Engine   `toml:"engine"`
	Advance  Advance  `toml:"advance"`
	Metrics  Metrics  `toml:"metrics"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
	Frames   []Frame  `toml:"frames"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
			return nil, "", false, err
		}

		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv populates unset environment variables from a .env file in dir.
// Existing variables win; a missing file is not an error.
func loadDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load env file %s: %w", envPath, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photowall.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// photo directory is never created; it must already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, frame := range c.Frames {
		if strings.TrimSpace(frame.OutputDir) == "" {
			continue
		}
		if err := os.MkdirAll(frame.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create frame output directory %q: %w", frame.OutputDir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "photowall.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "photowall.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "photowall.pid")
}

// JournalPath returns the sqlite delivery journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// SweepInterval returns the demand engine sweep cadence.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Engine.SweepIntervalMs) * time.Millisecond
}

// RunTimeout returns the per-run deadline; zero disables it.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Engine.RunTimeoutSeconds) * time.Second
}

// AdvanceInterval returns the auto-advance tick cadence.
func (c *Config) AdvanceInterval() time.Duration {
	return time.Duration(c.Advance.IntervalMs) * time.Millisecond
}

// GracePeriod returns the minimum age of a delivered image before it may be replaced.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Advance.GracePeriodMs) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	encoder := toml.NewEncoder(&b)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
