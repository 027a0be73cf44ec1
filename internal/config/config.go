// Package config provides unified configuration loading for simverify.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/simverify/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all simverify configuration settings.
type Config struct {
	// Results locates the simulator's result artifacts.
	Results ResultsConfig `json:"results" yaml:"results"`

	// Threshold is the minimum pass rate for the partial-success tier.
	// Range: (0, 1]
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Logging contains settings for operational and verdict logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// History controls the SQLite run history.
	History HistoryConfig `json:"history" yaml:"history"`

	// Metrics controls the Prometheus textfile export.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Integrity controls checksum and signature verification of the results directory.
	Integrity IntegrityConfig `json:"integrity" yaml:"integrity"`

	// Output controls console rendering.
	Output OutputConfig `json:"output" yaml:"output"`

	// Watch controls watch mode.
	Watch WatchConfig `json:"watch" yaml:"watch"`
}

// ResultsConfig locates the results directory and manifest.
type ResultsConfig struct {
	// Dir is the results directory. Relative paths resolve against the
	// working directory.
	Dir string `json:"dir" yaml:"dir"`

	// ManifestFile is an optional YAML manifest replacing the built-in one.
	ManifestFile string `json:"manifest_file,omitempty" yaml:"manifest_file,omitempty"`
}

// LoggingConfig configures simverify's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables verdict logging to ~/.simverify/verdicts.jsonl.
	Level string `json:"level" yaml:"level"`
}

// HistoryConfig configures run history.
type HistoryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir holds history.db. Empty means the state directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// MaxRuns prunes all but the newest MaxRuns runs. Zero keeps every run.
	MaxRuns int `json:"max_runs,omitempty" yaml:"max_runs,omitempty"`

	// MaxAge prunes runs older than this, e.g. "720h", "30d" or "2w".
	// Empty keeps runs regardless of age.
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// MaxAgeDuration returns MaxAge parsed, or zero when unset or invalid.
// Validate reports invalid values.
func (c HistoryConfig) MaxAgeDuration() time.Duration {
	if c.MaxAge == "" {
		return 0
	}
	d, err := ParseAge(c.MaxAge)
	if err != nil {
		return 0
	}
	return d
}

// ParseAge parses durations like "30d", "2w" or any time.ParseDuration form.
func ParseAge(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	// Try standard Go duration first (e.g., "720h")
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	// Parse custom suffixes: d (days), w (weeks)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is the path of the Prometheus textfile written after each
	// run. Empty disables export.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// IntegrityConfig configures results directory verification. All paths
// except Keyring are relative to the results directory unless absolute.
type IntegrityConfig struct {
	// ChecksumsFile lists "<sha256>  <name>" lines. Empty disables verification.
	ChecksumsFile string `json:"checksums_file,omitempty" yaml:"checksums_file,omitempty"`

	// SignatureFile is an armored detached signature over ChecksumsFile.
	SignatureFile string `json:"signature_file,omitempty" yaml:"signature_file,omitempty"`

	// Keyring is an armored public keyring used to check SignatureFile.
	Keyring string `json:"keyring,omitempty" yaml:"keyring,omitempty"`
}

// Enabled reports whether checksum verification is configured.
func (c IntegrityConfig) Enabled() bool {
	return c.ChecksumsFile != ""
}

// SignatureEnabled reports whether signature verification is configured.
func (c IntegrityConfig) SignatureEnabled() bool {
	return c.ChecksumsFile != "" && c.SignatureFile != "" && c.Keyring != ""
}

// OutputConfig configures console output.
type OutputConfig struct {
	// Color is "auto" (default), "always" or "never".
	Color string `json:"color" yaml:"color"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long to wait for writes to settle before re-running.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Results: ResultsConfig{
			Dir: constants.DefaultResultsDir,
		},
		Threshold: constants.DefaultPassThreshold,
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Color: "auto",
		},
		Watch: WatchConfig{
			Debounce: constants.DefaultWatchDebounce,
		},
	}
}

// StateDir returns ~/.simverify, or "" when the home directory is unknown.
func StateDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, constants.StateDirName)
}

// HistoryDir returns the directory that holds history.db.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	return StateDir()
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.simverify/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if stateDir := StateDir(); stateDir != "" {
		configPath := filepath.Join(stateDir, constants.ConfigFileName)
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadWithFile loads configuration from an explicit file instead of the
// default location. Environment variables still override.
func LoadWithFile(path string) (*Config, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Results.Dir = expandEnvVars(config.Results.Dir)
	config.History.Dir = expandEnvVars(config.History.Dir)
	config.Metrics.Textfile = expandEnvVars(config.Metrics.Textfile)
	config.Integrity.Keyring = expandEnvVars(config.Integrity.Keyring)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %g", c.Threshold)
	}

	if c.Results.Dir == "" {
		return fmt.Errorf("results.dir must not be empty")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if c.Output.Color != "" && !validColors[c.Output.Color] {
		return fmt.Errorf("invalid color mode: %s (valid: auto, always, never)", c.Output.Color)
	}

	if c.History.MaxRuns < 0 {
		return fmt.Errorf("history.max_runs must be non-negative, got %d", c.History.MaxRuns)
	}
	if c.History.MaxAge != "" {
		d, err := ParseAge(c.History.MaxAge)
		if err != nil {
			return fmt.Errorf("history.max_age: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("history.max_age must be positive, got %s", c.History.MaxAge)
		}
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be non-negative, got %v", c.Watch.Debounce)
	}

	if (c.Integrity.SignatureFile != "") != (c.Integrity.Keyring != "") {
		return fmt.Errorf("integrity.signature_file and integrity.keyring must be set together")
	}
	if c.Integrity.SignatureFile != "" && c.Integrity.ChecksumsFile == "" {
		return fmt.Errorf("integrity.signature_file requires integrity.checksums_file")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SIMVERIFY_RESULTS_DIR"); v != "" {
		config.Results.Dir = v
	}

	if v := os.Getenv("SIMVERIFY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Threshold = f
		}
	}

	if v := os.Getenv("SIMVERIFY_LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv("SIMVERIFY_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.History.Enabled = b
		}
	}

	if v := os.Getenv("SIMVERIFY_METRICS_TEXTFILE"); v != "" {
		config.Metrics.Textfile = v
	}

	if v := os.Getenv("SIMVERIFY_KEYRING"); v != "" {
		config.Integrity.Keyring = v
	}

	if v := os.Getenv("SIMVERIFY_COLOR"); v != "" {
		config.Output.Color = strings.ToLower(v)
	}

	// https://no-color.org: any non-empty value disables colour.
	if os.Getenv("NO_COLOR") != "" {
		config.Output.Color = "never"
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
