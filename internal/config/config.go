// Package config loads the optional mclog TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mclog/mclog-go/internal/safefile"
)

// Environment variables that override file values.
const (
	EnvFormat    = "MCLOG_FORMAT"
	EnvLogLevel  = "MCLOG_LOG_LEVEL"
	EnvServerDir = "MCLOG_SERVER_DIR"
)

// MaxConfigFileSize is the largest config file Load accepts.
const MaxConfigFileSize = 64 * 1024

// Output formats.
const (
	FormatPretty   = "pretty"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config represents the configuration stored in config.toml.
type Config struct {
	Output  OutputConfig  `toml:"output"`
	Analyze AnalyzeConfig `toml:"analyze"`
	Watch   WatchConfig   `toml:"watch"`
}

// OutputConfig controls how results and diagnostics are printed.
type OutputConfig struct {
	// Format is one of "pretty", "markdown" or "json".
	// Defaults to "pretty" when not specified.
	Format string `toml:"format"`

	// LogLevel is the stderr log level ("debug", "info", "warn", "error").
	LogLevel string `toml:"log_level"`
}

// GetFormat returns the configured output format or "pretty" when the value
// is empty or unknown.
func (o *OutputConfig) GetFormat() string {
	switch o.Format {
	case FormatPretty, FormatMarkdown, FormatJSON:
		return o.Format
	default:
		return FormatPretty
	}
}

// GetLogLevel returns the configured log level or "warn".
func (o *OutputConfig) GetLogLevel() string {
	if o.LogLevel == "" {
		return "warn"
	}
	return o.LogLevel
}

// AnalyzeConfig contains settings shared by analyze and watch.
type AnalyzeConfig struct {
	// Rules lists YAML rule files loaded in addition to the built-in rules.
	// Relative paths are resolved against the config file's directory.
	Rules []string `toml:"rules"`

	// Plugins lists Wasm plugin files. Relative paths are resolved like Rules.
	Plugins []string `toml:"plugins"`

	// PluginTimeoutMS is the per-call plugin timeout in milliseconds.
	// Defaults to 250 when not specified.
	PluginTimeoutMS *int `toml:"plugin_timeout_ms"`

	// Jobs is the number of files analyzed concurrently.
	// Defaults to 4 when not specified.
	Jobs *int `toml:"jobs"`

	// NoBuiltin disables the built-in parsers and processors.
	NoBuiltin bool `toml:"no_builtin"`
}

// GetPluginTimeout returns the plugin call timeout.
func (a *AnalyzeConfig) GetPluginTimeout() time.Duration {
	if a.PluginTimeoutMS == nil || *a.PluginTimeoutMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(*a.PluginTimeoutMS) * time.Millisecond
}

// GetJobs returns the analysis concurrency.
func (a *AnalyzeConfig) GetJobs() int {
	if a.Jobs == nil || *a.Jobs <= 0 {
		return 4
	}
	return *a.Jobs
}

// WatchConfig contains settings for the watch command.
type WatchConfig struct {
	// ServerDir is the Minecraft server directory whose logs/latest.log is
	// followed when no file is given.
	ServerDir string `toml:"server_dir"`

	// QuietPeriodMS is how long the input must stay idle before buffered
	// lines are analyzed. Defaults to 2000.
	QuietPeriodMS *int `toml:"quiet_period_ms"`

	// MaxLines flushes the buffer once it holds this many lines.
	// Defaults to 2000.
	MaxLines *int `toml:"max_lines"`

	// DedupTTLSeconds suppresses repeated diagnostics for this long.
	// Defaults to 600. Zero disables suppression.
	DedupTTLSeconds *int `toml:"dedup_ttl_seconds"`
}

// GetQuietPeriod returns the excerpt quiet period.
func (w *WatchConfig) GetQuietPeriod() time.Duration {
	if w.QuietPeriodMS == nil || *w.QuietPeriodMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(*w.QuietPeriodMS) * time.Millisecond
}

// GetMaxLines returns the excerpt line limit.
func (w *WatchConfig) GetMaxLines() int {
	if w.MaxLines == nil || *w.MaxLines <= 0 {
		return 2000
	}
	return *w.MaxLines
}

// GetDedupTTL returns how long repeated diagnostics are suppressed.
func (w *WatchConfig) GetDedupTTL() time.Duration {
	if w.DedupTTLSeconds == nil || *w.DedupTTLSeconds < 0 {
		return 10 * time.Minute
	}
	return time.Duration(*w.DedupTTLSeconds) * time.Second
}

// DefaultPath returns the per-user config location,
// $XDG_CONFIG_HOME/mclog/config.toml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mclog", "config.toml"), nil
}

// Load reads and parses the config file at path. Unknown keys are rejected.
// Relative rule and plugin paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := safefile.ReadRegular(path, MaxConfigFileSize)
	if err != nil {
		if errors.Is(err, safefile.ErrTooLarge) {
			return nil, fmt.Errorf("config file too large (max %d bytes)", MaxConfigFileSize)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	cfg.Analyze.Rules = resolvePaths(base, cfg.Analyze.Rules)
	cfg.Analyze.Plugins = resolvePaths(base, cfg.Analyze.Plugins)
	return cfg, nil
}

// LoadDefault loads the config at DefaultPath. A missing file yields an
// empty Config.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return &Config{}, nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// Parse decodes TOML text into a Config.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if f := cfg.Output.Format; f != "" && f != cfg.Output.GetFormat() {
		return nil, fmt.Errorf("invalid output.format %q (want pretty, markdown or json)", f)
	}
	return &cfg, nil
}

// ApplyEnv overrides config values with the MCLOG_* environment variables
// reported by getenv. A nil getenv uses os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvFormat)); v != "" {
		c.Output.Format = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Output.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvServerDir)); v != "" {
		c.Watch.ServerDir = v
	}
}

func resolvePaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}
