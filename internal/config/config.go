package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wgwatch/internal/model"
)

const (
	DefaultInterface      = "wg0"
	DefaultInterval       = 2 * time.Second
	DefaultCommandTimeout = 5 * time.Second
	DefaultWGBinary       = "wg"
	DefaultLogLevel       = "info"
	DefaultUnhealthyAfter = 3
)

// Config holds monitor settings.
type Config struct {
	Interface      string            `yaml:"interface"`
	Interval       Duration          `yaml:"interval"`
	CommandTimeout Duration          `yaml:"command_timeout"`
	WGBinary       string            `yaml:"wg_binary"`
	LinkCounters   bool              `yaml:"link_counters"`
	LogLevel       string            `yaml:"log_level"`
	SamplesPath    string            `yaml:"samples_path,omitempty"`
	UnhealthyAfter int               `yaml:"unhealthy_after"`
	HTTP           HTTPConfig        `yaml:"http"`
	Peers          map[string]string `yaml:"peers,omitempty"`
	Thresholds     model.Thresholds  `yaml:"thresholds,omitempty"`
}

// HTTPConfig controls the status API. An empty Listen disables it.
type HTTPConfig struct {
	Listen  string `yaml:"listen,omitempty"`
	Metrics bool   `yaml:"metrics"`
}

// Duration is a time.Duration that reads and writes as "2s", "500ms", ...
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks required fields and threshold bands.
func Validate(cfg Config) error {
	if cfg.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if strings.ContainsAny(cfg.Interface, " \t/") {
		return fmt.Errorf("interface %q is not a device name", cfg.Interface)
	}
	if cfg.Interval.Std() <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if cfg.CommandTimeout.Std() <= 0 {
		return fmt.Errorf("command_timeout must be positive")
	}
	if cfg.CommandTimeout.Std() > cfg.Interval.Std() {
		return fmt.Errorf("command_timeout (%s) must not exceed interval (%s)", cfg.CommandTimeout.Std(), cfg.Interval.Std())
	}
	for key, band := range cfg.Thresholds {
		if err := band.Validate(); err != nil {
			return fmt.Errorf("thresholds.%s: %w", key, err)
		}
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Interface == "" {
		cfg.Interface = DefaultInterface
	}
	if cfg.Interval == 0 {
		cfg.Interval = Duration(DefaultInterval)
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = Duration(DefaultCommandTimeout)
		if cfg.CommandTimeout > cfg.Interval {
			cfg.CommandTimeout = cfg.Interval
		}
	}
	if cfg.WGBinary == "" {
		cfg.WGBinary = DefaultWGBinary
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.UnhealthyAfter <= 0 {
		cfg.UnhealthyAfter = DefaultUnhealthyAfter
	}
}

// ParseLogLevel returns the slog level for LogLevel, falling back to info.
func (c Config) ParseLogLevel() slog.Level {
	lvl, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}

// PeerName returns the configured alias for a public key, or a shortened key
// that fits width ("_" + tail when truncated).
func (c Config) PeerName(pubKey string, width int) string {
	if name, ok := c.Peers[pubKey]; ok && name != "" {
		return name
	}
	if width <= 1 || len(pubKey) <= width {
		return pubKey
	}
	return "_" + pubKey[len(pubKey)-width+1:]
}
