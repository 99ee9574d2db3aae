// Package config provides configuration management for baton.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (BATON_*)
// 3. Project config (.baton/config.yaml in the project root)
// 4. Home config (~/.baton/config.yaml)
// 5. Defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all baton configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables diagnostics on stderr.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Delegation settings
	Delegation DelegationConfig `yaml:"delegation" json:"delegation"`

	// State settings
	State StateConfig `yaml:"state" json:"state"`

	// Log settings
	Log LogConfig `yaml:"log" json:"log"`
}

// DelegationConfig holds the sliding window and thresholds.
type DelegationConfig struct {
	// WindowSeconds is the sliding window length.
	// Default: 600
	WindowSeconds int `yaml:"window_seconds" json:"window_seconds"`

	// WarnThreshold is the count at which the elevated warning starts.
	// Default: 3
	WarnThreshold int `yaml:"warn_threshold" json:"warn_threshold"`

	// BlockThreshold is the count at which work tools are denied.
	// Default: 5
	BlockThreshold int `yaml:"block_threshold" json:"block_threshold"`
}

// Window returns the window as a duration.
func (d DelegationConfig) Window() time.Duration {
	return time.Duration(d.WindowSeconds) * time.Second
}

// Keying strategies for state files.
const (
	KeyingProject = "project"
	KeyingSession = "session"
)

// StateConfig holds counter persistence settings.
type StateConfig struct {
	// Dir is where state files live.
	// Default: os.TempDir()
	Dir string `yaml:"dir" json:"dir"`

	// Keying selects how state files are keyed: "project" (hash of the
	// project directory) or "session" (hash of CLAUDE_SESSION_ID).
	// Default: project
	Keying string `yaml:"keying" json:"keying"`
}

// LogConfig holds decision log settings.
type LogConfig struct {
	// Debug forces the decision log on.
	Debug bool `yaml:"debug" json:"debug"`

	// Path is the decision log, relative to the project root unless absolute.
	// Default: .claude/logs/hook-debug.jsonl
	Path string `yaml:"path" json:"path"`

	// Level is the minimum zerolog level (debug, info, warn, error).
	// Default: info
	Level string `yaml:"level" json:"level"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput         = "table"
	defaultWindowSeconds  = 600
	defaultWarnThreshold  = 3
	defaultBlockThreshold = 5
	defaultLogPath        = ".claude/logs/hook-debug.jsonl"
	defaultLogLevel       = "info"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:  defaultOutput,
		Verbose: false,
		Delegation: DelegationConfig{
			WindowSeconds:  defaultWindowSeconds,
			WarnThreshold:  defaultWarnThreshold,
			BlockThreshold: defaultBlockThreshold,
		},
		State: StateConfig{
			Dir:    os.TempDir(),
			Keying: KeyingProject,
		},
		Log: LogConfig{
			Path:  defaultLogPath,
			Level: defaultLogLevel,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(projectDir string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, err := loadFromPath(homeConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load home config: %w", err)
	}
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, err := loadFromPath(projectConfigPath(projectDir))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load project config: %w", err)
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// LoadOrDefault is Load for hook paths: any error yields the defaults with
// env applied, because a bad config file must never block a tool call.
func LoadOrDefault(projectDir string, flagOverrides *Config) (*Config, error) {
	cfg, err := Load(projectDir, flagOverrides)
	if err == nil {
		err = cfg.Validate()
	}
	if err == nil {
		return cfg, nil
	}
	fallback := applyEnv(Default())
	if flagOverrides != nil {
		fallback = merge(fallback, flagOverrides)
	}
	if fallback.Validate() != nil {
		fallback = Default()
	}
	return fallback, err
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	d := c.Delegation
	if d.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds=%d", ErrInvalidWindow, d.WindowSeconds)
	}
	if d.WarnThreshold <= 0 || d.BlockThreshold <= 0 {
		return fmt.Errorf("%w: warn=%d block=%d", ErrInvalidThreshold, d.WarnThreshold, d.BlockThreshold)
	}
	if d.WarnThreshold >= d.BlockThreshold {
		return fmt.Errorf("%w: warn=%d block=%d", ErrWarnNotBelowBlock, d.WarnThreshold, d.BlockThreshold)
	}
	switch c.State.Keying {
	case KeyingProject, KeyingSession:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKeying, c.State.Keying)
	}
	return nil
}

// LogPath resolves the decision log path against the project root.
func (c *Config) LogPath(projectDir string) string {
	if filepath.IsAbs(c.Log.Path) {
		return c.Log.Path
	}
	return filepath.Join(projectDir, c.Log.Path)
}

// Paths returns the home and project config file locations.
func Paths(projectDir string) (home, project string) {
	return homeConfigPath(), projectConfigPath(projectDir)
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".baton", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath(projectDir string) string {
	if override := strings.TrimSpace(os.Getenv("BATON_CONFIG")); override != "" {
		return override
	}
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		projectDir = cwd
	}
	return filepath.Join(projectDir, ".baton", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("BATON_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if os.Getenv("BATON_VERBOSE") == "true" || os.Getenv("BATON_VERBOSE") == "1" {
		cfg.Verbose = true
	}
	if n, ok := getEnvInt("BATON_WINDOW_SECONDS"); ok {
		cfg.Delegation.WindowSeconds = n
	}
	if n, ok := getEnvInt("BATON_WARN_THRESHOLD"); ok {
		cfg.Delegation.WarnThreshold = n
	}
	if n, ok := getEnvInt("BATON_BLOCK_THRESHOLD"); ok {
		cfg.Delegation.BlockThreshold = n
	}
	if v := os.Getenv("BATON_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("BATON_STATE_KEYING"); v != "" {
		cfg.State.Keying = strings.ToLower(v)
	}
	if v, ok := getEnvBool("BATON_LOG_DEBUG"); ok {
		cfg.Log.Debug = v
	}
	if v := os.Getenv("BATON_LOG_PATH"); v != "" {
		cfg.Log.Path = v
	}
	if v := os.Getenv("BATON_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Booleans can only be switched on by a higher layer.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeInt(&dst.Delegation.WindowSeconds, src.Delegation.WindowSeconds)
	mergeInt(&dst.Delegation.WarnThreshold, src.Delegation.WarnThreshold)
	mergeInt(&dst.Delegation.BlockThreshold, src.Delegation.BlockThreshold)

	mergeStr(&dst.State.Dir, src.State.Dir)
	mergeStr(&dst.State.Keying, src.State.Keying)

	if src.Log.Debug {
		dst.Log.Debug = true
	}
	mergeStr(&dst.Log.Path, src.Log.Path)
	mergeStr(&dst.Log.Level, src.Log.Level)

	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.baton/config.yaml"
	SourceProject Source = ".baton/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvInt returns the integer value and whether it parsed.
func getEnvInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// getEnvBool returns the boolean value and whether the env var was set.
func getEnvBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

type resolved struct {
	Value  interface{} `json:"value" yaml:"value"`
	Source Source      `json:"source" yaml:"source"`
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output         resolved `json:"output" yaml:"output"`
	WindowSeconds  resolved `json:"window_seconds" yaml:"window_seconds"`
	WarnThreshold  resolved `json:"warn_threshold" yaml:"warn_threshold"`
	BlockThreshold resolved `json:"block_threshold" yaml:"block_threshold"`
	StateDir       resolved `json:"state_dir" yaml:"state_dir"`
	StateKeying    resolved `json:"state_keying" yaml:"state_keying"`
	LogPath        resolved `json:"log_path" yaml:"log_path"`
	LogLevel       resolved `json:"log_level" yaml:"log_level"`
}

// layer is one config source in precedence order.
type layer struct {
	src Source
	cfg *Config
}

// resolveField walks layers low to high; the last non-empty value wins.
func resolveField(def interface{}, layers []layer, get func(*Config) interface{}) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	for _, l := range layers {
		if l.cfg == nil {
			continue
		}
		v := get(l.cfg)
		switch x := v.(type) {
		case string:
			if x == "" {
				continue
			}
		case int:
			if x == 0 {
				continue
			}
		}
		result = resolved{Value: v, Source: l.src}
	}
	return result
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(projectDir string, flags *Config) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath(projectDir))
	envConfig := applyEnv(&Config{})

	layers := []layer{
		{SourceHome, homeConfig},
		{SourceProject, projectConfig},
		{SourceEnv, envConfig},
		{SourceFlag, flags},
	}
	def := Default()

	return &ResolvedConfig{
		Output:         resolveField(def.Output, layers, func(c *Config) interface{} { return c.Output }),
		WindowSeconds:  resolveField(def.Delegation.WindowSeconds, layers, func(c *Config) interface{} { return c.Delegation.WindowSeconds }),
		WarnThreshold:  resolveField(def.Delegation.WarnThreshold, layers, func(c *Config) interface{} { return c.Delegation.WarnThreshold }),
		BlockThreshold: resolveField(def.Delegation.BlockThreshold, layers, func(c *Config) interface{} { return c.Delegation.BlockThreshold }),
		StateDir:       resolveField(def.State.Dir, layers, func(c *Config) interface{} { return c.State.Dir }),
		StateKeying:    resolveField(def.State.Keying, layers, func(c *Config) interface{} { return c.State.Keying }),
		LogPath:        resolveField(def.Log.Path, layers, func(c *Config) interface{} { return c.Log.Path }),
		LogLevel:       resolveField(def.Log.Level, layers, func(c *Config) interface{} { return c.Log.Level }),
	}
}
