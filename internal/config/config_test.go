package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME and BATON_CONFIG away from the developer's real files.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BATON_CONFIG", "")
	for _, k := range []string{
		"BATON_OUTPUT", "BATON_VERBOSE", "BATON_WINDOW_SECONDS", "BATON_WARN_THRESHOLD",
		"BATON_BLOCK_THRESHOLD", "BATON_STATE_DIR", "BATON_STATE_KEYING",
		"BATON_LOG_DEBUG", "BATON_LOG_PATH", "BATON_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Output != "table" {
		t.Errorf("Default Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.Delegation.WindowSeconds != 600 {
		t.Errorf("Default WindowSeconds = %d, want 600", cfg.Delegation.WindowSeconds)
	}
	if cfg.Delegation.WarnThreshold != 3 || cfg.Delegation.BlockThreshold != 5 {
		t.Errorf("Default thresholds = %d/%d, want 3/5", cfg.Delegation.WarnThreshold, cfg.Delegation.BlockThreshold)
	}
	if cfg.State.Keying != KeyingProject {
		t.Errorf("Default Keying = %q, want %q", cfg.State.Keying, KeyingProject)
	}
	if cfg.State.Dir != os.TempDir() {
		t.Errorf("Default State.Dir = %q, want %q", cfg.State.Dir, os.TempDir())
	}
	if cfg.Log.Debug {
		t.Error("Default Log.Debug = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestMerge(t *testing.T) {
	dst := Default()
	src := &Config{
		Output:     "json",
		Delegation: DelegationConfig{BlockThreshold: 8},
	}

	result := merge(dst, src)

	if result.Output != "json" {
		t.Errorf("merge Output = %q, want %q", result.Output, "json")
	}
	if result.Delegation.BlockThreshold != 8 {
		t.Errorf("merge BlockThreshold = %d, want 8", result.Delegation.BlockThreshold)
	}
	// Defaults should be preserved when not overridden
	if result.Delegation.WarnThreshold != 3 {
		t.Errorf("merge preserved WarnThreshold = %d, want 3", result.Delegation.WarnThreshold)
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	project := t.TempDir()

	writeConfig(t, filepath.Join(home, ".baton", "config.yaml"), `
delegation:
  window_seconds: 300
  warn_threshold: 2
output: yaml
`)
	writeConfig(t, filepath.Join(project, ".baton", "config.yaml"), `
delegation:
  warn_threshold: 4
  block_threshold: 6
`)
	t.Setenv("BATON_BLOCK_THRESHOLD", "7")

	cfg, err := Load(project, &Config{Output: "json"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Delegation.WindowSeconds != 300 {
		t.Errorf("WindowSeconds = %d, want 300 (home)", cfg.Delegation.WindowSeconds)
	}
	if cfg.Delegation.WarnThreshold != 4 {
		t.Errorf("WarnThreshold = %d, want 4 (project)", cfg.Delegation.WarnThreshold)
	}
	if cfg.Delegation.BlockThreshold != 7 {
		t.Errorf("BlockThreshold = %d, want 7 (env)", cfg.Delegation.BlockThreshold)
	}
	if cfg.Output != "json" {
		t.Errorf("Output = %q, want json (flag)", cfg.Output)
	}
}

func TestLoad_ConfigOverridePath(t *testing.T) {
	isolate(t)
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	writeConfig(t, custom, "state:\n  keying: session\n")
	t.Setenv("BATON_CONFIG", custom)

	cfg, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.State.Keying != KeyingSession {
		t.Errorf("Keying = %q, want session", cfg.State.Keying)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeConfig(t, filepath.Join(project, ".baton", "config.yaml"), "delegation: [unclosed")

	if _, err := Load(project, nil); err == nil {
		t.Error("Load() with bad YAML should fail")
	}

	cfg, err := LoadOrDefault(project, nil)
	if err == nil {
		t.Error("LoadOrDefault() should report the bad file")
	}
	if cfg == nil || cfg.Delegation.BlockThreshold != 5 {
		t.Errorf("LoadOrDefault() fallback = %+v, want defaults", cfg)
	}
}

func TestLoadOrDefault_InvalidValuesFallBack(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeConfig(t, filepath.Join(project, ".baton", "config.yaml"), "delegation:\n  warn_threshold: 9\n")

	cfg, err := LoadOrDefault(project, nil)
	if !errors.Is(err, ErrWarnNotBelowBlock) {
		t.Errorf("error = %v, want ErrWarnNotBelowBlock", err)
	}
	if cfg.Delegation.WarnThreshold != 3 {
		t.Errorf("fallback WarnThreshold = %d, want 3", cfg.Delegation.WarnThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero window", func(c *Config) { c.Delegation.WindowSeconds = 0 }, ErrInvalidWindow},
		{"negative warn", func(c *Config) { c.Delegation.WarnThreshold = -1 }, ErrInvalidThreshold},
		{"warn equals block", func(c *Config) { c.Delegation.WarnThreshold = 5 }, ErrWarnNotBelowBlock},
		{"unknown keying", func(c *Config) { c.State.Keying = "pid" }, ErrUnknownKeying},
		{"session keying", func(c *Config) { c.State.Keying = KeyingSession }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BATON_LOG_DEBUG", "1")
	t.Setenv("BATON_WINDOW_SECONDS", "not-a-number")
	t.Setenv("BATON_STATE_KEYING", "SESSION")

	cfg := applyEnv(Default())
	if !cfg.Log.Debug {
		t.Error("BATON_LOG_DEBUG=1 should enable debug")
	}
	if cfg.Delegation.WindowSeconds != 600 {
		t.Errorf("unparseable window changed value to %d", cfg.Delegation.WindowSeconds)
	}
	if cfg.State.Keying != KeyingSession {
		t.Errorf("Keying = %q, want session", cfg.State.Keying)
	}
}

func TestLogPath(t *testing.T) {
	cfg := Default()
	if got := cfg.LogPath("/repo"); got != filepath.Join("/repo", ".claude", "logs", "hook-debug.jsonl") {
		t.Errorf("LogPath = %q", got)
	}
	cfg.Log.Path = "/var/log/baton.jsonl"
	if got := cfg.LogPath("/repo"); got != "/var/log/baton.jsonl" {
		t.Errorf("absolute LogPath = %q", got)
	}
}

func TestResolve_Sources(t *testing.T) {
	home := isolate(t)
	project := t.TempDir()
	writeConfig(t, filepath.Join(home, ".baton", "config.yaml"), "delegation:\n  window_seconds: 120\n")
	writeConfig(t, filepath.Join(project, ".baton", "config.yaml"), "delegation:\n  warn_threshold: 2\n")
	t.Setenv("BATON_LOG_LEVEL", "debug")

	rc := Resolve(project, &Config{Output: "yaml"})

	checks := []struct {
		name string
		got  resolved
		want Source
	}{
		{"window", rc.WindowSeconds, SourceHome},
		{"warn", rc.WarnThreshold, SourceProject},
		{"block", rc.BlockThreshold, SourceDefault},
		{"log level", rc.LogLevel, SourceEnv},
		{"output", rc.Output, SourceFlag},
	}
	for _, c := range checks {
		if c.got.Source != c.want {
			t.Errorf("%s source = %q, want %q", c.name, c.got.Source, c.want)
		}
	}
	if rc.WindowSeconds.Value != 120 {
		t.Errorf("window value = %v, want 120", rc.WindowSeconds.Value)
	}
}
