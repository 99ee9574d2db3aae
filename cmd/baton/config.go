package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boshu2/baton/internal/config"
	"github.com/boshu2/baton/internal/formatter"
	"github.com/boshu2/baton/internal/role"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View baton configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (BATON_*)
  3. Project config (.baton/config.yaml)
  4. Home config (~/.baton/config.yaml)
  5. Defaults

Environment variables:
  BATON_CONFIG           - Explicit config file path (overrides project config location)
  BATON_OUTPUT           - Default output format (table, json, yaml)
  BATON_VERBOSE          - Diagnostics on stderr (true/1)
  BATON_WINDOW_SECONDS   - Sliding window length (default: 600)
  BATON_WARN_THRESHOLD   - Count at which the warning starts (default: 3)
  BATON_BLOCK_THRESHOLD  - Count at which work is denied (default: 5)
  BATON_STATE_DIR        - State file directory (default: system temp dir)
  BATON_STATE_KEYING     - State keying: project | session (default: project)
  BATON_LOG_DEBUG        - Force the decision log on (true/1)
  BATON_LOG_PATH         - Decision log path (default: .claude/logs/hook-debug.jsonl)
  BATON_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
  BATON_HOOKS_DISABLED   - Turn every hook into a no-op

Examples:
  baton config show          # Show resolved configuration
  baton config show -o json  # Output as JSON`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration with sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir := role.ProjectDir(role.Environ())
		resolved := config.Resolve(projectDir, flagConfig(cmd))
		format, _ := resolved.Output.Value.(string)
		return outputConfig(cmd.OutOrStdout(), projectDir, resolved, format)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func outputConfig(out io.Writer, projectDir string, resolved *config.ResolvedConfig, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil

	case "yaml":
		return yaml.NewEncoder(out).Encode(resolved)
	}

	formatter.Heading(out, "baton Configuration")

	fmt.Fprintln(out, "Config files:")
	home, project := config.Paths(projectDir)
	for _, path := range []string{home, project} {
		if path == "" {
			continue
		}
		mark := "✗"
		if _, err := os.Stat(path); err == nil {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, path)
	}
	fmt.Fprintln(out)

	tbl := formatter.NewTable(out, "KEY", "VALUE", "SOURCE")
	rows := []struct {
		name string
		v    interface{}
		src  config.Source
	}{
		{"output", resolved.Output.Value, resolved.Output.Source},
		{"delegation.window_seconds", resolved.WindowSeconds.Value, resolved.WindowSeconds.Source},
		{"delegation.warn_threshold", resolved.WarnThreshold.Value, resolved.WarnThreshold.Source},
		{"delegation.block_threshold", resolved.BlockThreshold.Value, resolved.BlockThreshold.Source},
		{"state.dir", resolved.StateDir.Value, resolved.StateDir.Source},
		{"state.keying", resolved.StateKeying.Value, resolved.StateKeying.Source},
		{"log.path", resolved.LogPath.Value, resolved.LogPath.Source},
		{"log.level", resolved.LogLevel.Value, resolved.LogLevel.Source},
	}
	for _, r := range rows {
		tbl.AddRow(r.name, fmt.Sprint(r.v), string(r.src))
	}
	return tbl.Render()
}
