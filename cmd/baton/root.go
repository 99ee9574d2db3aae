package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dryRun  bool
	verbose bool
	output  string
	cfgFile string
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "baton",
	Short: "Delegation enforcement for Conductor/Musician agent hierarchies",
	Long: `baton keeps the top-level agent (the Conductor) conducting.

The Conductor is expected to hand implementation work to subagents
(Musicians) through the Task tool. baton runs as a set of Claude Code hooks
that count direct work-tool use inside a 10 minute window and escalate from
a reminder, to a warning, to a hard block.

Hooks:
  hook enforce-delegation     PreToolUse: sliding-window delegation counter
  hook enforce-hierarchy      PreToolUse: Conductor may not Edit/Write code
  hook hierarchy-permissions  PostToolUse: report scopes granted by Task
  hook session-start          SessionStart: mark the Conductor session

Diagnostics:
  role          Show which role this process resolves to
  state show    Show the persisted delegation counter
  state reset   Clear the counter (logged with a reason)
  config show   Show resolved configuration and its sources`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		syncConfigFlagToEnv()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Evaluate without persisting state")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (json, table, yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: .baton/config.yaml)")
}

// GetDryRun returns the dry-run flag value for use by subcommands.
func GetDryRun() bool {
	return dryRun
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetOutput returns the output format for use by subcommands.
func GetOutput() string {
	return output
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

// VerbosePrintf prints to stderr only when verbose mode is enabled.
// Hook stdout is reserved for the host protocol.
func VerbosePrintf(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("BATON_CONFIG", path)
}
