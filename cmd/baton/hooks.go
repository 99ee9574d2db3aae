package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/baton/internal/delegation"
	"github.com/boshu2/baton/internal/hook"
	"github.com/boshu2/baton/internal/role"
	"github.com/boshu2/baton/internal/storage"
)

var (
	hooksGlobal  bool
	hooksForce   bool
	hooksCommand string
)

// HookEntry represents a single hook command (e.g., {"type": "command", "command": "..."}).
type HookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// HookGroup represents a hook group with optional matcher and a hooks array.
// Claude Code format: {"matcher": "Write|Edit", "hooks": [{"type": "command", "command": "..."}]}
type HookGroup struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []HookEntry `json:"hooks"`
}

// HooksConfig is the subset of Claude settings hooks baton manages.
type HooksConfig struct {
	SessionStart []HookGroup `json:"SessionStart,omitempty"`
	PreToolUse   []HookGroup `json:"PreToolUse,omitempty"`
	PostToolUse  []HookGroup `json:"PostToolUse,omitempty"`
}

// EventNames returns the hook events baton installs, in canonical order.
func EventNames() []string {
	return []string{hook.EventSessionStart, hook.EventPreToolUse, hook.EventPostToolUse}
}

// GetEventGroups returns the hook groups for a given event name.
func (c *HooksConfig) GetEventGroups(event string) []HookGroup {
	switch event {
	case hook.EventSessionStart:
		return c.SessionStart
	case hook.EventPreToolUse:
		return c.PreToolUse
	case hook.EventPostToolUse:
		return c.PostToolUse
	}
	return nil
}

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Install baton into Claude Code settings",
	Long: `Manage the Claude Code hook registrations that run baton.

Subcommands:
  install   Register baton hooks in .claude/settings.json
  show      Display which baton hooks are registered

Example workflow:
  baton hooks install              # Project settings
  baton hooks install --global     # ~/.claude/settings.json
  baton hooks show`,
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register baton hooks in Claude settings",
	Args:  cobra.NoArgs,
	RunE:  runHooksInstall,
}

var hooksShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display registered baton hooks",
	Args:  cobra.NoArgs,
	RunE:  runHooksShow,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksShowCmd)

	hooksCmd.PersistentFlags().BoolVar(&hooksGlobal, "global", false, "Use ~/.claude/settings.json instead of the project settings")
	hooksInstallCmd.Flags().BoolVar(&hooksForce, "force", false, "Overwrite existing baton hooks")
	hooksInstallCmd.Flags().StringVar(&hooksCommand, "command", "baton", "Command used to invoke baton from hooks")
}

// generateHooksConfig builds the registrations for every baton hook.
func generateHooksConfig(bin string) *HooksConfig {
	entry := func(name string) HookEntry {
		return HookEntry{Type: "command", Command: bin + " hook " + name, Timeout: 10}
	}
	return &HooksConfig{
		SessionStart: []HookGroup{
			{Hooks: []HookEntry{entry(hookSessionStart)}},
		},
		PreToolUse: []HookGroup{
			{Matcher: "Edit|Write", Hooks: []HookEntry{entry(hookEnforceHierarchy)}},
			{Matcher: "Edit|Write|Read|Bash|WebFetch|WebSearch|Task", Hooks: []HookEntry{entry(delegation.HookName)}},
		},
		PostToolUse: []HookGroup{
			{Matcher: "Task", Hooks: []HookEntry{entry(hookHierarchyPermissions)}},
		},
	}
}

// settingsPath returns the Claude settings file baton targets.
func settingsPath(global bool) (string, error) {
	if global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		return filepath.Join(homeDir, ".claude", "settings.json"), nil
	}
	return filepath.Join(role.ProjectDir(role.Environ()), ".claude", "settings.json"), nil
}

func loadHooksSettings(path string) (map[string]any, error) {
	rawSettings := make(map[string]any)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &rawSettings); err != nil {
			return nil, fmt.Errorf("parse existing settings: %w", err)
		}
		return rawSettings, nil
	}
	if os.IsNotExist(err) {
		return rawSettings, nil
	}
	return nil, fmt.Errorf("read settings: %w", err)
}

func cloneHooksMap(rawSettings map[string]any) map[string]any {
	hooksMap := make(map[string]any)
	if existing, ok := rawSettings["hooks"].(map[string]any); ok {
		for k, v := range existing {
			hooksMap[k] = v
		}
	}
	return hooksMap
}

// mergeHookEvents replaces baton-managed groups and keeps everything else.
func mergeHookEvents(hooksMap map[string]any, newHooks *HooksConfig) int {
	installed := 0
	for _, event := range EventNames() {
		groups := filterForeignHookGroups(hooksMap, event)
		newGroups := newHooks.GetEventGroups(event)
		for _, g := range newGroups {
			groups = append(groups, hookGroupToMap(g))
		}
		if len(newGroups) > 0 {
			hooksMap[event] = groups
			installed++
		}
	}
	return installed
}

func isBatonHookCommand(cmd string) bool {
	return strings.Contains(cmd, " hook ") &&
		(strings.Contains(cmd, "baton") || strings.Contains(cmd, hooksCommand))
}

// rawGroupIsBaton reports whether a raw hook group runs a baton hook.
func rawGroupIsBaton(group map[string]any) bool {
	hooks, ok := group["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		entry, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, ok := entry["command"].(string); ok && isBatonHookCommand(cmd) {
			return true
		}
	}
	return false
}

func rawGroups(hooksMap map[string]any, event string) []map[string]any {
	var result []map[string]any
	groups, ok := hooksMap[event].([]any)
	if !ok {
		return result
	}
	for _, g := range groups {
		if group, ok := g.(map[string]any); ok {
			result = append(result, group)
		}
	}
	return result
}

// filterForeignHookGroups returns hook groups that don't run baton.
func filterForeignHookGroups(hooksMap map[string]any, event string) []any {
	result := make([]any, 0)
	for _, group := range rawGroups(hooksMap, event) {
		if !rawGroupIsBaton(group) {
			result = append(result, group)
		}
	}
	return result
}

func batonInstalled(hooksMap map[string]any) bool {
	for _, event := range EventNames() {
		for _, group := range rawGroups(hooksMap, event) {
			if rawGroupIsBaton(group) {
				return true
			}
		}
	}
	return false
}

// hookGroupToMap converts a HookGroup to a map for JSON serialization.
func hookGroupToMap(g HookGroup) map[string]any {
	hooks := make([]any, len(g.Hooks))
	for i, h := range g.Hooks {
		entry := map[string]any{
			"type":    h.Type,
			"command": h.Command,
		}
		if h.Timeout > 0 {
			entry["timeout"] = h.Timeout
		}
		hooks[i] = entry
	}
	result := map[string]any{
		"hooks": hooks,
	}
	if g.Matcher != "" {
		result["matcher"] = g.Matcher
	}
	return result
}

func backupHooksSettings(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read settings for backup: %w", err)
	}
	backupPath := fmt.Sprintf("%s.backup.%s", path, now.Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	return backupPath, nil
}

func writeHooksSettings(path string, rawSettings map[string]any) error {
	return storage.AtomicWrite(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rawSettings)
	})
}

// installHooks merges baton's registrations into the settings at path and
// reports what it did on out.
func installHooks(out io.Writer, path, bin string, force, dry bool) error {
	rawSettings, err := loadHooksSettings(path)
	if err != nil {
		return err
	}

	hooksMap := cloneHooksMap(rawSettings)
	if !force && batonInstalled(hooksMap) {
		fmt.Fprintln(out, "baton hooks already installed. Use --force to overwrite.")
		return nil
	}

	newHooks := generateHooksConfig(bin)
	installed := mergeHookEvents(hooksMap, newHooks)
	rawSettings["hooks"] = hooksMap

	if dry {
		fmt.Fprintln(out, "[dry-run] Would write to", path)
		data, err := json.MarshalIndent(rawSettings, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal hooks settings: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	backup, err := backupHooksSettings(path, time.Now())
	if err != nil {
		return err
	}
	if backup != "" {
		fmt.Fprintf(out, "Backed up existing settings to %s\n", backup)
	}
	if err := writeHooksSettings(path, rawSettings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	fmt.Fprintf(out, "✓ Installed baton hooks to %s (%d events)\n", path, installed)
	for _, event := range EventNames() {
		for _, g := range newHooks.GetEventGroups(event) {
			for _, h := range g.Hooks {
				fmt.Fprintf(out, "  %s %s: %s\n", event, g.Matcher, h.Command)
			}
		}
	}
	return nil
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	path, err := settingsPath(hooksGlobal)
	if err != nil {
		return err
	}
	return installHooks(cmd.OutOrStdout(), path, hooksCommand, hooksForce, GetDryRun())
}

// showHooks prints baton registrations per event and returns how many
// events are covered.
func showHooks(out io.Writer, path string) (int, error) {
	rawSettings, err := loadHooksSettings(path)
	if err != nil {
		return 0, err
	}
	hooksMap := cloneHooksMap(rawSettings)

	fmt.Fprintf(out, "Claude settings: %s\n\n", path)
	covered := 0
	for _, event := range EventNames() {
		var cmds []string
		for _, group := range rawGroups(hooksMap, event) {
			if !rawGroupIsBaton(group) {
				continue
			}
			hooks, _ := group["hooks"].([]any)
			for _, h := range hooks {
				if entry, ok := h.(map[string]any); ok {
					if c, ok := entry["command"].(string); ok {
						cmds = append(cmds, c)
					}
				}
			}
		}
		if len(cmds) == 0 {
			fmt.Fprintf(out, "  %-13s ✗ not installed\n", event)
			continue
		}
		covered++
		fmt.Fprintf(out, "  %-13s ✓ %s\n", event, strings.Join(cmds, ", "))
	}
	fmt.Fprintf(out, "\n%d/%d events covered\n", covered, len(EventNames()))
	return covered, nil
}

func runHooksShow(cmd *cobra.Command, args []string) error {
	path, err := settingsPath(hooksGlobal)
	if err != nil {
		return err
	}
	_, err = showHooks(cmd.OutOrStdout(), path)
	return err
}
