package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boshu2/baton/internal/delegation"
	"github.com/boshu2/baton/internal/formatter"
	"github.com/boshu2/baton/internal/role"
	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

// ResetLogPath is the reset audit log relative to the project root.
const ResetLogPath = ".claude/logs/delegation-resets.jsonl"

const defaultResetReason = "manual reset"

var (
	stateRole      string
	resetReason    string
	pruneOlderThan time.Duration
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the delegation counter",
	Long: `The delegation counter lives in one small JSON file per (project, role)
under the state directory (default: the system temp dir).

Examples:
  baton state show
  baton state show -o json
  baton state reset --reason "pairing with a human on a hotfix"`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted delegation counter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		r, err := parseStateRole()
		if err != nil {
			return err
		}
		return outputState(cmd.OutOrStdout(), buildStateView(rt, r, time.Now()), rt.cfg.Output)
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset [reason...]",
	Short: "Clear the delegation counter",
	Long: `Overwrite the counter with the zero state and append the reason to
.claude/logs/delegation-resets.jsonl. Use it when direct work is genuinely
required, not to dodge the block.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		r, err := parseStateRole()
		if err != nil {
			return err
		}
		reason := strings.TrimSpace(resetReason)
		if reason == "" {
			reason = strings.TrimSpace(strings.Join(args, " "))
		}
		return resetState(cmd.OutOrStdout(), rt, r, reason, time.Now())
	},
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every counter in the state directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		records, err := rt.fileStore().List()
		if err != nil {
			return err
		}
		return outputStateList(cmd.OutOrStdout(), rt, records, time.Now())
	},
}

var statePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete state files not written recently",
	Long: `State files accumulate in the state directory, one per project and
role. prune deletes those last written before --older-than ago.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		return pruneState(cmd.OutOrStdout(), rt, pruneOlderThan, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(statePruneCmd)

	stateCmd.PersistentFlags().StringVar(&stateRole, "role", types.RoleConductor.String(), "Role whose counter to use (conductor, musician)")
	stateResetCmd.Flags().StringVar(&resetReason, "reason", "", "Why the counter is being reset")
	statePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 24*time.Hour, "Delete files last written before this long ago")
}

func parseStateRole() (types.Role, error) {
	var r types.Role
	if err := r.UnmarshalText([]byte(stateRole)); err != nil {
		return r, fmt.Errorf("--role: %w", err)
	}
	return r, nil
}

// stateView is the reportable form of one counter.
type stateView struct {
	Key              string `json:"key" yaml:"key"`
	Role             string `json:"role" yaml:"role"`
	Path             string `json:"path" yaml:"path"`
	WindowStart      int64  `json:"window_start_ts" yaml:"window_start_ts"`
	NonDelegateCount int    `json:"non_delegate_count" yaml:"non_delegate_count"`
	LastDelegation   int64  `json:"last_delegation_ts" yaml:"last_delegation_ts"`
	LastWarningAt    int    `json:"last_warning_at" yaml:"last_warning_at"`
	Stale            bool   `json:"stale" yaml:"stale"`
	WindowRemaining  int64  `json:"window_remaining_seconds" yaml:"window_remaining_seconds"`
	Status           string `json:"status" yaml:"status"`
}

func buildStateView(rt *hookRuntime, r types.Role, now time.Time) stateView {
	key := rt.key(r, "")
	st := rt.store.Load(key)
	c := rt.counter()

	v := stateView{
		Key:              key.String(),
		Role:             r.String(),
		Path:             rt.fileStore().Path(key),
		WindowStart:      st.WindowStart,
		NonDelegateCount: st.NonDelegateCount,
		LastDelegation:   st.LastDelegation,
		LastWarningAt:    st.LastWarningAt,
		Stale:            c.Stale(st, now),
	}
	if st.WindowStart > 0 && !v.Stale {
		v.WindowRemaining = int64(c.Window.Seconds()) - (now.Unix() - st.WindowStart)
	}
	v.Status = stateStatus(c, st.NonDelegateCount, v.Stale)
	return v
}

// stateStatus names where the next work call would land.
func stateStatus(c delegation.Counter, count int, stale bool) string {
	switch {
	case stale || count == 0:
		return "clean"
	case count >= c.Threshold():
		return "blocked"
	case count >= c.WarnAt:
		return "warning"
	default:
		return "counting"
	}
}

func outputState(out io.Writer, v stateView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)

	case "yaml":
		enc := yaml.NewEncoder(out)
		return enc.Encode(v)

	default:
		return outputStateTable(out, v)
	}
}

func outputStateTable(out io.Writer, v stateView) error {
	formatter.Heading(out, fmt.Sprintf("Delegation State (%s)", v.Role))

	f := formatter.NewFields(out).
		Add("Status", v.Status).
		Add("Count", v.NonDelegateCount).
		Add("Window start", formatUnix(v.WindowStart))
	if v.WindowRemaining > 0 {
		f.Add("Window left", time.Duration(v.WindowRemaining)*time.Second)
	}
	if v.Stale {
		f.Add("Window", "expired (next call starts fresh)")
	}
	return f.Add("Last delegation", formatUnix(v.LastDelegation)).
		Add("Last warning at", v.LastWarningAt).
		Add("File", v.Path).
		Render()
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "never"
	}
	return time.Unix(ts, 0).Format(time.RFC3339)
}

// resetEntry is one line of the reset audit log.
type resetEntry struct {
	Timestamp string `json:"timestamp"`
	Key       string `json:"key"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason"`
}

// resetState zeroes the counter for r and appends an audit line.
func resetState(out io.Writer, rt *hookRuntime, r types.Role, reason string, now time.Time) error {
	if reason == "" {
		reason = defaultResetReason
	}
	key := rt.key(r, "")
	fs := rt.fileStore()

	if GetDryRun() {
		fmt.Fprintf(out, "[dry-run] Would reset %s (%s)\n", fs.Path(key), reason)
		return nil
	}

	if err := fs.Reset(key); err != nil {
		return fmt.Errorf("reset delegation state: %w", err)
	}

	entry := resetEntry{
		Timestamp: now.Format(time.RFC3339),
		Key:       key.String(),
		Role:      r.String(),
		SessionID: rt.env[role.EnvSessionID],
		Reason:    reason,
	}
	if err := storage.AppendJSONL(filepath.Join(rt.projectDir, ResetLogPath), entry); err != nil {
		VerbosePrintf("append reset log: %v\n", err)
	}

	fmt.Fprintf(out, "✓ Delegation counter reset. Reason: %s\n", reason)
	return nil
}

// outputStateList renders every counter with its status.
func outputStateList(out io.Writer, rt *hookRuntime, records []storage.Record, now time.Time) error {
	switch rt.cfg.Output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		return yaml.NewEncoder(out).Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No delegation state in %s\n", rt.fileStore().Dir)
		return nil
	}

	c := rt.counter()
	tbl := formatter.NewTable(out, "KEY", "COUNT", "STATUS", "UPDATED")
	tbl.SetMaxWidth(0, 32)
	for _, rec := range records {
		status := stateStatus(c, rec.State.NonDelegateCount, c.Stale(rec.State, now))
		if rec.Corrupt {
			status = "corrupt"
		}
		tbl.AddRow(rec.Name, fmt.Sprint(rec.State.NonDelegateCount), status, rec.ModTime.Format(time.RFC3339))
	}
	return tbl.Render()
}

// pruneState removes state files older than age.
func pruneState(out io.Writer, rt *hookRuntime, age time.Duration, now time.Time) error {
	fs := rt.fileStore()
	cutoff := now.Add(-age)

	if GetDryRun() {
		records, err := fs.List()
		if err != nil {
			return err
		}
		n := 0
		for _, rec := range records {
			if rec.ModTime.Before(cutoff) {
				fmt.Fprintf(out, "[dry-run] Would remove %s\n", rec.Path)
				n++
			}
		}
		fmt.Fprintf(out, "[dry-run] %d file(s) older than %s\n", n, age)
		return nil
	}

	removed, err := fs.Prune(cutoff)
	for _, rec := range removed {
		VerbosePrintf("removed %s\n", rec.Path)
	}
	if err != nil {
		return fmt.Errorf("prune state: %w", err)
	}
	fmt.Fprintf(out, "✓ Removed %d state file(s) older than %s\n", len(removed), age)
	return nil
}
