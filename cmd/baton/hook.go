package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/baton/internal/delegation"
	"github.com/boshu2/baton/internal/hierarchy"
	"github.com/boshu2/baton/internal/hook"
	"github.com/boshu2/baton/internal/hooklog"
	"github.com/boshu2/baton/internal/role"
	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

// EnvEnvFile is the file a SessionStart hook appends exports to.
const EnvEnvFile = "CLAUDE_ENV_FILE"

const (
	hookEnforceHierarchy     = "enforce-hierarchy"
	hookHierarchyPermissions = "hierarchy-permissions"
	hookSessionStart         = "session-start"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run a Claude Code hook",
	Long: `Hook entry points. Each reads one JSON event on stdin and writes the
host response (if any) on stdout. Hooks always exit 0: a malformed event or
an I/O failure results in a silent Allow, never a broken tool call.

Set BATON_HOOKS_DISABLED=1 to turn every hook into a no-op.`,
}

var hookEnforceDelegationCmd = &cobra.Command{
	Use:   delegation.HookName,
	Short: "PreToolUse: count direct work and escalate to a block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		runEnforceDelegation(rt, cmd.InOrStdin(), cmd.OutOrStdout())
		return nil
	},
}

var hookEnforceHierarchyCmd = &cobra.Command{
	Use:   hookEnforceHierarchy,
	Short: "PreToolUse: deny Edit/Write by the Conductor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		runEnforceHierarchy(rt, cmd.InOrStdin(), cmd.OutOrStdout())
		return nil
	},
}

var hookHierarchyPermissionsCmd = &cobra.Command{
	Use:   hookHierarchyPermissions,
	Short: "PostToolUse: report permission scopes granted by a delegation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		runHierarchyPermissions(rt, cmd.InOrStdin(), cmd.OutOrStdout())
		return nil
	},
}

var hookSessionStartCmd = &cobra.Command{
	Use:   hookSessionStart,
	Short: "SessionStart: export AGENT_ROLE=conductor and write the session marker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		runSessionStart(rt, time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(hookEnforceDelegationCmd)
	hookCmd.AddCommand(hookEnforceHierarchyCmd)
	hookCmd.AddCommand(hookHierarchyPermissionsCmd)
	hookCmd.AddCommand(hookSessionStartCmd)
}

// readEvent parses stdin, reporting failures to the diagnostic stream.
// A nil result means the hook should stay silent.
func readEvent(rt *hookRuntime, stdin io.Reader) *hook.Input {
	if rt.disabled() {
		return nil
	}
	in, err := hook.ReadInput(stdin)
	if err != nil {
		rt.log.Warn(err, "read hook input")
		return nil
	}
	return in
}

func runEnforceDelegation(rt *hookRuntime, stdin io.Reader, stdout io.Writer) {
	in := readEvent(rt, stdin)
	if in == nil {
		return
	}

	r := rt.role()
	d := rt.engine().Decide(delegation.Invocation{
		Tool:     in.Tool(),
		ToolName: in.ToolName,
		Input:    in.ToolInput,
		Role:     r,
		Key:      rt.key(r, in.SessionID),
	})
	if err := hook.WriteDecision(stdout, d); err != nil {
		rt.log.Warn(err, "write hook output")
	}
}

func runEnforceHierarchy(rt *hookRuntime, stdin io.Reader, stdout io.Writer) {
	in := readEvent(rt, stdin)
	if in == nil {
		return
	}

	r := rt.role()
	d := hierarchy.EnforceEdit(r, in.Tool(), in.ToolInput)
	reason := "not an edit by the conductor"
	if d.Permission == types.PermissionDeny {
		reason = "conductor edit outside allowlist"
	}
	rt.log.Decision(hooklog.Entry{
		Hook:      hookEnforceHierarchy,
		Tool:      in.ToolName,
		ToolInput: in.ToolInput.Summary(),
		Role:      r.String(),
		Decision:  d.Permission.String(),
		Reason:    reason,
	})
	if err := hook.WriteDecision(stdout, d); err != nil {
		rt.log.Warn(err, "write hook output")
	}
}

func runHierarchyPermissions(rt *hookRuntime, stdin io.Reader, stdout io.Writer) {
	in := readEvent(rt, stdin)
	if in == nil {
		return
	}

	msg := hierarchy.Notice(in.Tool(), rt.env[role.EnvRole], in.ToolInput)
	if msg == "" {
		return
	}
	rt.log.Decision(hooklog.Entry{
		Hook:      hookHierarchyPermissions,
		Tool:      in.ToolName,
		ToolInput: in.ToolInput.Summary(),
		Role:      rt.env[role.EnvRole],
		Decision:  types.PermissionAllow.String(),
		Reason:    "delegation granted scopes",
		Context:   msg,
	})
	if err := hook.Write(stdout, hook.Context(hook.EventPostToolUse, msg)); err != nil {
		rt.log.Warn(err, "write hook output")
	}
}

// sessionMarker is the content of .claude/.conductor-session.
type sessionMarker struct {
	CreatedAt int64 `json:"created_at"`
	PPID      int   `json:"ppid"`
}

// runSessionStart exports AGENT_ROLE=conductor into the host's env file
// and writes the conductor session marker. Without CLAUDE_ENV_FILE the
// process is not a session start and nothing happens.
func runSessionStart(rt *hookRuntime, now time.Time) {
	if rt.disabled() {
		return
	}
	envFile := rt.env[EnvEnvFile]
	if envFile == "" {
		return
	}

	if GetDryRun() {
		VerbosePrintf("[dry-run] would append %s=%s to %s\n", role.EnvRole, types.RoleConductor, envFile)
		return
	}

	if err := appendLine(envFile, fmt.Sprintf("export %s=%s", role.EnvRole, types.RoleConductor)); err != nil {
		rt.log.Warn(err, "append to env file")
		return
	}

	marker := sessionMarker{CreatedAt: now.Unix(), PPID: os.Getpid()}
	err := storage.AtomicWrite(role.MarkerPath(rt.projectDir), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(marker)
	})
	if err != nil {
		rt.log.Warn(err, "write session marker")
		return
	}

	rt.log.Decision(hooklog.Entry{
		Hook:     hookSessionStart,
		Role:     types.RoleConductor.String(),
		Decision: types.PermissionAllow.String(),
		Reason:   "conductor session marked",
	})
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		_ = f.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
