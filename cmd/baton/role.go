package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boshu2/baton/internal/role"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Show the role this process resolves to",
	Long: `Resolve the calling role the same way the hooks do and explain why.

Resolution order (first match wins):
  1. CLAUDE_SUBAGENT set            -> musician
  2. stdin is not a terminal        -> musician
  3. AGENT_ROLE=conductor|musician  -> that role
  4. .claude/.conductor-session     -> conductor
  5. otherwise                      -> musician`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(cmd)
		defer rt.Close()
		return outputRole(cmd.OutOrStdout(), buildRoleView(rt), rt.cfg.Output)
	},
}

func init() {
	rootCmd.AddCommand(roleCmd)
}

type roleView struct {
	Role         string `json:"role" yaml:"role"`
	Reason       string `json:"reason" yaml:"reason"`
	HasTTY       bool   `json:"has_tty" yaml:"has_tty"`
	MarkerExists bool   `json:"marker_exists" yaml:"marker_exists"`
	ProjectDir   string `json:"project_dir" yaml:"project_dir"`
}

func buildRoleView(rt *hookRuntime) roleView {
	return roleView{
		Role:         role.Resolve(rt.roleCtx).String(),
		Reason:       role.Explain(rt.roleCtx),
		HasTTY:       rt.roleCtx.HasTTY,
		MarkerExists: rt.roleCtx.MarkerExists,
		ProjectDir:   rt.projectDir,
	}
}

func outputRole(out io.Writer, v roleView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(out).Encode(v)
	default:
		_, err := fmt.Fprintf(out, "%s (%s)\n", v.Role, v.Reason)
		return err
	}
}
