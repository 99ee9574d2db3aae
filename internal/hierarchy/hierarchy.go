// Package hierarchy holds the stateless hierarchy hooks: the hard edit guard
// for the Conductor and the post-delegation permission notice.
package hierarchy

import (
	"fmt"
	"strings"

	"github.com/boshu2/baton/internal/allowlist"
	"github.com/boshu2/baton/internal/types"
)

// EditDeniedMessage is shown when the Conductor edits an implementation file.
const EditDeniedMessage = "⛔ Hierarchy violation: the Conductor cannot edit files directly.\n\n" +
	"Spawn a subagent (Musician) with the Task tool and delegate the change.\n\n" +
	"→ See .claude/rules/agent-hierarchy.md"

// EnforceEdit denies Edit and Write by the Conductor on files outside the
// allowlist. Every other combination is a silent Allow.
func EnforceEdit(role types.Role, tool types.ToolKind, in types.ToolInput) types.Decision {
	if tool != types.ToolEdit && tool != types.ToolWrite {
		return types.Allow()
	}
	if allowlist.Allowed(in.FilePath) {
		return types.Allow()
	}
	if !role.Restricted() {
		return types.Allow()
	}
	return types.Deny(EditDeniedMessage)
}

// Tier names a level of the delegation tree, including the optional
// section leader between Conductor and Musician.
type Tier string

const (
	TierConductor     Tier = "conductor"
	TierSectionLeader Tier = "section_leader"
	TierMusician      Tier = "musician"
)

// permissionScopes is the number of permission scopes a delegation
// auto-grants, by (parent, target).
var permissionScopes = map[[2]Tier]int{
	{TierConductor, TierSectionLeader}: 9,
	{TierConductor, TierMusician}:      8,
	{TierSectionLeader, TierMusician}:  10,
}

// DetectTarget infers the delegate's tier from a Task prompt.
func DetectTarget(prompt string) Tier {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "section_leader"), strings.Contains(p, "セクションリーダー"):
		return TierSectionLeader
	default:
		return TierMusician
	}
}

// ParentTier maps an AGENT_ROLE value to a tier. Unset means conductor,
// since only the top-level session spawns Task calls without a role.
func ParentTier(agentRole string) Tier {
	switch strings.ToLower(strings.TrimSpace(agentRole)) {
	case "", string(TierConductor):
		return TierConductor
	case string(TierSectionLeader):
		return TierSectionLeader
	default:
		return TierMusician
	}
}

// PermissionScopes returns how many scopes parent→target auto-grants.
func PermissionScopes(parent, target Tier) int {
	return permissionScopes[[2]Tier{parent, target}]
}

// Notice returns the PostToolUse message for a Task delegation, or "" when
// the call is not a Task or grants nothing.
func Notice(tool types.ToolKind, agentRole string, in types.ToolInput) string {
	if !tool.IsDelegation() {
		return ""
	}
	parent := ParentTier(agentRole)
	target := DetectTarget(in.Prompt)
	n := PermissionScopes(parent, target)
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("Hierarchy: %s → %s. Permissions auto-granted: %d scopes.", parent, target, n)
}
