// Package types defines the closed vocabularies shared by every baton hook:
// agent roles, tool kinds and permission decisions.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies which tier of the agent hierarchy is calling a hook.
type Role int

const (
	// RoleMusician is the unrestricted, subordinate role that performs direct work.
	RoleMusician Role = iota

	// RoleConductor is the restricted top-level role that must delegate.
	RoleConductor
)

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conductor":
		return RoleConductor, true
	case "musician":
		return RoleMusician, true
	default:
		return RoleMusician, false
	}
}

// String returns the lower-case role name used in file names and messages.
func (r Role) String() string {
	switch r {
	case RoleConductor:
		return "conductor"
	default:
		return "musician"
	}
}

// Restricted reports whether the role is subject to delegation accounting.
func (r Role) Restricted() bool {
	return r == RoleConductor
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(b))
	}
	*r = parsed
	return nil
}

// ToolKind classifies the tool a hook invocation is about.
type ToolKind int

const (
	// ToolOther is any tool baton does not account for.
	ToolOther ToolKind = iota
	ToolEdit
	ToolWrite
	ToolRead
	ToolBash
	ToolWebFetch
	ToolWebSearch

	// ToolTask is the delegation mechanism.
	ToolTask
)

var toolNames = map[string]ToolKind{
	"Edit":      ToolEdit,
	"Write":     ToolWrite,
	"Read":      ToolRead,
	"Bash":      ToolBash,
	"WebFetch":  ToolWebFetch,
	"WebSearch": ToolWebSearch,
	"Task":      ToolTask,
}

// ParseToolKind maps a host tool name to its kind. Tool names are
// case-sensitive, as the host sends them.
func ParseToolKind(name string) ToolKind {
	if k, ok := toolNames[name]; ok {
		return k
	}
	return ToolOther
}

// String returns the host tool name for the kind.
func (k ToolKind) String() string {
	for name, kind := range toolNames {
		if kind == k {
			return name
		}
	}
	return "other"
}

// IsWork reports whether the tool counts against the delegation budget.
func (k ToolKind) IsWork() bool {
	switch k {
	case ToolEdit, ToolWrite, ToolRead, ToolBash, ToolWebFetch, ToolWebSearch:
		return true
	}
	return false
}

// IsDelegation reports whether the tool is the hand-off mechanism.
func (k ToolKind) IsDelegation() bool {
	return k == ToolTask
}

// IsFileTool reports whether the tool carries a file_path subject to the allowlist.
func (k ToolKind) IsFileTool() bool {
	return k == ToolEdit || k == ToolWrite || k == ToolRead
}

// Permission is the host-facing outcome of a decision.
type Permission int

const (
	PermissionAllow Permission = iota
	PermissionAsk
	PermissionDeny
)

// String returns the host wire value.
func (p Permission) String() string {
	switch p {
	case PermissionAsk:
		return "ask"
	case PermissionDeny:
		return "deny"
	default:
		return "allow"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permission) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "allow":
		*p = PermissionAllow
	case "ask":
		*p = PermissionAsk
	case "deny":
		*p = PermissionDeny
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPermission, string(b))
	}
	return nil
}

// Decision is the transient result of one hook invocation.
type Decision struct {
	Permission Permission `json:"decision"`
	Message    string     `json:"message,omitempty"`
}

// Allow permits the tool call without comment.
func Allow() Decision {
	return Decision{Permission: PermissionAllow}
}

// AllowWith permits the tool call and attaches advisory context.
func AllowWith(msg string) Decision {
	return Decision{Permission: PermissionAllow, Message: msg}
}

// Ask requests explicit confirmation from the human.
func Ask(msg string) Decision {
	return Decision{Permission: PermissionAsk, Message: msg}
}

// Deny blocks the tool call.
func Deny(msg string) Decision {
	return Decision{Permission: PermissionDeny, Message: msg}
}

// Silent reports whether the decision carries nothing for the host:
// an Allow without a message.
func (d Decision) Silent() bool {
	return d.Permission == PermissionAllow && d.Message == ""
}

// String renders the decision for logs.
func (d Decision) String() string {
	data, err := json.Marshal(d)
	if err != nil {
		return d.Permission.String()
	}
	return string(data)
}

// ToolInput is the subset of tool parameters the hooks inspect.
type ToolInput struct {
	Command      string `json:"command,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
	Content      string `json:"content,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	SubagentType string `json:"subagent_type,omitempty"`
}

// Summary returns a one-line description of the input for logs.
func (in ToolInput) Summary() string {
	switch {
	case in.FilePath != "":
		return "file_path: " + in.FilePath
	case in.Command != "":
		return "command: " + in.Command
	case in.SubagentType != "":
		return "subagent_type: " + in.SubagentType
	case in.Prompt != "":
		return "prompt: " + in.Prompt
	}
	return ""
}
