// Package hook reads Claude Code hook events from stdin and writes hook
// decisions back in the host's hookSpecificOutput envelope.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/boshu2/baton/internal/types"
)

// Hook event names baton emits.
const (
	EventPreToolUse   = "PreToolUse"
	EventPostToolUse  = "PostToolUse"
	EventSessionStart = "SessionStart"
)

// Input is the event record the host sends on stdin.
type Input struct {
	ToolName      string          `json:"tool_name"`
	ToolInput     types.ToolInput `json:"tool_input"`
	ToolOutput    json.RawMessage `json:"tool_output,omitempty"`
	HookEventName string          `json:"hook_event_name,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	Cwd           string          `json:"cwd,omitempty"`
}

// Tool returns the validated tool kind.
func (in *Input) Tool() types.ToolKind {
	return types.ParseToolKind(in.ToolName)
}

// ReadInput parses one event. An empty body is ErrEmptyInput; a tool_input
// that is not an object is tolerated and read as empty.
func ReadInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hook input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	var raw struct {
		Input
		ToolInput json.RawMessage `json:"tool_input"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	in := raw.Input
	if len(raw.ToolInput) > 0 && raw.ToolInput[0] == '{' {
		// Fields of the wrong type are dropped rather than failing the whole event.
		_ = json.Unmarshal(raw.ToolInput, &in.ToolInput)
	}
	return &in, nil
}

// SpecificOutput is the hookSpecificOutput envelope.
type SpecificOutput struct {
	HookEventName            string            `json:"hookEventName"`
	PermissionDecision       *types.Permission `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string            `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string            `json:"additionalContext,omitempty"`
}

// Output is the top-level JSON document written to stdout.
type Output struct {
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput"`
}

// PreToolUse wraps a decision for the PreToolUse event. Deny and Ask carry
// the message as the decision reason; every message is also added as context.
func PreToolUse(d types.Decision) Output {
	perm := d.Permission
	out := Output{HookSpecificOutput: SpecificOutput{
		HookEventName:      EventPreToolUse,
		PermissionDecision: &perm,
		AdditionalContext:  d.Message,
	}}
	if d.Permission != types.PermissionAllow {
		out.HookSpecificOutput.PermissionDecisionReason = d.Message
	}
	return out
}

// Context builds a context-only output for events without a permission decision.
func Context(event, msg string) Output {
	return Output{HookSpecificOutput: SpecificOutput{
		HookEventName:     event,
		AdditionalContext: msg,
	}}
}

// WriteDecision emits d for PreToolUse. A silent Allow writes nothing so
// the host falls through to its normal handling.
func WriteDecision(w io.Writer, d types.Decision) error {
	if d.Silent() {
		return nil
	}
	return Write(w, PreToolUse(d))
}

// Write encodes out as a single JSON document.
func Write(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write hook output: %w", err)
	}
	return nil
}
