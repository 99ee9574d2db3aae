// Package role resolves which tier of the agent hierarchy is invoking a hook.
//
// Resolution is a pure function of a Context snapshot so that callers can
// test every precedence rule without touching the process environment.
// FromEnvironment is the single place ambient state is read.
package role

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/boshu2/baton/internal/types"
)

// Environment variables and marker consulted during resolution.
const (
	// EnvSubagent marks a subordinate process. Presence alone is enough.
	EnvSubagent = "CLAUDE_SUBAGENT"

	// EnvRole is the explicit role override.
	EnvRole = "AGENT_ROLE"

	// EnvProjectDir is the project root exported by the host.
	EnvProjectDir = "CLAUDE_PROJECT_DIR"

	// EnvSessionID is the host session identifier.
	EnvSessionID = "CLAUDE_SESSION_ID"

	// MarkerName is the session marker written at session start.
	MarkerName = ".conductor-session"
)

// Context is everything resolution depends on.
type Context struct {
	Env          map[string]string
	HasTTY       bool
	MarkerExists bool
}

// Resolve returns the calling role. First match wins:
//  1. subordinate signal in the environment -> Musician
//  2. no controlling terminal -> Musician
//  3. AGENT_ROLE naming a known role -> that role
//  4. conductor session marker present -> Conductor
//  5. Musician
//
// Rule 1 is checked before the override so a subprocess can never inherit
// the Conductor role from its parent's environment.
func Resolve(ctx Context) types.Role {
	if _, ok := ctx.Env[EnvSubagent]; ok {
		return types.RoleMusician
	}
	if !ctx.HasTTY {
		return types.RoleMusician
	}
	if v, ok := ctx.Env[EnvRole]; ok {
		if r, known := types.ParseRole(v); known {
			return r
		}
	}
	if ctx.MarkerExists {
		return types.RoleConductor
	}
	return types.RoleMusician
}

// Explain returns a short reason for the resolved role, for diagnostics.
func Explain(ctx Context) string {
	if _, ok := ctx.Env[EnvSubagent]; ok {
		return EnvSubagent + " is set"
	}
	if !ctx.HasTTY {
		return "no controlling terminal on stdin"
	}
	if v, ok := ctx.Env[EnvRole]; ok {
		if _, known := types.ParseRole(v); known {
			return EnvRole + "=" + v
		}
	}
	if ctx.MarkerExists {
		return "conductor session marker present"
	}
	return "default"
}

// ProjectDir returns the project root from env, defaulting to ".".
func ProjectDir(env map[string]string) string {
	if dir := strings.TrimSpace(env[EnvProjectDir]); dir != "" {
		return dir
	}
	return "."
}

// MarkerPath returns the conductor session marker location for a project.
func MarkerPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", MarkerName)
}

// Environ snapshots os.Environ into a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// FromEnvironment captures the live process state for Resolve.
func FromEnvironment() Context {
	env := Environ()
	_, err := os.Stat(MarkerPath(ProjectDir(env)))
	return Context{
		Env:          env,
		HasTTY:       term.IsTerminal(int(os.Stdin.Fd())),
		MarkerExists: err == nil,
	}
}
