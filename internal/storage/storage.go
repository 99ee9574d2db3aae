// Package storage persists the per-(project, role) delegation counter.
//
// Every hook invocation is its own short-lived process, so the counter has
// to survive between invocations on disk. Reads degrade to the zero state;
// writes go through a temp file and an atomic rename so a concurrent reader
// never sees a torn record. There is no cross-process locking: two
// invocations racing on the same key may both read the same base count.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/boshu2/baton/internal/types"
)

// DelegationState is the only persisted record.
type DelegationState struct {
	// WindowStart is the unix second the current observation window began (0 = uninitialized).
	WindowStart int64 `json:"window_start_ts" yaml:"window_start_ts"`

	// NonDelegateCount is the number of non-delegated work-tool calls inside the window.
	NonDelegateCount int `json:"non_delegate_count" yaml:"non_delegate_count"`

	// LastDelegation is the unix second of the most recent detected delegation.
	LastDelegation int64 `json:"last_delegation_ts" yaml:"last_delegation_ts"`

	// LastWarningAt is the count at which the elevated warning was last emitted.
	LastWarningAt int `json:"last_warning_at" yaml:"last_warning_at"`
}

// Key identifies one counter. Conductor and Musician never share a key,
// and neither do two projects.
type Key struct {
	ProjectID string
	Role      types.Role
}

// String renders the key as it appears in state file names.
func (k Key) String() string {
	return k.ProjectID + "-" + k.Role.String()
}

// ProjectKey derives a key from the project directory. The path is made
// absolute and cleaned first so "." and the full path converge.
func ProjectKey(projectDir string, role types.Role) Key {
	dir := projectDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return Key{ProjectID: hashID(filepath.Clean(dir)), Role: role}
}

// SessionKey derives a key from the host session ID instead of the project.
func SessionKey(sessionID string, role types.Role) Key {
	return Key{ProjectID: "s" + hashID(strings.TrimSpace(sessionID)), Role: role}
}

// hashID returns the first 16 hex characters of sha256(s).
func hashID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// StateStore loads and saves delegation counters.
type StateStore interface {
	// Load returns the stored record, or the zero state when it is absent
	// or unreadable.
	Load(key Key) DelegationState

	// Save persists the record. Callers treat errors as non-fatal.
	Save(key Key, st DelegationState) error
}
