package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boshu2/baton/internal/config"
	"github.com/boshu2/baton/internal/role"
	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

func TestBuildStateView(t *testing.T) {
	rt := conductorRuntime(t)
	now := time.Unix(1700000000, 0)
	key := rt.key(types.RoleConductor, "")
	if err := rt.store.Save(key, storage.DelegationState{WindowStart: now.Unix() - 100, NonDelegateCount: 3, LastWarningAt: 3}); err != nil {
		t.Fatal(err)
	}

	v := buildStateView(rt, types.RoleConductor, now)
	if v.Status != "warning" {
		t.Errorf("status = %q, want warning", v.Status)
	}
	if v.WindowRemaining != 500 {
		t.Errorf("window remaining = %d, want 500", v.WindowRemaining)
	}
	if v.Stale {
		t.Error("window should not be stale")
	}

	v = buildStateView(rt, types.RoleConductor, now.Add(20*time.Minute))
	if !v.Stale || v.Status != "clean" {
		t.Errorf("after window: stale=%v status=%q", v.Stale, v.Status)
	}
}

func TestStateStatus(t *testing.T) {
	c := conductorRuntime(t).counter()
	tests := []struct {
		count int
		stale bool
		want  string
	}{
		{0, false, "clean"},
		{2, false, "counting"},
		{3, false, "warning"},
		{5, false, "blocked"},
		{9, true, "clean"},
	}
	for _, tt := range tests {
		if got := stateStatus(c, tt.count, tt.stale); got != tt.want {
			t.Errorf("stateStatus(%d, %v) = %q, want %q", tt.count, tt.stale, got, tt.want)
		}
	}
}

func TestOutputState_Formats(t *testing.T) {
	v := stateView{Key: "abc-conductor", Role: "conductor", NonDelegateCount: 2, Status: "counting"}

	var out bytes.Buffer
	if err := outputState(&out, v, "json"); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if decoded["non_delegate_count"].(float64) != 2 {
		t.Errorf("json = %v", decoded)
	}

	out.Reset()
	if err := outputState(&out, v, "yaml"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "status: counting") {
		t.Errorf("yaml = %q", out.String())
	}

	out.Reset()
	if err := outputState(&out, v, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Last delegation:") || !strings.Contains(out.String(), "never") {
		t.Errorf("table = %q", out.String())
	}
}

func TestResetState(t *testing.T) {
	rt := conductorRuntime(t)
	rt.env[role.EnvSessionID] = "sess-1"
	key := rt.key(types.RoleConductor, "")
	if err := rt.store.Save(key, storage.DelegationState{WindowStart: 100, NonDelegateCount: 7, LastWarningAt: 3}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	now := time.Unix(1700000000, 0)
	if err := resetState(&out, rt, types.RoleConductor, "hotfix with a human", now); err != nil {
		t.Fatalf("resetState: %v", err)
	}
	if !strings.Contains(out.String(), "hotfix with a human") {
		t.Errorf("output = %q", out.String())
	}

	if got := rt.store.Load(key); got != (storage.DelegationState{}) {
		t.Errorf("state after reset = %+v", got)
	}

	f, err := os.Open(filepath.Join(rt.projectDir, ResetLogPath))
	if err != nil {
		t.Fatalf("open reset log: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("reset log is empty")
	}
	var entry resetEntry
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("decode reset entry: %v", err)
	}
	if entry.Reason != "hotfix with a human" || entry.SessionID != "sess-1" || entry.Role != "conductor" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestResetState_DefaultReason(t *testing.T) {
	rt := conductorRuntime(t)
	var out bytes.Buffer
	if err := resetState(&out, rt, types.RoleConductor, "", time.Now()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), defaultResetReason) {
		t.Errorf("output = %q", out.String())
	}
}

func TestResetState_UnblocksConductor(t *testing.T) {
	rt := conductorRuntime(t)
	for i := 0; i < 5; i++ {
		runEnforceDelegation(rt, event(t, "Bash", map[string]any{"command": "ls"}), &bytes.Buffer{})
	}
	if err := resetState(&bytes.Buffer{}, rt, types.RoleConductor, "test", time.Now()); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runEnforceDelegation(rt, event(t, "Bash", map[string]any{"command": "ls"}), &out)
	o := decode(t, &out)
	if *o.HookSpecificOutput.PermissionDecision != types.PermissionAllow {
		t.Errorf("first call after reset = %v, want allow", *o.HookSpecificOutput.PermissionDecision)
	}
}

func TestDryRunStore(t *testing.T) {
	disk := storage.NewMemoryStore()
	key := storage.ProjectKey(t.TempDir(), types.RoleConductor)
	if err := disk.Save(key, storage.DelegationState{NonDelegateCount: 2}); err != nil {
		t.Fatal(err)
	}

	d := dryRunStore{disk: disk}
	if got := d.Load(key).NonDelegateCount; got != 2 {
		t.Errorf("Load = %d, want 2", got)
	}
	if err := d.Save(key, storage.DelegationState{NonDelegateCount: 9}); err != nil {
		t.Fatal(err)
	}
	if got := disk.Load(key).NonDelegateCount; got != 2 {
		t.Errorf("dry-run save reached disk: %d", got)
	}
}

func TestBuildRoleView(t *testing.T) {
	rt := testRuntime(t, map[string]string{role.EnvRole: "conductor"}, true)
	v := buildRoleView(rt)
	if v.Role != "conductor" || v.Reason != "AGENT_ROLE=conductor" {
		t.Errorf("role view = %+v", v)
	}

	rt = testRuntime(t, map[string]string{role.EnvRole: "conductor"}, false)
	if v := buildRoleView(rt); v.Role != "musician" {
		t.Errorf("no tty role = %q, want musician", v.Role)
	}

	var out bytes.Buffer
	if err := outputRole(&out, v, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "conductor (") {
		t.Errorf("table = %q", out.String())
	}
}

func TestOutputConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BATON_CONFIG", "")
	t.Setenv("BATON_WINDOW_SECONDS", "120")

	dir := t.TempDir()
	resolved := config.Resolve(dir, &config.Config{})

	var out bytes.Buffer
	if err := outputConfig(&out, dir, resolved, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "delegation.window_seconds") || !strings.Contains(out.String(), "environment") {
		t.Errorf("table = %q", out.String())
	}

	out.Reset()
	if err := outputConfig(&out, dir, resolved, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"window_seconds"`) {
		t.Errorf("json = %q", out.String())
	}
}

func TestOutputStateList(t *testing.T) {
	rt := conductorRuntime(t)
	now := time.Now()
	if err := rt.store.Save(rt.key(types.RoleConductor, ""), storage.DelegationState{WindowStart: now.Unix() - 10, NonDelegateCount: 5}); err != nil {
		t.Fatal(err)
	}

	records, err := rt.fileStore().List()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := outputStateList(&out, rt, records, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "blocked") || !strings.Contains(out.String(), "KEY") {
		t.Errorf("list table = %q", out.String())
	}

	out.Reset()
	empty := testRuntime(t, nil, true)
	if err := outputStateList(&out, empty, nil, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No delegation state") {
		t.Errorf("empty list = %q", out.String())
	}
}

func TestPruneState(t *testing.T) {
	rt := conductorRuntime(t)
	key := rt.key(types.RoleConductor, "")
	if err := rt.store.Save(key, storage.DelegationState{NonDelegateCount: 1}); err != nil {
		t.Fatal(err)
	}
	path := rt.fileStore().Path(key)
	past := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := pruneState(&out, rt, 24*time.Hour, time.Now()); err != nil {
		t.Fatalf("pruneState: %v", err)
	}
	if !strings.Contains(out.String(), "Removed 1") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("state file survived prune: %v", err)
	}
}
