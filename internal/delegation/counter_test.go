package delegation

import (
	"testing"
	"time"

	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		tool types.ToolKind
		in   types.ToolInput
		want Event
	}{
		{"bash is work", types.ToolBash, types.ToolInput{Command: "ls"}, EventWork},
		{"edit is work", types.ToolEdit, types.ToolInput{FilePath: "main.go"}, EventWork},
		{"web search is work", types.ToolWebSearch, types.ToolInput{}, EventWork},
		{"task with subagent type", types.ToolTask, types.ToolInput{SubagentType: "general-purpose"}, EventDelegation},
		{"task naming musician", types.ToolTask, types.ToolInput{Prompt: "Ask the Musician to refactor"}, EventDelegation},
		{"bare task", types.ToolTask, types.ToolInput{Prompt: "summarize the repo"}, EventOther},
		{"blank subagent type", types.ToolTask, types.ToolInput{SubagentType: "  "}, EventOther},
		{"glob", types.ToolOther, types.ToolInput{}, EventOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.tool, tt.in); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_CountsAndTiers(t *testing.T) {
	c := NewCounter()
	var st storage.DelegationState

	wantTiers := []Tier{TierRemind, TierRemind, TierWarn, TierWarn, TierBlock, TierBlock}
	for i, want := range wantTiers {
		out := c.Evaluate(&st, EventWork, t0.Add(time.Duration(i)*time.Second))
		if out.Tier != want {
			t.Errorf("call %d: tier = %v, want %v", i+1, out.Tier, want)
		}
		if out.Count != i+1 || st.NonDelegateCount != i+1 {
			t.Errorf("call %d: count = %d/%d, want %d", i+1, out.Count, st.NonDelegateCount, i+1)
		}
		if !out.Mutated {
			t.Errorf("call %d: work event must mutate", i+1)
		}
		if st.LastWarningAt > st.NonDelegateCount {
			t.Errorf("call %d: last_warning_at %d ahead of count %d", i+1, st.LastWarningAt, st.NonDelegateCount)
		}
	}
	if st.WindowStart != t0.Unix() {
		t.Errorf("window start = %d, want first call %d", st.WindowStart, t0.Unix())
	}
}

func TestEvaluate_FreshWarningOncePerCount(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Unix(), NonDelegateCount: 2}

	out := c.Evaluate(&st, EventWork, t0)
	if out.Tier != TierWarn || !out.FreshWarning {
		t.Fatalf("count 3: outcome = %+v, want fresh warn", out)
	}
	if st.LastWarningAt != 3 {
		t.Errorf("last_warning_at = %d, want 3", st.LastWarningAt)
	}

	// Same count replayed (e.g. a lost save on a concurrent invocation).
	st.NonDelegateCount = 2
	out = c.Evaluate(&st, EventWork, t0)
	if out.Tier != TierWarn || out.FreshWarning {
		t.Errorf("repeated count 3: outcome = %+v, want warn without fresh warning", out)
	}

	out = c.Evaluate(&st, EventWork, t0)
	if !out.FreshWarning || st.LastWarningAt != 4 {
		t.Errorf("count 4: outcome = %+v last_warning_at = %d, want fresh warning at 4", out, st.LastWarningAt)
	}
}

func TestEvaluate_Delegation(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Unix(), NonDelegateCount: 4, LastWarningAt: 4}
	now := t0.Add(90 * time.Second)

	out := c.Evaluate(&st, EventDelegation, now)
	if !out.Delegated || !out.Mutated || out.Tier != TierNone {
		t.Errorf("outcome = %+v", out)
	}
	want := storage.DelegationState{WindowStart: now.Unix(), LastDelegation: now.Unix()}
	if st != want {
		t.Errorf("state = %+v, want %+v", st, want)
	}
}

func TestEvaluate_WindowExpiry(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Unix(), NonDelegateCount: 7, LastWarningAt: 4}

	// Exactly at the window edge is still inside the window.
	edge := t0.Add(DefaultWindow)
	out := c.Evaluate(&st, EventWork, edge)
	if out.Expired || out.Count != 8 {
		t.Fatalf("at edge: outcome = %+v, want count 8 without expiry", out)
	}

	later := t0.Add(DefaultWindow + time.Second)
	out = c.Evaluate(&st, EventWork, later)
	if !out.Expired {
		t.Error("expected window expiry")
	}
	if out.Count != 1 || out.Tier != TierRemind {
		t.Errorf("after expiry: outcome = %+v, want count 1 remind", out)
	}
	if st.WindowStart != later.Unix() {
		t.Errorf("window start = %d, want %d", st.WindowStart, later.Unix())
	}
	if st.LastWarningAt != 0 {
		t.Errorf("last_warning_at = %d, want reset to 0", st.LastWarningAt)
	}
}

func TestEvaluate_ExpiredWarnFiresAgain(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Unix(), NonDelegateCount: 4, LastWarningAt: 4}

	now := t0.Add(time.Hour)
	var out Outcome
	for i := 0; i < 3; i++ {
		out = c.Evaluate(&st, EventWork, now)
	}
	if out.Count != 3 || !out.FreshWarning {
		t.Errorf("third call after expiry: outcome = %+v, want fresh warning at 3", out)
	}
}

func TestEvaluate_FutureWindowIsStale(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Add(time.Hour).Unix(), NonDelegateCount: 4}

	out := c.Evaluate(&st, EventWork, t0)
	if !out.Expired || out.Count != 1 {
		t.Errorf("outcome = %+v, want expiry and count 1", out)
	}
	if st.WindowStart > t0.Unix() {
		t.Errorf("window start %d is after now %d", st.WindowStart, t0.Unix())
	}
}

func TestEvaluate_OtherEventUntouched(t *testing.T) {
	c := NewCounter()
	st := storage.DelegationState{WindowStart: t0.Unix(), NonDelegateCount: 3, LastWarningAt: 3}
	before := st

	out := c.Evaluate(&st, EventOther, t0.Add(time.Hour))
	if out.Mutated || out.Tier != TierNone {
		t.Errorf("outcome = %+v, want untouched", out)
	}
	if st != before {
		t.Errorf("state changed: %+v -> %+v", before, st)
	}
}

func TestCounter_CustomThresholds(t *testing.T) {
	c := Counter{Window: time.Minute, WarnAt: 1, BlockAt: 2}
	var st storage.DelegationState

	if out := c.Evaluate(&st, EventWork, t0); out.Tier != TierWarn {
		t.Errorf("call 1 tier = %v, want warn", out.Tier)
	}
	if out := c.Evaluate(&st, EventWork, t0); out.Tier != TierBlock {
		t.Errorf("call 2 tier = %v, want block", out.Tier)
	}
	if out := c.Evaluate(&st, EventWork, t0.Add(61*time.Second)); !out.Expired {
		t.Error("custom window should expire after a minute")
	}
}

func TestCounter_ZeroValueUsesDefaults(t *testing.T) {
	var c Counter
	if c.Threshold() != DefaultBlockThreshold {
		t.Errorf("Threshold() = %d, want %d", c.Threshold(), DefaultBlockThreshold)
	}
	st := storage.DelegationState{WindowStart: t0.Unix()}
	if c.Stale(st, t0.Add(DefaultWindow)) {
		t.Error("zero Counter should use the default window")
	}
}
