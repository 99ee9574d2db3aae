// Package delegation implements the sliding-window delegation counter and
// the decision engine that turns its tiers into hook decisions.
//
// A restricted role (the Conductor) is expected to hand work off to
// Musicians through the Task tool. Every direct use of a work tool inside
// the window increments a persisted counter; the count escalates the
// response from a reminder, to a warning, to a denial. A genuine delegation
// resets the counter, and so does a window older than Counter.Window.
package delegation

import (
	"strings"
	"time"

	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

// Defaults for the counter.
const (
	DefaultWindow         = 600 * time.Second
	DefaultWarnThreshold  = 3
	DefaultBlockThreshold = 5
)

// Event classifies an invocation for the counter.
type Event int

const (
	// EventOther leaves the counter untouched.
	EventOther Event = iota
	// EventWork is a non-delegated work-tool call.
	EventWork
	// EventDelegation is a genuine hand-off to a subordinate.
	EventDelegation
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventWork:
		return "work"
	case EventDelegation:
		return "delegation"
	default:
		return "other"
	}
}

// subordinateName is the role name whose mention in a Task prompt marks a hand-off.
var subordinateName = types.RoleMusician.String()

// Classify maps a tool call to a counter event. A Task call only counts as
// delegation when it names a subagent type or addresses a musician in its
// prompt; a bare Task call is EventOther.
func Classify(tool types.ToolKind, in types.ToolInput) Event {
	switch {
	case tool.IsDelegation():
		if IsHandOff(in) {
			return EventDelegation
		}
		return EventOther
	case tool.IsWork():
		return EventWork
	default:
		return EventOther
	}
}

// IsHandOff reports whether Task parameters indicate a genuine delegation.
func IsHandOff(in types.ToolInput) bool {
	if strings.TrimSpace(in.SubagentType) != "" {
		return true
	}
	return strings.Contains(strings.ToLower(in.Prompt), subordinateName)
}

// Tier is the escalation level derived from the count.
type Tier int

const (
	TierNone Tier = iota
	TierRemind
	TierWarn
	TierBlock
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierRemind:
		return "remind"
	case TierWarn:
		return "warn"
	case TierBlock:
		return "block"
	default:
		return "none"
	}
}

// Outcome describes what Evaluate did to the state.
type Outcome struct {
	Tier  Tier
	Count int

	// FreshWarning is set when the warn tier was reached at a count not yet warned about.
	FreshWarning bool

	// Mutated is set when the state must be persisted.
	Mutated bool

	// Expired is set when the window had lapsed and was restarted.
	Expired bool

	// Delegated is set when the event was a hand-off.
	Delegated bool
}

// Counter holds the window length and thresholds.
type Counter struct {
	Window  time.Duration
	WarnAt  int
	BlockAt int
}

// NewCounter returns a Counter with the default window and thresholds.
func NewCounter() Counter {
	return Counter{
		Window:  DefaultWindow,
		WarnAt:  DefaultWarnThreshold,
		BlockAt: DefaultBlockThreshold,
	}
}

func (c Counter) windowSeconds() int64 {
	if c.Window <= 0 {
		return int64(DefaultWindow / time.Second)
	}
	return int64(c.Window / time.Second)
}

func (c Counter) warnAt() int {
	if c.WarnAt <= 0 {
		return DefaultWarnThreshold
	}
	return c.WarnAt
}

func (c Counter) blockAt() int {
	if c.BlockAt <= 0 {
		return DefaultBlockThreshold
	}
	return c.BlockAt
}

// Threshold returns the count at which calls are denied.
func (c Counter) Threshold() int {
	return c.blockAt()
}

// Stale reports whether st's window has lapsed at now. A window start in
// the future (clock moved backwards) is also stale.
func (c Counter) Stale(st storage.DelegationState, now time.Time) bool {
	if st.WindowStart <= 0 {
		return false
	}
	ts := now.Unix()
	return ts-st.WindowStart > c.windowSeconds() || st.WindowStart > ts
}

// Evaluate applies one event to st and returns the resulting tier.
//
// Order: window expiry, delegation (terminal), work-tool increment, tier.
// EventOther leaves st untouched.
func (c Counter) Evaluate(st *storage.DelegationState, ev Event, now time.Time) Outcome {
	var out Outcome
	if ev == EventOther {
		return out
	}

	ts := now.Unix()

	if c.Stale(*st, now) {
		st.NonDelegateCount = 0
		st.LastWarningAt = 0
		st.WindowStart = ts
		out.Expired = true
		out.Mutated = true
	}

	if ev == EventDelegation {
		st.LastDelegation = ts
		st.NonDelegateCount = 0
		st.LastWarningAt = 0
		st.WindowStart = ts
		out.Delegated = true
		out.Mutated = true
		return out
	}

	if st.WindowStart == 0 {
		st.WindowStart = ts
	}
	st.NonDelegateCount++
	out.Mutated = true
	out.Count = st.NonDelegateCount

	switch {
	case st.NonDelegateCount >= c.blockAt():
		out.Tier = TierBlock
	case st.NonDelegateCount >= c.warnAt():
		out.Tier = TierWarn
		if st.NonDelegateCount > st.LastWarningAt {
			st.LastWarningAt = st.NonDelegateCount
			out.FreshWarning = true
		}
	default:
		out.Tier = TierRemind
	}
	return out
}
