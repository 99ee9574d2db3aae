package delegation

import (
	"fmt"
	"time"

	"github.com/boshu2/baton/internal/allowlist"
	"github.com/boshu2/baton/internal/hooklog"
	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

// HookName identifies the engine in the decision log.
const HookName = "enforce-delegation"

// Invocation is one tool call as seen by the engine, already validated at
// the boundary.
type Invocation struct {
	Tool     types.ToolKind
	ToolName string
	Input    types.ToolInput
	Role     types.Role
	Key      storage.Key
}

// Engine maps counter tiers to hook decisions and persists the counter.
type Engine struct {
	Store   storage.StateStore
	Counter Counter
	Log     *hooklog.Logger

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCounter replaces the default window and thresholds.
func WithCounter(c Counter) Option {
	return func(e *Engine) {
		e.Counter = c
	}
}

// WithLogger sets the decision logger.
func WithLogger(l *hooklog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Log = l
		}
	}
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.Now = now
		}
	}
}

// NewEngine creates an Engine over store.
func NewEngine(store storage.StateStore, opts ...Option) *Engine {
	e := &Engine{
		Store:   store,
		Counter: NewCounter(),
		Log:     hooklog.Nop(),
		Now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates one invocation. It never fails: state that cannot be
// read is treated as fresh, and state that cannot be written is dropped
// after logging.
func (e *Engine) Decide(inv Invocation) types.Decision {
	if !inv.Role.Restricted() {
		e.record(inv, types.Allow(), "skip", "musician has no restrictions")
		return types.Allow()
	}

	if inv.Tool.IsFileTool() && allowlist.Allowed(inv.Input.FilePath) {
		e.record(inv, types.Allow(), "allow", "file in allowlist")
		return types.Allow()
	}

	ev := Classify(inv.Tool, inv.Input)
	if ev == EventOther {
		e.record(inv, types.Allow(), "skip", "not a work tool")
		return types.Allow()
	}

	st := e.Store.Load(inv.Key)
	out := e.Counter.Evaluate(&st, ev, e.Now())
	d := e.decisionFor(inv.Role, out)

	if out.Mutated {
		if err := e.Store.Save(inv.Key, st); err != nil {
			e.Log.Warn(err, "save delegation state")
		}
	}

	e.record(inv, d, out.Tier.String(), e.reason(out))
	return d
}

func (e *Engine) decisionFor(role types.Role, out Outcome) types.Decision {
	blockAt := e.Counter.Threshold()
	switch out.Tier {
	case TierBlock:
		return types.Deny(blockMessage(role, out.Count))
	case TierWarn:
		if out.FreshWarning {
			return types.AllowWith(warningMessage(out.Count, blockAt))
		}
		return types.AllowWith(reminderMessage(out.Count, blockAt))
	case TierRemind:
		return types.AllowWith(reminderMessage(out.Count, blockAt))
	default:
		return types.Allow()
	}
}

func (e *Engine) reason(out Outcome) string {
	switch {
	case out.Delegated && out.Expired:
		return "window expired; delegation detected, counter reset"
	case out.Delegated:
		return "delegation detected, counter reset"
	case out.Tier == TierBlock:
		return fmt.Sprintf("block threshold reached: %d/%d", out.Count, e.Counter.Threshold())
	case out.Expired:
		return fmt.Sprintf("window expired, restarted at %d/%d", out.Count, e.Counter.Threshold())
	default:
		return fmt.Sprintf("work tool count: %d/%d", out.Count, e.Counter.Threshold())
	}
}

func (e *Engine) record(inv Invocation, d types.Decision, kind, reason string) {
	name := inv.ToolName
	if name == "" {
		name = inv.Tool.String()
	}
	e.Log.Decision(hooklog.Entry{
		Hook:      HookName,
		Tool:      name,
		ToolInput: inv.Input.Summary(),
		Role:      inv.Role.String(),
		Decision:  d.Permission.String(),
		Reason:    kind + ": " + reason,
	})
}
