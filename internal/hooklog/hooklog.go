// Package hooklog records hook decisions as structured JSON lines.
//
// The decision log is off by default. It is switched on by the
// CLAUDE_HOOK_DEBUG environment variable, a .claude/.hook-debug marker in
// the project, or the log.debug config key, and appends one zerolog event
// per decision to .claude/logs/hook-debug.jsonl. Diagnostics (I/O failures
// that were swallowed) go to stderr only in verbose mode.
package hooklog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// EnvDebug enables the decision log when set to any value.
	EnvDebug = "CLAUDE_HOOK_DEBUG"

	// DebugMarker enables the decision log when present under .claude/.
	DebugMarker = ".hook-debug"

	// DefaultPath is the decision log location relative to the project root.
	DefaultPath = ".claude/logs/hook-debug.jsonl"

	// maxInputSummary truncates tool input in log lines.
	maxInputSummary = 200
)

// Entry is one decision to record.
type Entry struct {
	Hook      string
	Tool      string
	ToolInput string
	Role      string
	Decision  string
	Reason    string
	Context   string
}

// Logger writes decision entries and diagnostics.
type Logger struct {
	trace        zerolog.Logger
	diag         zerolog.Logger
	invocationID string
	closer       io.Closer
}

// Options configures Open.
type Options struct {
	// Enabled turns on the JSONL decision log.
	Enabled bool
	// Path is the decision log file.
	Path string
	// Verbose sends diagnostics to stderr.
	Verbose bool
	// Level filters both streams (default info).
	Level string
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{
		trace:        zerolog.Nop(),
		diag:         zerolog.Nop(),
		invocationID: NewInvocationID(),
	}
}

// New wraps existing writers. A nil writer disables that stream.
func New(trace, diag io.Writer) *Logger {
	l := Nop()
	if trace != nil {
		l.trace = zerolog.New(trace).With().Timestamp().Str("invocation_id", l.invocationID).Logger()
	}
	if diag != nil {
		l.diag = zerolog.New(diag).With().Timestamp().Logger()
	}
	return l
}

// Open builds a Logger from options. Failure to open the decision log is
// not fatal: the trace stream falls back to Nop and the error is returned
// for the caller to report.
func Open(opts Options) (*Logger, error) {
	l := Nop()

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil && opts.Level != "" {
		level = parsed
	}

	if opts.Verbose {
		l.diag = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}

	if !opts.Enabled || opts.Path == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return l, err
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return l, err
	}
	l.closer = f
	l.trace = zerolog.New(f).Level(level).With().Timestamp().Str("invocation_id", l.invocationID).Logger()
	return l, nil
}

// Enabled reports whether the decision log should be written for a project.
func Enabled(env map[string]string, projectDir string, configured bool) bool {
	if configured {
		return true
	}
	if _, ok := env[EnvDebug]; ok {
		return true
	}
	_, err := os.Stat(filepath.Join(projectDir, ".claude", DebugMarker))
	return err == nil
}

// NewInvocationID returns a short correlation ID for one hook process.
func NewInvocationID() string {
	return "inv_" + uuid.New().String()[:12]
}

// InvocationID returns the correlation ID stamped on every trace line.
func (l *Logger) InvocationID() string {
	if l == nil {
		return ""
	}
	return l.invocationID
}

// Decision records one hook decision.
func (l *Logger) Decision(e Entry) {
	if l == nil {
		return
	}
	ev := l.trace.Info().
		Str("hook", e.Hook).
		Str("tool", e.Tool).
		Str("tool_input", truncate(e.ToolInput, maxInputSummary)).
		Str("role", e.Role).
		Str("decision", e.Decision).
		Str("reason", e.Reason)
	if e.Context != "" {
		ev = ev.Str("context", e.Context)
	}
	ev.Msg("hook decision")

	l.diag.Debug().Str("hook", e.Hook).Str("tool", e.Tool).Str("decision", e.Decision).Msg(e.Reason)
}

// Warn reports a swallowed failure.
func (l *Logger) Warn(err error, msg string) {
	if l == nil {
		return
	}
	l.diag.Warn().Err(err).Msg(msg)
	l.trace.Warn().Err(err).Msg(msg)
}

// Close flushes and closes the decision log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
