package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/boshu2/baton/internal/config"
	"github.com/boshu2/baton/internal/delegation"
	"github.com/boshu2/baton/internal/hooklog"
	"github.com/boshu2/baton/internal/role"
	"github.com/boshu2/baton/internal/storage"
	"github.com/boshu2/baton/internal/types"
)

// EnvHooksDisabled turns every hook into a silent Allow.
const EnvHooksDisabled = "BATON_HOOKS_DISABLED"

// hookRuntime is everything one hook invocation needs, captured once from the
// process environment so tests can build it by hand.
type hookRuntime struct {
	env        map[string]string
	projectDir string
	cfg        *config.Config
	roleCtx    role.Context
	store      storage.StateStore
	log        *hooklog.Logger
}

// flagConfig turns explicitly set global flags into the top config layer.
func flagConfig(cmd *cobra.Command) *config.Config {
	flags := &config.Config{}
	if cmd != nil && cmd.Flags().Changed("output") {
		flags.Output = GetOutput()
	}
	if GetVerbose() {
		flags.Verbose = true
	}
	return flags
}

// newRuntime builds a hookRuntime from the live process. Config problems fall
// back to defaults and are reported on the diagnostic stream, never as a
// command failure.
func newRuntime(cmd *cobra.Command) *hookRuntime {
	roleCtx := role.FromEnvironment()
	projectDir := role.ProjectDir(roleCtx.Env)

	cfg, cfgErr := config.LoadOrDefault(projectDir, flagConfig(cmd))

	log, logErr := hooklog.Open(hooklog.Options{
		Enabled: hooklog.Enabled(roleCtx.Env, projectDir, cfg.Log.Debug),
		Path:    cfg.LogPath(projectDir),
		Verbose: cfg.Verbose,
		Level:   cfg.Log.Level,
	})
	if cfgErr != nil {
		log.Warn(cfgErr, "config invalid, using defaults")
	}
	if logErr != nil {
		log.Warn(logErr, "open decision log")
	}

	var store storage.StateStore = storage.NewFileStore(storage.WithDir(cfg.State.Dir))
	if GetDryRun() {
		store = dryRunStore{disk: store}
	}

	return &hookRuntime{
		env:        roleCtx.Env,
		projectDir: projectDir,
		cfg:        cfg,
		roleCtx:    roleCtx,
		store:      store,
		log:        log,
	}
}

// Close releases the decision log.
func (rt *hookRuntime) Close() {
	if err := rt.log.Close(); err != nil {
		VerbosePrintf("close decision log: %v\n", err)
	}
}

// disabled reports whether the global kill switch is set.
func (rt *hookRuntime) disabled() bool {
	v := strings.TrimSpace(rt.env[EnvHooksDisabled])
	return v != "" && v != "0" && !strings.EqualFold(v, "false")
}

// role resolves the calling role.
func (rt *hookRuntime) role() types.Role {
	return role.Resolve(rt.roleCtx)
}

// key returns the state key for r. Session keying uses the event's session
// id, then CLAUDE_SESSION_ID, and falls back to the project key when
// neither is known.
func (rt *hookRuntime) key(r types.Role, sessionID string) storage.Key {
	if rt.cfg.State.Keying == config.KeyingSession {
		if sessionID == "" {
			sessionID = strings.TrimSpace(rt.env[role.EnvSessionID])
		}
		if sessionID != "" {
			return storage.SessionKey(sessionID, r)
		}
	}
	return storage.ProjectKey(rt.projectDir, r)
}

// counter builds the delegation counter from config.
func (rt *hookRuntime) counter() delegation.Counter {
	return delegation.Counter{
		Window:  rt.cfg.Delegation.Window(),
		WarnAt:  rt.cfg.Delegation.WarnThreshold,
		BlockAt: rt.cfg.Delegation.BlockThreshold,
	}
}

// engine builds a delegation engine over the runtime's store.
func (rt *hookRuntime) engine() *delegation.Engine {
	return delegation.NewEngine(rt.store,
		delegation.WithCounter(rt.counter()),
		delegation.WithLogger(rt.log),
	)
}

// fileStore returns the on-disk store regardless of dry-run, for commands
// that report on it.
func (rt *hookRuntime) fileStore() *storage.FileStore {
	switch s := rt.store.(type) {
	case *storage.FileStore:
		return s
	case dryRunStore:
		if fs, ok := s.disk.(*storage.FileStore); ok {
			return fs
		}
	}
	return storage.NewFileStore(storage.WithDir(rt.cfg.State.Dir))
}

// dryRunStore reads persisted state but discards writes.
type dryRunStore struct {
	disk storage.StateStore
}

func (d dryRunStore) Load(key storage.Key) storage.DelegationState {
	return d.disk.Load(key)
}

func (d dryRunStore) Save(key storage.Key, st storage.DelegationState) error {
	VerbosePrintf("[dry-run] would save %s: count=%d\n", key, st.NonDelegateCount)
	return nil
}
