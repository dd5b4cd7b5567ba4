// Package daemon wires the compositor client, telemetry sampler, context
// store, model planner, and action executor into the long-running service
// and owns the query pipeline.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hyprpilot/internal/actions"
	"hyprpilot/internal/ai"
	"hyprpilot/internal/hypr"
	"hyprpilot/internal/store"
	"hyprpilot/internal/telemetry"
)

// Compositor is the slice of the hypr client the daemon drives.
type Compositor interface {
	GetSnapshot() hypr.Snapshot
	StartEventListener(ctx context.Context)
	RegisterObserver(hypr.Observer) int
	Unregister(token int)
	Stop()
}

// Executor runs planned actions and captures the screen for the model.
type Executor interface {
	Execute(ctx context.Context, spec actions.Spec) actions.Result
	CaptureScreen(ctx context.Context, selection bool) ([]byte, error)
}

// ContextStore is the persistence surface the daemon writes through.
type ContextStore interface {
	Keybindings() []store.Keybinding
	AddCommand(ctx context.Context, query, action string, success bool, output string) error
	RecentCommands(ctx context.Context, limit int) ([]store.CommandRecord, error)
	AddConversationTurn(ctx context.Context, role, content string) error
	ConversationHistory(ctx context.Context, limit int) ([]store.ConversationTurn, error)
	PersistSystemState(ctx context.Context, state any) error
	GetStats(ctx context.Context) (store.Stats, error)
}

// Telemetry is the sampler surface the daemon reads.
type Telemetry interface {
	Run(ctx context.Context)
	GetState(ctx context.Context) telemetry.Snapshot
	TopProcesses(limit int) []telemetry.ProcessInfo
	Temperature() []telemetry.TemperatureReading
}

// Daemon is the orchestrator. One instance per process.
type Daemon struct {
	log        *zap.Logger
	compositor Compositor
	sampler    Telemetry
	store      ContextStore
	planner    ai.Planner
	executor   Executor

	persistInterval time.Duration

	// queryMu serializes queries; concurrent input simulation against one
	// desktop interleaves keystrokes.
	queryMu sync.Mutex
}

// Options carries the collaborators Run needs.
type Options struct {
	Compositor      Compositor
	Sampler         Telemetry
	Store           ContextStore
	Planner         ai.Planner
	Executor        Executor
	PersistInterval time.Duration
}

// New assembles a daemon from its collaborators.
func New(log *zap.Logger, opts Options) *Daemon {
	if opts.PersistInterval <= 0 {
		opts.PersistInterval = 30 * time.Second
	}
	return &Daemon{
		log:             log,
		compositor:      opts.Compositor,
		sampler:         opts.Sampler,
		store:           opts.Store,
		planner:         opts.Planner,
		executor:        opts.Executor,
		persistInterval: opts.PersistInterval,
	}
}

// Run starts the background loops and blocks until ctx is cancelled.
// Each loop is supervised: an exit before cancellation is logged and the
// loop restarts after a fixed backoff.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return supervise(ctx, d.log, "event-listener", func(ctx context.Context) error {
			d.compositor.StartEventListener(ctx)
			return nil
		})
	})
	g.Go(func() error {
		return supervise(ctx, d.log, "telemetry", func(ctx context.Context) error {
			d.sampler.Run(ctx)
			return nil
		})
	})
	g.Go(func() error {
		return supervise(ctx, d.log, "state-persister", d.runPersister)
	})

	err := g.Wait()
	d.compositor.Stop()
	if err == context.Canceled {
		return nil
	}
	return err
}

// runPersister snapshots telemetry into the store on a fixed cadence so
// history survives restarts.
func (d *Daemon) runPersister(ctx context.Context) error {
	ticker := time.NewTicker(d.persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			state := d.sampler.GetState(ctx)
			if err := d.store.PersistSystemState(ctx, state); err != nil {
				d.log.Warn("persist system state failed", zap.Error(err))
			}
		}
	}
}

// OnEvent subscribes an observer to compositor events, returning an
// unsubscribe func.
func (d *Daemon) OnEvent(obs hypr.Observer) func() {
	token := d.compositor.RegisterObserver(obs)
	return func() { d.compositor.Unregister(token) }
}

// SystemState is the aggregate state served to dashboard clients.
type SystemState struct {
	Desktop      hypr.Snapshot                  `json:"desktop"`
	System       telemetry.Snapshot             `json:"system"`
	Processes    []telemetry.ProcessInfo        `json:"top_processes"`
	Temperatures []telemetry.TemperatureReading `json:"temperatures,omitempty"`
	Keybindings  []store.Keybinding             `json:"keybindings"`
	Recent       []store.CommandRecord          `json:"recent_commands"`
	Timestamp    time.Time                      `json:"timestamp"`
}

// stateRecentCommands is how much command history rides along in a
// state snapshot; the prompt context keeps its own tighter cap.
const stateRecentCommands = 10

// State gathers compositor, telemetry, and store state in one call.
func (d *Daemon) State(ctx context.Context) SystemState {
	recent, err := d.store.RecentCommands(ctx, stateRecentCommands)
	if err != nil {
		d.log.Warn("could not read recent commands", zap.Error(err))
	}
	return SystemState{
		Desktop:      d.compositor.GetSnapshot(),
		System:       d.sampler.GetState(ctx),
		Processes:    d.sampler.TopProcesses(5),
		Temperatures: d.sampler.Temperature(),
		Keybindings:  d.store.Keybindings(),
		Recent:       recent,
		Timestamp:    time.Now(),
	}
}

// Keybindings exposes the store's parsed binds.
func (d *Daemon) Keybindings() []store.Keybinding {
	return d.store.Keybindings()
}

// History returns recent command records.
func (d *Daemon) History(ctx context.Context, limit int) ([]store.CommandRecord, error) {
	return d.store.RecentCommands(ctx, limit)
}

// Conversations returns recent conversation turns.
func (d *Daemon) Conversations(ctx context.Context, limit int) ([]store.ConversationTurn, error) {
	return d.store.ConversationHistory(ctx, limit)
}

// Stats exposes the store's aggregate counters.
func (d *Daemon) Stats(ctx context.Context) (store.Stats, error) {
	return d.store.GetStats(ctx)
}
