// Package replay executes a plan's actions through the input-simulation
// collaborator, as a state machine with deterministic failure semantics: the
// first failing action halts the run, and an abort request is honored
// between actions, never mid-dispatch. No effect verification is performed.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvandessel/deskpilot/internal/input"
	"github.com/nvandessel/deskpilot/internal/models"
)

// State is a replay lifecycle state.
type State string

const (
	StateLoaded    State = "loaded"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateAborted   State = "aborted"
)

// Result is the terminal outcome of one replay.
type Result struct {
	Plan  string `json:"plan"`
	State State  `json:"state"`

	// Dispatched is how many actions ran to completion.
	Dispatched int `json:"dispatched"`

	// FailedIndex is the 0-based index of the failing action when State is
	// failed; NextIndex is the first not-yet-run action when State is
	// aborted. -1 otherwise.
	FailedIndex int `json:"failed_index"`
	NextIndex   int `json:"next_index"`

	// Err is the automation failure when State is failed.
	Err error `json:"-"`
}

// Line renders the result for the control surface.
func (r Result) Line() string {
	switch r.State {
	case StateCompleted:
		return fmt.Sprintf("plan %q completed, %d action(s) dispatched", r.Plan, r.Dispatched)
	case StateFailed:
		return fmt.Sprintf("plan %q failed at action %d: %v", r.Plan, r.FailedIndex, r.Err)
	case StateAborted:
		return fmt.Sprintf("plan %q aborted before action %d", r.Plan, r.NextIndex)
	}
	return fmt.Sprintf("plan %q: %s", r.Plan, r.State)
}

// Config holds replay tunables.
type Config struct {
	// StartDelay is the countdown before the first action, giving the user
	// time to focus the target window.
	StartDelay time.Duration

	// SettleDelay is the pause after each dispatched action.
	SettleDelay time.Duration
}

// Replayer executes plans one at a time.
type Replayer struct {
	sim input.Simulator
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	state   State
	pending atomic.Bool
}

// New creates a replayer in the loaded state.
func New(sim input.Simulator, cfg Config, log *slog.Logger) *Replayer {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Replayer{sim: sim, cfg: cfg, log: log, state: StateLoaded}
}

// State returns the current lifecycle state.
func (r *Replayer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Abort requests that the current replay stop before its next action. It is
// safe to call at any time; with no replay running it is a no-op on the next
// run's start, which clears stale requests.
func (r *Replayer) Abort() {
	r.pending.Store(true)
}

// Run executes the plan's actions in order. It transitions
// Running -> Completed when every action dispatched, -> Failed at the first
// dispatch failure (recording the 0-based failing index; later actions never
// run), or -> Aborted when an abort request or context cancellation is
// observed between actions.
func (r *Replayer) Run(ctx context.Context, plan models.Plan) (Result, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return Result{}, fmt.Errorf("replay already running")
	}
	r.state = StateRunning
	r.pending.Store(false)
	r.mu.Unlock()

	res := Result{Plan: plan.Name, FailedIndex: -1, NextIndex: -1}

	if r.cfg.StartDelay > 0 {
		r.log.Info("replay starting", "plan", plan.Name, "delay", r.cfg.StartDelay)
		r.sleep(ctx, r.cfg.StartDelay)
	}

	for i, action := range plan.Actions {
		if r.pending.Load() || ctx.Err() != nil {
			res.State = StateAborted
			res.NextIndex = i
			r.setState(StateAborted)
			return res, nil
		}

		r.log.Debug("dispatching action", "plan", plan.Name, "index", i, "action", action.Describe())
		if err := r.dispatch(ctx, action); err != nil {
			res.State = StateFailed
			res.FailedIndex = i
			res.Err = err
			r.setState(StateFailed)
			return res, nil
		}
		res.Dispatched++

		r.sleep(ctx, r.cfg.SettleDelay)
	}

	res.State = StateCompleted
	r.setState(StateCompleted)
	return res, nil
}

// dispatch runs one action through the collaborator. Wait actions sleep
// locally instead of touching the input devices.
func (r *Replayer) dispatch(ctx context.Context, action models.Action) error {
	switch action.Type {
	case models.ActionClick:
		if action.Target == nil {
			return &input.AutomationError{Op: "click", Err: fmt.Errorf("missing target")}
		}
		return r.sim.Click(action.Target.X, action.Target.Y)
	case models.ActionTypeText:
		if action.Value == nil {
			return &input.AutomationError{Op: "type", Err: fmt.Errorf("missing value")}
		}
		return r.sim.TypeText(action.Value.Text)
	case models.ActionKeyPress:
		if action.Target == nil {
			return &input.AutomationError{Op: "keypress", Err: fmt.Errorf("missing target")}
		}
		return r.sim.KeyPress(action.Target.Key)
	case models.ActionWait:
		if action.Value == nil {
			return &input.AutomationError{Op: "wait", Err: fmt.Errorf("missing value")}
		}
		r.sleep(ctx, time.Duration(action.Value.DurationMS)*time.Millisecond)
		return nil
	}
	return &input.AutomationError{Op: string(action.Type), Err: fmt.Errorf("unknown action type")}
}

func (r *Replayer) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// sleep waits for d or until the context is cancelled. Cancellation is
// handled by the abort check before the next dispatch.
func (r *Replayer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
