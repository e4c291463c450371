// Package synth turns a window of enriched events into a validated, saved
// plan. Free-text completion output is never trusted: it passes a strict
// schema boundary, with a bounded corrective-retry loop, before a plan is
// built, and nothing invalid is ever persisted.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/deskpilot/internal/enrich"
	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/llm"
	"github.com/nvandessel/deskpilot/internal/models"
	"github.com/nvandessel/deskpilot/internal/planstore"
)

// SynthesisError is a failed Learn call. No plan was persisted.
type SynthesisError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesizing plan %q failed after %d attempt(s): %v", e.Name, e.Attempts, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Config holds synthesis tunables.
type Config struct {
	// WindowSize is how many recent enriched events feed the prompt.
	WindowSize int

	// MaxRepairAttempts bounds the corrective follow-up prompts after a
	// rejected result.
	MaxRepairAttempts int

	// MaxOutputTokens caps each completion call.
	MaxOutputTokens int

	// ScreenWidth and ScreenHeight bound synthesized click coordinates.
	ScreenWidth  int
	ScreenHeight int
}

// Report summarizes a successful Learn call.
type Report struct {
	Name     string        `json:"name"`
	Actions  int           `json:"actions"`
	Attempts int           `json:"attempts"`
	Enrich   enrich.Report `json:"enrich"`
}

// Line renders the report for the control surface.
func (r Report) Line() string {
	return fmt.Sprintf("learned plan %q with %d action(s) in %d attempt(s)", r.Name, r.Actions, r.Attempts)
}

// Synthesizer builds plans from recent activity.
type Synthesizer struct {
	store     *eventlog.Store
	enricher  *enrich.Enricher
	plans     *planstore.Store
	completer llm.Completer
	validate  *validator
	cfg       Config
	log       *slog.Logger
}

// New creates a synthesizer.
func New(store *eventlog.Store, enricher *enrich.Enricher, plans *planstore.Store, completer llm.Completer, cfg Config, log *slog.Logger) (*Synthesizer, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 15
	}
	if cfg.MaxRepairAttempts < 0 {
		cfg.MaxRepairAttempts = 0
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 4000
	}
	if cfg.ScreenWidth <= 0 {
		cfg.ScreenWidth = 1920
	}
	if cfg.ScreenHeight <= 0 {
		cfg.ScreenHeight = 1080
	}
	if log == nil {
		log = slog.Default()
	}

	v, err := newValidator(cfg.ScreenWidth, cfg.ScreenHeight)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{
		store:     store,
		enricher:  enricher,
		plans:     plans,
		completer: completer,
		validate:  v,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Learn synthesizes and saves a plan under name. It first runs enrichment so
// the prompt sees the freshest events, then prompts the completion
// collaborator and validates its output, retrying with corrective prompts up
// to the configured bound. A persistent failure surfaces as *SynthesisError
// with nothing written; saving over an existing name without overwrite fails
// with planstore.ErrExists.
func (s *Synthesizer) Learn(ctx context.Context, name string, overwrite bool) (Report, error) {
	if name == "" {
		return Report{}, &SynthesisError{Name: name, Err: fmt.Errorf("plan name is empty")}
	}

	enrichReport, err := s.enricher.Run(ctx)
	if err != nil {
		return Report{}, &SynthesisError{Name: name, Err: fmt.Errorf("enrichment: %w", err)}
	}

	events, err := s.store.Tail(s.cfg.WindowSize)
	if err != nil {
		return Report{}, &SynthesisError{Name: name, Err: err}
	}
	if !hasReplayable(events) {
		return Report{}, &SynthesisError{Name: name, Err: fmt.Errorf("no replayable events in the last %d", s.cfg.WindowSize)}
	}

	base := renderPrompt(name, events)
	prompt := base
	attempts := 0
	var actions []models.Action

	for {
		attempts++
		raw, err := s.completer.Complete(ctx, prompt, s.cfg.MaxOutputTokens)
		if err != nil {
			return Report{}, &SynthesisError{Name: name, Attempts: attempts, Err: err}
		}

		actions, err = s.validate.parse(raw)
		if err == nil {
			break
		}

		s.log.Warn("completion result rejected", "plan", name, "attempt", attempts, "error", err)
		if attempts > s.cfg.MaxRepairAttempts {
			return Report{}, &SynthesisError{Name: name, Attempts: attempts, Err: err}
		}
		prompt = renderRepairPrompt(base, raw, err)
	}

	plan := models.Plan{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Actions:   actions,
	}
	if err := s.plans.Save(plan, overwrite); err != nil {
		return Report{}, fmt.Errorf("saving plan %q: %w", name, err)
	}

	return Report{
		Name:     name,
		Actions:  len(actions),
		Attempts: attempts,
		Enrich:   enrichReport,
	}, nil
}

// hasReplayable reports whether the window contains at least one event the
// prompt can render.
func hasReplayable(events []models.Event) bool {
	for _, ev := range events {
		switch ev.Kind {
		case models.EventClick, models.EventTextInput, models.EventKeyPress:
			return true
		}
	}
	return false
}
