// Package pipeline wires the capture, enrichment, synthesis and replay
// components together behind the single-slot task lock, and records every
// batch operation in the run history. It is the one place that knows how the
// pieces connect; the CLI and the MCP server are thin callers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nvandessel/deskpilot/internal/config"
	"github.com/nvandessel/deskpilot/internal/enrich"
	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/history"
	"github.com/nvandessel/deskpilot/internal/input"
	"github.com/nvandessel/deskpilot/internal/intent"
	"github.com/nvandessel/deskpilot/internal/llm"
	"github.com/nvandessel/deskpilot/internal/models"
	"github.com/nvandessel/deskpilot/internal/ocr"
	"github.com/nvandessel/deskpilot/internal/planstore"
	"github.com/nvandessel/deskpilot/internal/replay"
	"github.com/nvandessel/deskpilot/internal/retention"
	"github.com/nvandessel/deskpilot/internal/stt"
	"github.com/nvandessel/deskpilot/internal/synth"
	"github.com/nvandessel/deskpilot/internal/task"
)

// Pipeline owns every long-lived component and serializes batch operations.
type Pipeline struct {
	cfg config.Config
	log *slog.Logger

	store     *eventlog.Store
	plans     *planstore.Store
	enricher  *enrich.Enricher
	matcher   *intent.Matcher
	synth     *synth.Synthesizer
	replayer  *replay.Replayer
	retention *retention.Manager
	history   *history.Store
	lock      *task.Lock
}

// Open builds a pipeline rooted at root, creating the data directory layout
// if needed.
func Open(root string, cfg config.Config, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	dataDir := config.DataDir(root)

	store, err := eventlog.Open(dataDir)
	if err != nil {
		return nil, err
	}
	plans, err := planstore.Open(filepath.Join(dataDir, "plans"))
	if err != nil {
		store.Close()
		return nil, err
	}

	enricher := enrich.New(store,
		ocr.NewTesseract(cfg.TesseractPath, cfg.OCRTimeout),
		stt.NewWhisper(cfg.WhisperPath, cfg.WhisperModel, cfg.STTTimeout),
		log)

	completer := llm.NewCLIClient(llm.CLIConfig{
		BinPath:   cfg.LlamaPath,
		ModelPath: cfg.LlamaModel,
		Timeout:   cfg.CompletionTimeout,
	})
	synthesizer, err := synth.New(store, enricher, plans, completer, synth.Config{
		WindowSize:        cfg.WindowSize,
		MaxRepairAttempts: cfg.MaxRepairAttempts,
		MaxOutputTokens:   cfg.MaxOutputTokens,
		ScreenWidth:       cfg.ScreenWidth,
		ScreenHeight:      cfg.ScreenHeight,
	}, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	sim := input.NewXdotool(cfg.XdotoolPath, cfg.ScreenWidth, cfg.ScreenHeight)
	replayer := replay.New(sim, replay.Config{
		StartDelay:  cfg.StartDelay,
		SettleDelay: cfg.SettleDelay,
	}, log)

	return &Pipeline{
		cfg:       cfg,
		log:       log,
		store:     store,
		plans:     plans,
		enricher:  enricher,
		matcher:   intent.NewMatcher(store),
		synth:     synthesizer,
		replayer:  replayer,
		retention: retention.NewManager(store.ArtifactDir(), log),
		history:   history.Open(filepath.Join(dataDir, "history.db"), log),
		lock:      task.NewLock(),
	}, nil
}

// Close releases the store and the run history.
func (p *Pipeline) Close() error {
	err := p.store.Close()
	if herr := p.history.Close(); herr != nil && err == nil {
		err = herr
	}
	return err
}

// Store exposes the event store for the recorder and the status surface.
func (p *Pipeline) Store() *eventlog.Store { return p.store }

// Plans exposes the plan store.
func (p *Pipeline) Plans() *planstore.Store { return p.plans }

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// record writes one run-history row, turning an error into its status.
func (p *Pipeline) record(op string, started time.Time, report string, err error) {
	status := "ok"
	switch {
	case errors.Is(err, task.ErrBusy):
		status = "busy"
	case err != nil:
		status = "error"
		report = err.Error()
	}
	p.history.Record(op, started, status, report)
}

// Enrich runs one enrichment batch under the task lock.
func (p *Pipeline) Enrich(ctx context.Context) (enrich.Report, error) {
	started := time.Now().UTC()
	release, err := p.lock.TryAcquire("enrich")
	if err != nil {
		p.record("enrich", started, "", err)
		return enrich.Report{}, err
	}
	defer release()

	report, err := p.enricher.Run(ctx)
	p.record("enrich", started, report.Line(), err)
	return report, err
}

// Learn synthesizes and saves a plan under the task lock. Enrichment is
// brought up to date first as part of the same run.
func (p *Pipeline) Learn(ctx context.Context, name string, overwrite bool) (synth.Report, error) {
	started := time.Now().UTC()
	release, err := p.lock.TryAcquire("learn")
	if err != nil {
		p.record("learn", started, "", err)
		return synth.Report{}, err
	}
	defer release()

	report, err := p.synth.Learn(ctx, name, overwrite)
	p.record("learn", started, report.Line(), err)
	return report, err
}

// Run loads and replays a saved plan under the task lock.
func (p *Pipeline) Run(ctx context.Context, name string) (replay.Result, error) {
	started := time.Now().UTC()
	release, err := p.lock.TryAcquire("run")
	if err != nil {
		p.record("run", started, "", err)
		return replay.Result{}, err
	}
	defer release()

	plan, err := p.plans.Load(name)
	if err != nil {
		p.record("run", started, "", err)
		return replay.Result{}, err
	}

	result, err := p.replayer.Run(ctx, plan)
	status, report := "ok", result.Line()
	switch {
	case err != nil:
		status, report = "error", err.Error()
	case result.State == replay.StateFailed:
		status = "error"
	case result.State == replay.StateAborted:
		status = "partial"
	}
	p.history.Record("run", started, status, report)
	return result, err
}

// Abort asks the in-flight replay, if any, to stop before its next action.
func (p *Pipeline) Abort() { p.replayer.Abort() }

// Cleanup deletes expired artifacts under the task lock.
func (p *Pipeline) Cleanup(ctx context.Context, ttl time.Duration) (retention.Report, error) {
	if ttl <= 0 {
		ttl = p.cfg.RetentionTTL
	}
	started := time.Now().UTC()
	release, err := p.lock.TryAcquire("cleanup")
	if err != nil {
		p.record("cleanup", started, "", err)
		return retention.Report{}, err
	}
	defer release()

	report, err := p.retention.Cleanup(ttl)
	p.record("cleanup", started, report.Line(), err)
	return report, err
}

// Dispatch is the outcome of one HandleCommand poll.
type Dispatch struct {
	Intent models.Intent `json:"intent"`

	// Acted is true when a learn or run was actually dispatched.
	Acted bool `json:"acted"`

	// Line is the human-readable outcome of the dispatched operation.
	Line string `json:"line,omitempty"`
}

// HandleCommand brings enrichment up to date, classifies the latest
// unhandled voice command and dispatches it. The command is marked handled
// whether or not its dispatch succeeded, so a failing command is not retried
// forever; the dispatch error is still returned.
func (p *Pipeline) HandleCommand(ctx context.Context) (Dispatch, error) {
	if _, err := p.Enrich(ctx); err != nil {
		return Dispatch{}, err
	}

	it, err := p.matcher.LatestUnhandled()
	if err != nil {
		return Dispatch{}, err
	}
	if it.Kind == models.IntentNone {
		return Dispatch{Intent: it}, nil
	}
	if err := p.matcher.MarkHandled(it.EventID); err != nil {
		return Dispatch{Intent: it}, err
	}

	switch it.Kind {
	case models.IntentLearn:
		report, err := p.Learn(ctx, it.Workflow, true)
		if err != nil {
			return Dispatch{Intent: it, Acted: true}, err
		}
		return Dispatch{Intent: it, Acted: true, Line: report.Line()}, nil
	case models.IntentRun:
		result, err := p.Run(ctx, it.Workflow)
		if err != nil {
			return Dispatch{Intent: it, Acted: true}, err
		}
		return Dispatch{Intent: it, Acted: true, Line: result.Line()}, nil
	}
	return Dispatch{Intent: it}, nil
}

// Status is a point-in-time snapshot of the pipeline.
type Status struct {
	RawEvents   int          `json:"raw_events"`
	Pending     int          `json:"pending_enrichment"`
	Plans       []string     `json:"plans"`
	ReplayState replay.State `json:"replay_state"`
}

// Line renders the status for the control surface.
func (s Status) Line() string {
	return fmt.Sprintf("%d event(s) captured, %d pending enrichment, %d plan(s)",
		s.RawEvents, s.Pending, len(s.Plans))
}

// Status reports event counts, enrichment backlog and saved plans. It takes
// no lock; the snapshot may race a running operation.
func (p *Pipeline) Status() (Status, error) {
	events, err := p.store.Tail(0)
	if err != nil {
		return Status{}, err
	}
	cursor, err := p.store.Cursor(enrich.CursorName)
	if err != nil {
		return Status{}, err
	}
	pending := 0
	for _, ev := range events {
		if ev.ID > cursor {
			pending++
		}
	}
	plans, err := p.plans.List()
	if err != nil {
		return Status{}, err
	}
	return Status{
		RawEvents:   len(events),
		Pending:     pending,
		Plans:       plans,
		ReplayState: p.replayer.State(),
	}, nil
}

// History returns the last n recorded runs, newest first.
func (p *Pipeline) History(n int) ([]history.Run, error) {
	return p.history.Recent(n)
}
