// Package enrich implements the resumable enrichment stage: it walks raw
// events past the persisted cursor, attaches OCR text and transcriptions,
// and advances the cursor only after each enriched record is durable.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/models"
	"github.com/nvandessel/deskpilot/internal/ocr"
	"github.com/nvandessel/deskpilot/internal/stt"
)

// CursorName is the enricher's consumer name in the event store.
const CursorName = "enricher"

// EventError is a per-event enrichment failure. It does not abort the run;
// the event is enriched with an empty string and the batch continues.
type EventError struct {
	EventID int64  `json:"event_id"`
	Message string `json:"message"`
}

// Report summarizes one enrichment run.
type Report struct {
	// Pending is how many raw events were past the cursor when the run
	// started.
	Pending int `json:"pending"`

	// Enriched is how many enriched records were written.
	Enriched int `json:"enriched"`

	// Errors lists the per-event collaborator failures.
	Errors []EventError `json:"errors,omitempty"`
}

// Line renders the report for the control surface.
func (r Report) Line() string {
	if r.Pending == 0 {
		return "enrichment up to date, nothing to do"
	}
	line := fmt.Sprintf("enriched %d of %d pending events", r.Enriched, r.Pending)
	if len(r.Errors) > 0 {
		line += fmt.Sprintf(" (%d collaborator errors)", len(r.Errors))
	}
	return line
}

// Enricher runs enrichment batches against a store.
type Enricher struct {
	store *eventlog.Store
	ocr   ocr.Engine
	stt   stt.Transcriber
	log   *slog.Logger
}

// New creates an enricher. Either collaborator may be nil, in which case the
// corresponding artifacts are enriched as empty.
func New(store *eventlog.Store, ocrEngine ocr.Engine, transcriber stt.Transcriber, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{store: store, ocr: ocrEngine, stt: transcriber, log: log}
}

// Run enriches every raw event past the cursor, in id order. For each event
// the enriched record is written and synced before the cursor advances to
// that id, so an interrupted run resumes at the last fully-enriched event
// with no duplicates. With no pending events Run returns immediately and
// writes nothing.
//
// A collaborator failure on one event records an empty enrichment (a valid
// terminal state), surfaces the error in the report, and the loop continues.
func (e *Enricher) Run(ctx context.Context) (Report, error) {
	cursor, err := e.store.Cursor(CursorName)
	if err != nil {
		return Report{}, err
	}

	pending, err := e.store.RawAfter(cursor)
	if err != nil {
		return Report{}, err
	}

	report := Report{Pending: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	for _, ev := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rec, evErr := e.enrichOne(ctx, ev)
		if evErr != nil {
			report.Errors = append(report.Errors, EventError{EventID: ev.ID, Message: evErr.Error()})
			e.log.Warn("enrichment collaborator failed", "event_id", ev.ID, "error", evErr)
		}

		if err := e.store.AppendEnriched(rec); err != nil {
			return report, fmt.Errorf("writing enrichment for event %d: %w", ev.ID, err)
		}
		if err := e.store.SetCursor(CursorName, ev.ID); err != nil {
			return report, fmt.Errorf("advancing cursor to %d: %w", ev.ID, err)
		}
		report.Enriched++
	}

	return report, nil
}

// enrichOne produces the enriched record for one raw event. The returned
// error, if any, is the collaborator failure; the record is always valid and
// terminal.
func (e *Enricher) enrichOne(ctx context.Context, ev models.RawEvent) (models.EnrichedEvent, error) {
	rec := models.EnrichedEvent{ID: ev.ID}
	if ev.ArtifactRef == "" {
		return rec, nil
	}
	path := filepath.Join(e.store.ArtifactDir(), ev.ArtifactRef)

	switch {
	case isImage(ev.ArtifactRef):
		text := ""
		var err error
		if e.ocr != nil {
			text, err = e.ocr.TextFromImage(ctx, path)
			if err != nil {
				text = ""
			}
		}
		rec.OCRText = &text
		return rec, err

	case ev.Kind == models.EventAudioCommand:
		text := ""
		var err error
		if e.stt != nil {
			text, err = e.stt.TextFromAudio(ctx, path)
			if err != nil {
				text = ""
			}
		}
		rec.Transcription = &text
		return rec, err
	}

	return rec, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return true
	}
	return false
}
