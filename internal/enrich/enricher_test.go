package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/models"
)

type fakeOCR struct {
	calls int
	text  string
	err   error
}

func (f *fakeOCR) TextFromImage(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeSTT struct {
	calls int
	text  string
	err   error
}

func (f *fakeSTT) TextFromAudio(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

func appendEvent(t *testing.T, store *eventlog.Store, kind models.EventKind, artifact string) int64 {
	t.Helper()
	id := store.NextID()
	err := store.AppendRaw(models.RawEvent{
		ID:          id,
		Timestamp:   time.Now().UTC(),
		Kind:        kind,
		ArtifactRef: artifact,
	})
	if err != nil {
		t.Fatalf("AppendRaw failed: %v", err)
	}
	return id
}

func TestRunEnrichesPendingEvents(t *testing.T) {
	store, err := eventlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	appendEvent(t, store, models.EventClick, "1_1_screen.png")
	appendEvent(t, store, models.EventAudioCommand, "2_2_audio.wav")
	appendEvent(t, store, models.EventKeyPress, "")

	ocr := &fakeOCR{text: "Login  Password"}
	stt := &fakeSTT{text: "run daily report"}
	enricher := New(store, ocr, stt, nil)

	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Pending != 3 || report.Enriched != 3 {
		t.Errorf("report = %d/%d, want 3 pending 3 enriched", report.Enriched, report.Pending)
	}
	if ocr.calls != 1 || stt.calls != 1 {
		t.Errorf("collaborator calls = ocr %d stt %d, want 1 each", ocr.calls, stt.calls)
	}

	recs, err := store.Enrichments()
	if err != nil {
		t.Fatalf("Enrichments failed: %v", err)
	}
	if rec := recs[1]; rec.OCRText == nil || *rec.OCRText != "Login  Password" {
		t.Errorf("event 1 OCR = %v, want text", rec.OCRText)
	}
	if rec := recs[2]; rec.Transcription == nil || *rec.Transcription != "run daily report" {
		t.Errorf("event 2 transcription = %v, want text", rec.Transcription)
	}
	if rec := recs[3]; rec.OCRText != nil || rec.Transcription != nil {
		t.Errorf("event 3 should have no enrichment fields, got %+v", rec)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store, err := eventlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	appendEvent(t, store, models.EventClick, "1_1_screen.png")

	ocr := &fakeOCR{text: "hello"}
	enricher := New(store, ocr, &fakeSTT{}, nil)

	if _, err := enricher.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if report.Pending != 0 || report.Enriched != 0 {
		t.Errorf("second run report = %+v, want nothing to do", report)
	}
	if ocr.calls != 1 {
		t.Errorf("OCR called %d times across both runs, want 1", ocr.calls)
	}
}

func TestRunResumesFromCursor(t *testing.T) {
	store, err := eventlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	appendEvent(t, store, models.EventClick, "1_1_screen.png")
	enricher := New(store, &fakeOCR{text: "a"}, &fakeSTT{}, nil)
	if _, err := enricher.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// More capture after the first batch.
	appendEvent(t, store, models.EventClick, "2_2_screen.png")

	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Pending != 1 || report.Enriched != 1 {
		t.Errorf("resumed run = %d/%d, want exactly the new event", report.Enriched, report.Pending)
	}
}

func TestCollaboratorFailureRecordsEmptyEnrichment(t *testing.T) {
	store, err := eventlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	id := appendEvent(t, store, models.EventAudioCommand, "1_1_audio.wav")

	enricher := New(store, &fakeOCR{}, &fakeSTT{err: errors.New("model not found")}, nil)
	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Enriched != 1 {
		t.Errorf("Enriched = %d, want 1 (failure is terminal, not skipped)", report.Enriched)
	}
	if len(report.Errors) != 1 || report.Errors[0].EventID != id {
		t.Errorf("Errors = %+v, want one error for event %d", report.Errors, id)
	}

	recs, _ := store.Enrichments()
	rec := recs[id]
	if rec.Transcription == nil || *rec.Transcription != "" {
		t.Errorf("failed transcription = %v, want present empty string", rec.Transcription)
	}

	// The failed event is not retried.
	report, err = enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if report.Pending != 0 {
		t.Errorf("failed event still pending: %+v", report)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store, err := eventlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		appendEvent(t, store, models.EventClick, fmt.Sprintf("%d_%d_screen.png", i, i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enricher := New(store, &fakeOCR{}, &fakeSTT{}, nil)
	if _, err := enricher.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with cancelled context = %v, want context.Canceled", err)
	}

	// Nothing was processed, so a fresh run sees the full backlog.
	report, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Enriched != 3 {
		t.Errorf("Enriched = %d after resume, want 3", report.Enriched)
	}
}
