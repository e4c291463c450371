package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/deskpilot/internal/models"
)

func testEvent(id int64, kind models.EventKind) models.RawEvent {
	return models.RawEvent{
		ID:        id,
		Timestamp: time.Date(2026, 3, 1, 12, 0, int(id), 0, time.UTC),
		Kind:      kind,
		Payload:   models.Payload{X: 10, Y: 20},
	}
}

func TestAppendRawAndReadBack(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		id := store.NextID()
		if err := store.AppendRaw(testEvent(id, models.EventClick)); err != nil {
			t.Fatalf("AppendRaw(%d) failed: %v", id, err)
		}
	}

	events, err := store.RawAfter(0)
	if err != nil {
		t.Fatalf("RawAfter failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("RawAfter(0) returned %d events, want 5", len(events))
	}
	for i, ev := range events {
		if ev.ID != int64(i+1) {
			t.Errorf("event %d has id %d, want %d", i, ev.ID, i+1)
		}
	}

	// One line per event in the log file.
	data, err := os.ReadFile(filepath.Join(store.Dir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("reading raw log: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 5 {
		t.Errorf("raw log has %d lines, want 5", lines)
	}
}

func TestAppendRawValidation(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.AppendRaw(models.RawEvent{Kind: models.EventClick}); err == nil {
		t.Error("AppendRaw accepted an event without an id")
	}
	if err := store.AppendRaw(models.RawEvent{ID: 1, Kind: "bogus"}); err == nil {
		t.Error("AppendRaw accepted an unknown kind")
	}
}

func TestNextIDResumesAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		id := store.NextID()
		if err := store.AppendRaw(testEvent(id, models.EventClick)); err != nil {
			t.Fatalf("AppendRaw failed: %v", err)
		}
	}
	store.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if got := reopened.NextID(); got != 4 {
		t.Errorf("NextID after reopen = %d, want 4", got)
	}
}

func TestRawAfterFiltersByID(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 4; i++ {
		id := store.NextID()
		if err := store.AppendRaw(testEvent(id, models.EventKeyPress)); err != nil {
			t.Fatalf("AppendRaw failed: %v", err)
		}
	}

	events, err := store.RawAfter(2)
	if err != nil {
		t.Fatalf("RawAfter failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("RawAfter(2) returned %d events, want 2", len(events))
	}
	if events[0].ID != 3 || events[1].ID != 4 {
		t.Errorf("RawAfter(2) ids = %d, %d, want 3, 4", events[0].ID, events[1].ID)
	}
}

func TestTailJoinsEnrichments(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		id := store.NextID()
		if err := store.AppendRaw(testEvent(id, models.EventClick)); err != nil {
			t.Fatalf("AppendRaw failed: %v", err)
		}
	}
	text := "Submit button"
	if err := store.AppendEnriched(models.EnrichedEvent{ID: 2, OCRText: &text}); err != nil {
		t.Fatalf("AppendEnriched failed: %v", err)
	}

	events, err := store.Tail(2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Tail(2) returned %d events, want 2", len(events))
	}
	if events[0].ID != 2 || events[1].ID != 3 {
		t.Errorf("Tail(2) ids = %d, %d, want 2, 3", events[0].ID, events[1].ID)
	}
	if events[0].OCRText == nil || *events[0].OCRText != text {
		t.Errorf("event 2 OCR text not joined, got %v", events[0].OCRText)
	}
	if events[1].OCRText != nil {
		t.Errorf("event 3 should be unenriched, got %v", *events[1].OCRText)
	}
}

func TestEnrichmentsFirstRecordWins(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	first, second := "first", "second"
	if err := store.AppendEnriched(models.EnrichedEvent{ID: 1, OCRText: &first}); err != nil {
		t.Fatalf("AppendEnriched failed: %v", err)
	}
	if err := store.AppendEnriched(models.EnrichedEvent{ID: 1, OCRText: &second}); err != nil {
		t.Fatalf("AppendEnriched failed: %v", err)
	}

	recs, err := store.Enrichments()
	if err != nil {
		t.Fatalf("Enrichments failed: %v", err)
	}
	if got := recs[1]; got.OCRText == nil || *got.OCRText != first {
		t.Errorf("duplicate enrichment should keep the first record, got %v", got.OCRText)
	}
}

func TestLatestCommand(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.LatestCommand(); err != nil || ok {
		t.Fatalf("LatestCommand on empty store = ok=%v err=%v, want none", ok, err)
	}

	// Two audio commands: the first transcribed, the second failed (empty).
	for i := 0; i < 2; i++ {
		id := store.NextID()
		ev := testEvent(id, models.EventAudioCommand)
		ev.ArtifactRef = "a.wav"
		if err := store.AppendRaw(ev); err != nil {
			t.Fatalf("AppendRaw failed: %v", err)
		}
	}
	spoken, empty := "run my_workflow", ""
	if err := store.AppendEnriched(models.EnrichedEvent{ID: 1, Transcription: &spoken}); err != nil {
		t.Fatalf("AppendEnriched failed: %v", err)
	}
	if err := store.AppendEnriched(models.EnrichedEvent{ID: 2, Transcription: &empty}); err != nil {
		t.Fatalf("AppendEnriched failed: %v", err)
	}

	ev, ok, err := store.LatestCommand()
	if err != nil {
		t.Fatalf("LatestCommand failed: %v", err)
	}
	if !ok || ev.ID != 1 {
		t.Errorf("LatestCommand = id %d ok=%v, want id 1 (latest non-empty transcription)", ev.ID, ok)
	}
}

func TestScanToleratesMalformedLines(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id := store.NextID()
	if err := store.AppendRaw(testEvent(id, models.EventClick)); err != nil {
		t.Fatalf("AppendRaw failed: %v", err)
	}
	store.Close()

	// Simulate a torn write at the log tail.
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening raw log: %v", err)
	}
	f.WriteString(`{"id": 99, "kind": "cli` + "\n")
	f.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	events, err := reopened.RawAfter(0)
	if err != nil {
		t.Fatalf("RawAfter failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("RawAfter returned %d events, want 1 (malformed line skipped)", len(events))
	}
}

func TestCursorPersistence(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if got, err := store.Cursor("enricher"); err != nil || got != 0 {
		t.Fatalf("fresh cursor = %d err=%v, want 0", got, err)
	}
	if err := store.SetCursor("enricher", 7); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	if got, _ := store.Cursor("enricher"); got != 7 {
		t.Errorf("cursor = %d, want 7", got)
	}
}

func TestCursorNeverRegresses(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.SetCursor("enricher", 5); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}

	for _, id := range []int64{5, 3} {
		if err := store.SetCursor("enricher", id); err == nil {
			t.Errorf("SetCursor(%d) succeeded, want regression error", id)
		}
	}
	if got, _ := store.Cursor("enricher"); got != 5 {
		t.Errorf("cursor = %d after rejected writes, want 5", got)
	}
}
