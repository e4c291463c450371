// Package eventlog implements the append-only event store: a raw event log,
// an enriched event log, per-consumer cursors and the artifact area.
//
// Both logs are newline-delimited JSON, one record per line. Each log has a
// single serialized writer so concurrent producers never interleave lines,
// and every append is synced to disk before it is acknowledged.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nvandessel/deskpilot/internal/models"
)

const (
	rawLogName      = "events.jsonl"
	enrichedLogName = "enriched.jsonl"
	artifactDirName = "artifacts"
	cursorDirName   = "cursors"
)

// Store is the append-only event store rooted at a data directory.
//
// The raw log is written by the recorder and read by the enricher; the
// enriched log is written by the enricher and read by the intent matcher and
// the plan synthesizer. Each log has exactly one writer path, guarded by its
// own mutex.
type Store struct {
	dir string

	raw      *appender
	enriched *appender

	// idMu guards lastID, the highest raw event id ever handed out.
	idMu   sync.Mutex
	lastID int64
}

// Open opens (or initializes) the store at dir. The highest existing raw
// event id is recovered by scanning the raw log, so id allocation resumes
// monotonically across restarts.
func Open(dir string) (*Store, error) {
	for _, sub := range []string{dir, filepath.Join(dir, artifactDirName), filepath.Join(dir, cursorDirName)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	s := &Store{dir: dir}

	var err error
	if s.raw, err = openAppender(filepath.Join(dir, rawLogName)); err != nil {
		return nil, err
	}
	if s.enriched, err = openAppender(filepath.Join(dir, enrichedLogName)); err != nil {
		s.raw.Close()
		return nil, err
	}

	last, err := s.scanLastRawID()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.lastID = last

	return s, nil
}

// Close releases the underlying log files.
func (s *Store) Close() error {
	var firstErr error
	if s.raw != nil {
		if err := s.raw.Close(); err != nil {
			firstErr = err
		}
	}
	if s.enriched != nil {
		if err := s.enriched.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// ArtifactDir returns the directory holding screenshot and audio artifacts.
func (s *Store) ArtifactDir() string { return filepath.Join(s.dir, artifactDirName) }

// NextID reserves and returns the next raw event id. Ids are strictly
// increasing and never reused, even if the reserving event is later dropped
// on a write error.
func (s *Store) NextID() int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.lastID++
	return s.lastID
}

// AppendRaw appends a raw event to the log. The event's ID must have been
// reserved through NextID; events must arrive in id order, matching capture
// order. The write is durable when AppendRaw returns.
func (s *Store) AppendRaw(ev models.RawEvent) error {
	if ev.ID <= 0 {
		return fmt.Errorf("raw event has no id")
	}
	if !ev.Kind.Valid() {
		return fmt.Errorf("raw event %d has unknown kind %q", ev.ID, ev.Kind)
	}
	return s.raw.appendJSON(ev)
}

// AppendEnriched appends an enriched record. The write is durable when
// AppendEnriched returns; callers advance their cursor only afterwards.
func (s *Store) AppendEnriched(rec models.EnrichedEvent) error {
	if rec.ID <= 0 {
		return fmt.Errorf("enriched event has no id")
	}
	return s.enriched.appendJSON(rec)
}

// RawAfter returns all raw events with id greater than after, in log order.
func (s *Store) RawAfter(after int64) ([]models.RawEvent, error) {
	var out []models.RawEvent
	err := s.scanRaw(func(ev models.RawEvent) {
		if ev.ID > after {
			out = append(out, ev)
		}
	})
	return out, err
}

// Enrichments returns every enriched record keyed by raw event id.
func (s *Store) Enrichments() (map[int64]models.EnrichedEvent, error) {
	out := make(map[int64]models.EnrichedEvent)
	path := filepath.Join(s.dir, enrichedLogName)
	err := scanLines(path, func(line []byte) {
		var rec models.EnrichedEvent
		if err := json.Unmarshal(line, &rec); err != nil {
			return // tolerate a torn or malformed line
		}
		if _, seen := out[rec.ID]; !seen {
			out[rec.ID] = rec
		}
	})
	return out, err
}

// Tail returns the last n events in the joined raw+enriched view, oldest
// first. Raw events without an enrichment are included unenriched.
func (s *Store) Tail(n int) ([]models.Event, error) {
	enrichments, err := s.Enrichments()
	if err != nil {
		return nil, err
	}

	var events []models.Event
	err = s.scanRaw(func(ev models.RawEvent) {
		joined := models.Event{RawEvent: ev}
		if rec, ok := enrichments[ev.ID]; ok {
			joined.OCRText = rec.OCRText
			joined.Transcription = rec.Transcription
		}
		events = append(events, joined)
	})
	if err != nil {
		return nil, err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

// LatestCommand returns the most recent audio_command event that has a
// non-empty transcription, or ok=false if there is none.
func (s *Store) LatestCommand() (models.Event, bool, error) {
	events, err := s.Tail(0)
	if err != nil {
		return models.Event{}, false, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == models.EventAudioCommand && events[i].Transcribed() {
			return events[i], true, nil
		}
	}
	return models.Event{}, false, nil
}

func (s *Store) scanLastRawID() (int64, error) {
	var last int64
	err := s.scanRaw(func(ev models.RawEvent) {
		if ev.ID > last {
			last = ev.ID
		}
	})
	return last, err
}

func (s *Store) scanRaw(fn func(models.RawEvent)) error {
	path := filepath.Join(s.dir, rawLogName)
	return scanLines(path, func(line []byte) {
		var ev models.RawEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return
		}
		fn(ev)
	})
}

// scanLines calls fn for each non-empty line of the file. A missing file is
// treated as empty.
func scanLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return nil
}

// appender is the single serialized writer for one log file.
type appender struct {
	mu sync.Mutex
	f  *os.File
}

func openAppender(path string) (*appender, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	return &appender{f: f}, nil
}

func (a *appender) appendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.f.Write(data); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("syncing log: %w", err)
	}
	return nil
}

func (a *appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.f.Close()
}
