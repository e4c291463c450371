// Package intent classifies the latest voice transcription into the fixed
// command vocabulary. Matching is pure string work: no model calls, no side
// effects, and an unrecognized command is simply None.
package intent

import (
	"regexp"
	"strings"

	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/models"
)

// CursorName tracks the last audio command a watch loop acted on, so the
// same command is not dispatched twice.
const CursorName = "intent"

var (
	runRe   = regexp.MustCompile(`\b(?:run|execute|start|perform)\s+(.+?)[.!?]*\s*$`)
	learnRe = regexp.MustCompile(`\b(?:learn|teach|save|record)\s+(.+?)[.!?]*\s*$`)
)

// Match classifies a single transcription. The workflow name is the
// best-effort remainder after the command keyword; ambiguity or no match is
// not an error, just None.
func Match(transcription string) models.Intent {
	text := strings.ToLower(strings.TrimSpace(transcription))
	if text == "" {
		return models.None()
	}

	if m := runRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return models.Intent{Kind: models.IntentRun, Workflow: name}
		}
	}
	if m := learnRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return models.Intent{Kind: models.IntentLearn, Workflow: name}
		}
	}
	return models.None()
}

// Matcher reads the enriched log to classify the latest voice command.
type Matcher struct {
	store *eventlog.Store
}

// NewMatcher creates a matcher over store.
func NewMatcher(store *eventlog.Store) *Matcher {
	return &Matcher{store: store}
}

// Latest classifies the most recent audio command that has a non-empty
// transcription. With no such command it returns None.
func (m *Matcher) Latest() (models.Intent, error) {
	ev, ok, err := m.store.LatestCommand()
	if err != nil {
		return models.None(), err
	}
	if !ok {
		return models.None(), nil
	}
	it := Match(*ev.Transcription)
	it.EventID = ev.ID
	return it, nil
}

// LatestUnhandled is Latest filtered by the handled watermark: a command
// already marked handled yields None.
func (m *Matcher) LatestUnhandled() (models.Intent, error) {
	it, err := m.Latest()
	if err != nil || it.Kind == models.IntentNone {
		return it, err
	}
	seen, err := m.store.Cursor(CursorName)
	if err != nil {
		return models.None(), err
	}
	if it.EventID <= seen {
		return models.None(), nil
	}
	return it, nil
}

// MarkHandled advances the watermark past the given audio command, whether
// or not its dispatch succeeded, so noise is not reprocessed forever.
func (m *Matcher) MarkHandled(eventID int64) error {
	return m.store.SetCursor(CursorName, eventID)
}
