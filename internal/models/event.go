// Package models defines the core data types shared across the capture,
// enrichment, synthesis and replay pipeline.
package models

import (
	"time"
)

// EventKind identifies the kind of a captured raw event.
type EventKind string

const (
	// EventClick is a mouse click with screen coordinates.
	EventClick EventKind = "click"

	// EventKeyPress is a single non-printable key press (enter, tab, ...).
	EventKeyPress EventKind = "keypress"

	// EventTextInput is a run of printable keystrokes coalesced into text.
	EventTextInput EventKind = "text_input"

	// EventAudioCommand is a push-to-talk voice recording.
	EventAudioCommand EventKind = "audio_command"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventClick, EventKeyPress, EventTextInput, EventAudioCommand:
		return true
	}
	return false
}

// Payload carries the kind-specific data of a raw event. Exactly the fields
// relevant to the event kind are set: X/Y for click, Key for keypress, Text
// for text_input, Audio (artifact reference) plus DurationSecs for
// audio_command.
type Payload struct {
	X            int     `json:"x,omitempty"`
	Y            int     `json:"y,omitempty"`
	Key          string  `json:"key,omitempty"`
	Text         string  `json:"text,omitempty"`
	Audio        string  `json:"audio,omitempty"`
	DurationSecs float64 `json:"duration_secs,omitempty"`
}

// RawEvent is a single captured user action. Raw events are immutable once
// written: the log is append-only and ids are assigned monotonically in
// capture order.
type RawEvent struct {
	// ID is unique and strictly increasing across the raw log.
	ID int64 `json:"id"`

	// Timestamp is when the event was captured.
	Timestamp time.Time `json:"timestamp"`

	// Kind is the event kind.
	Kind EventKind `json:"kind"`

	// Payload is the kind-specific data.
	Payload Payload `json:"payload"`

	// ArtifactRef names the screenshot or audio file captured alongside
	// this event, if any. The file lives in the store's artifact area and
	// may be pruned by retention; a dangling reference is not an error.
	ArtifactRef string `json:"artifact_ref,omitempty"`
}

// EnrichedEvent augments exactly one RawEvent, matched by ID. An enrichment
// is written at most once per raw event and is immutable after creation.
//
// OCRText and Transcription use pointers so that a present-but-empty string
// (the collaborator failed; a valid terminal enrichment) is distinguishable
// from an enrichment that does not apply to the event kind.
type EnrichedEvent struct {
	ID            int64   `json:"id"`
	OCRText       *string `json:"ocr_text,omitempty"`
	Transcription *string `json:"transcription,omitempty"`
}

// Event is the joined view of a raw event and its enrichment, as consumed by
// the intent matcher and the plan synthesizer.
type Event struct {
	RawEvent
	OCRText       *string `json:"ocr_text,omitempty"`
	Transcription *string `json:"transcription,omitempty"`
}

// Transcribed reports whether the event carries a non-empty transcription.
func (e Event) Transcribed() bool {
	return e.Transcription != nil && *e.Transcription != ""
}
