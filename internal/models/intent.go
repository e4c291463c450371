package models

// IntentKind classifies the latest voice command.
type IntentKind string

const (
	// IntentRun asks to replay a saved plan.
	IntentRun IntentKind = "run"

	// IntentLearn asks to synthesize a plan from recent activity.
	IntentLearn IntentKind = "learn"

	// IntentNone means no recognized command.
	IntentNone IntentKind = "none"
)

// Intent is the fixed-vocabulary classification of a transcription. Workflow
// is the best-effort extracted plan name, set for run and learn intents.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Workflow string     `json:"workflow,omitempty"`

	// EventID is the raw event id of the audio command the intent was
	// matched from, used as the processed watermark.
	EventID int64 `json:"event_id,omitempty"`
}

// None is the no-match intent.
func None() Intent { return Intent{Kind: IntentNone} }
