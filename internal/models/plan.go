package models

import (
	"fmt"
	"time"
)

// ActionType identifies the kind of a plan action.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionKeyPress ActionType = "keypress"
	ActionWait     ActionType = "wait"
)

// ValidActionType reports whether t is one of the known action types.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionClick, ActionTypeText, ActionKeyPress, ActionWait:
		return true
	}
	return false
}

// ActionTarget locates what an action operates on: coordinates for click,
// a key code for keypress.
type ActionTarget struct {
	X   int    `json:"x,omitempty"`
	Y   int    `json:"y,omitempty"`
	Key string `json:"key,omitempty"`
}

// ActionValue carries what an action produces: text for type, a duration
// for wait.
type ActionValue struct {
	Text       string `json:"text,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty"`
}

// Action is a single replayable step. Target is required for click and
// keypress; Value is required for type and wait.
type Action struct {
	Type   ActionType    `json:"type"`
	Target *ActionTarget `json:"target,omitempty"`
	Value  *ActionValue  `json:"value,omitempty"`
}

// Describe returns a short human-readable summary of the action, used in
// replay reports.
func (a Action) Describe() string {
	switch a.Type {
	case ActionClick:
		if a.Target != nil {
			return fmt.Sprintf("click (%d, %d)", a.Target.X, a.Target.Y)
		}
		return "click"
	case ActionTypeText:
		if a.Value != nil {
			return fmt.Sprintf("type %q", a.Value.Text)
		}
		return "type"
	case ActionKeyPress:
		if a.Target != nil {
			return fmt.Sprintf("press %s", a.Target.Key)
		}
		return "press"
	case ActionWait:
		if a.Value != nil {
			return fmt.Sprintf("wait %dms", a.Value.DurationMS)
		}
		return "wait"
	}
	return string(a.Type)
}

// Plan is an immutable, named, ordered sequence of actions. The action order
// is the execution order, fixed at creation.
type Plan struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Actions   []Action  `json:"actions"`
}
