// Package input provides the input-simulation collaborator interface and an
// xdotool-backed implementation, plus the hook event type delivered by
// global input-hook backends.
package input

import (
	"fmt"
	"time"
)

// Simulator drives the machine's input devices during replay. Every method
// may fail with an *AutomationError.
type Simulator interface {
	Click(x, y int) error
	TypeText(s string) error
	KeyPress(code string) error
}

// AutomationError is a failed input-simulation dispatch.
type AutomationError struct {
	Op  string
	Err error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("automation %s: %v", e.Op, e.Err)
}

func (e *AutomationError) Unwrap() error { return e.Err }

// HookKind identifies what a global input hook observed.
type HookKind int

const (
	// HookClick is a mouse button press at X, Y.
	HookClick HookKind = iota

	// HookKeyDown is a key going down. Char is set for printable keys,
	// Key for special keys ("enter", "ctrl_r", ...).
	HookKeyDown

	// HookKeyUp is a key being released; only Key is set.
	HookKeyUp
)

// HookEvent is one observation from a global input hook. Hook callbacks run
// on operating-system threads and must never block; the recorder copies hook
// events onto its own queue immediately.
type HookEvent struct {
	Kind HookKind
	Time time.Time
	X, Y int
	Char rune
	Key  string
}

// HookSource delivers global input-hook events to a registered callback.
// Implementations wrap the platform hook mechanism; tests use an in-memory
// source.
type HookSource interface {
	// Start registers cb and begins delivering hook events to it. The
	// callback may be invoked from multiple OS threads.
	Start(cb func(HookEvent)) error

	// Stop unregisters the callback and releases the hooks.
	Stop() error
}
