// Package task provides the single-slot lock that serializes batch
// operations (enrichment, plan synthesis, replay, retention cleanup).
package task

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a batch operation is attempted while another one
// is in flight. The attempt fails immediately; it is never queued.
var ErrBusy = errors.New("another operation is already running")

// Lock is a one-slot try-acquire lock. The zero value is not usable; use
// NewLock.
type Lock struct {
	slot chan struct{}
}

// NewLock returns an unheld lock.
func NewLock() *Lock {
	return &Lock{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot, or fails with ErrBusy naming the operation that
// holds it. The returned release function must be called exactly once.
func (l *Lock) TryAcquire(op string) (release func(), err error) {
	select {
	case l.slot <- struct{}{}:
		return func() { <-l.slot }, nil
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrBusy)
	}
}

// Run executes fn under the lock, failing with ErrBusy if the slot is taken.
func (l *Lock) Run(op string, fn func() error) error {
	release, err := l.TryAcquire(op)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
