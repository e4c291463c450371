// Package recorder captures raw interaction and audio events from the
// global input hooks and appends them to the event store.
//
// Hook callbacks run on operating-system threads and must stay cheap: each
// callback packages a raw event (capturing the click screenshot
// synchronously, since the screen is only valid at click time) and hands it
// to a bounded queue drained by a single writer goroutine. The writer is the
// only path that appends to the raw log, so concurrent hook threads never
// interleave log lines. A failure in one callback is logged and capture
// continues.
package recorder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/input"
	"github.com/nvandessel/deskpilot/internal/models"
)

// queueSize bounds the hook-to-writer queue. When the queue is full the
// event is dropped and counted, never blocked on.
const queueSize = 1024

// ScreenGrabber captures the current screen to a PNG file.
type ScreenGrabber interface {
	CaptureScreen(path string) error
}

// AudioRecorder captures microphone audio between Start and Stop.
type AudioRecorder interface {
	// Start begins capturing.
	Start() error

	// Stop ends capturing and writes the recording as a WAV file at path,
	// returning its duration in seconds.
	Stop(path string) (float64, error)
}

// State is the recorder lifecycle state.
type State int

const (
	// Idle means no hooks are registered.
	Idle State = iota

	// Capturing means hooks are live and events are flowing to the log.
	Capturing
)

// Config holds recorder tunables.
type Config struct {
	// KeyFlushTimeout is how long after the last printable keystroke the
	// key buffer is coalesced into one text_input event.
	KeyFlushTimeout time.Duration

	// PushToTalkKey is the key code that arms audio capture while held.
	PushToTalkKey string
}

// Recorder is the owned capture state machine. All transitions go through
// Start and Stop; there is no process-wide capture flag.
type Recorder struct {
	store  *eventlog.Store
	hooks  input.HookSource
	screen ScreenGrabber
	audio  AudioRecorder
	cfg    Config
	log    *slog.Logger

	mu         sync.Mutex
	state      State
	keyBuf     []rune
	keyBufTime time.Time
	flushTimer *time.Timer
	recording  bool
	dropped    int64

	queue  chan models.RawEvent
	writer sync.WaitGroup
}

// New creates an idle recorder writing to store.
func New(store *eventlog.Store, hooks input.HookSource, screen ScreenGrabber, audio AudioRecorder, cfg Config, log *slog.Logger) *Recorder {
	if cfg.KeyFlushTimeout <= 0 {
		cfg.KeyFlushTimeout = 1500 * time.Millisecond
	}
	if cfg.PushToTalkKey == "" {
		cfg.PushToTalkKey = "ctrl_r"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		store:  store,
		hooks:  hooks,
		screen: screen,
		audio:  audio,
		cfg:    cfg,
		log:    log,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start transitions Idle -> Capturing: it spawns the log writer and
// registers the hook callbacks. Starting a capturing recorder is an error.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Capturing {
		return fmt.Errorf("recorder already capturing")
	}

	r.queue = make(chan models.RawEvent, queueSize)
	r.dropped = 0
	r.writer.Add(1)
	go r.writeLoop()

	if err := r.hooks.Start(r.onHook); err != nil {
		close(r.queue)
		r.writer.Wait()
		return fmt.Errorf("registering input hooks: %w", err)
	}

	r.state = Capturing
	r.log.Info("recorder started", "push_to_talk", r.cfg.PushToTalkKey)
	return nil
}

// Stop transitions Capturing -> Idle: it unregisters the hooks, flushes the
// pending key buffer and waits for the writer to drain the queue.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != Capturing {
		r.mu.Unlock()
		return fmt.Errorf("recorder not capturing")
	}
	r.state = Idle
	r.mu.Unlock()

	hookErr := r.hooks.Stop()

	r.mu.Lock()
	if r.recording {
		// Push-to-talk released by teardown rather than the user.
		r.finishAudioLocked()
	}
	r.flushKeysLocked()
	close(r.queue)
	dropped := r.dropped
	r.mu.Unlock()

	r.writer.Wait()

	if dropped > 0 {
		r.log.Warn("events dropped during capture", "count", dropped)
	}
	if hookErr != nil {
		return fmt.Errorf("releasing input hooks: %w", hookErr)
	}
	return nil
}

// onHook is the global hook callback. It must never panic or block: every
// failure is contained here so the hook thread survives for later events.
func (r *Recorder) onHook(ev input.HookEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("capture callback panic", "panic", p)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Capturing {
		return
	}

	switch ev.Kind {
	case input.HookClick:
		r.flushKeysLocked()
		r.captureClickLocked(ev)
	case input.HookKeyDown:
		r.onKeyDownLocked(ev)
	case input.HookKeyUp:
		if ev.Key == r.cfg.PushToTalkKey && r.recording {
			r.finishAudioLocked()
		}
	}
}

func (r *Recorder) captureClickLocked(ev input.HookEvent) {
	id := r.store.NextID()
	ts := ev.Time

	// The screenshot is taken synchronously: by the time a worker thread
	// could get to it, the click has already changed the screen.
	artifact := fmt.Sprintf("%d_%d_screen.png", ts.Unix(), id)
	if err := r.screen.CaptureScreen(filepath.Join(r.store.ArtifactDir(), artifact)); err != nil {
		r.log.Error("screenshot capture failed", "event_id", id, "error", err)
		artifact = ""
	}

	r.enqueueLocked(models.RawEvent{
		ID:          id,
		Timestamp:   ts,
		Kind:        models.EventClick,
		Payload:     models.Payload{X: ev.X, Y: ev.Y},
		ArtifactRef: artifact,
	})
}

func (r *Recorder) onKeyDownLocked(ev input.HookEvent) {
	if ev.Key == r.cfg.PushToTalkKey {
		r.flushKeysLocked()
		if !r.recording {
			if err := r.audio.Start(); err != nil {
				r.log.Error("audio capture start failed", "error", err)
				return
			}
			r.recording = true
		}
		return
	}

	if ev.Char != 0 {
		r.keyBuf = append(r.keyBuf, ev.Char)
		r.keyBufTime = ev.Time
		r.resetFlushTimerLocked()
		return
	}

	// Special key: close out any pending text first so event order matches
	// what the user did.
	r.flushKeysLocked()
	if ev.Key == "" {
		return
	}
	r.enqueueLocked(models.RawEvent{
		ID:        r.store.NextID(),
		Timestamp: ev.Time,
		Kind:      models.EventKeyPress,
		Payload:   models.Payload{Key: ev.Key},
	})
}

// finishAudioLocked stops the microphone and logs one audio_command event.
func (r *Recorder) finishAudioLocked() {
	r.recording = false
	id := r.store.NextID()
	ts := time.Now()
	artifact := fmt.Sprintf("%d_%d_audio.wav", ts.Unix(), id)

	dur, err := r.audio.Stop(filepath.Join(r.store.ArtifactDir(), artifact))
	if err != nil {
		r.log.Error("audio capture failed", "event_id", id, "error", err)
		return
	}

	r.enqueueLocked(models.RawEvent{
		ID:          id,
		Timestamp:   ts,
		Kind:        models.EventAudioCommand,
		Payload:     models.Payload{Audio: artifact, DurationSecs: dur},
		ArtifactRef: artifact,
	})
}

// flushKeysLocked coalesces the buffered printable keystrokes into a single
// text_input event.
func (r *Recorder) flushKeysLocked() {
	if r.flushTimer != nil {
		r.flushTimer.Stop()
		r.flushTimer = nil
	}
	if len(r.keyBuf) == 0 {
		return
	}
	text := string(r.keyBuf)
	r.keyBuf = nil

	r.enqueueLocked(models.RawEvent{
		ID:        r.store.NextID(),
		Timestamp: r.keyBufTime,
		Kind:      models.EventTextInput,
		Payload:   models.Payload{Text: text},
	})
}

func (r *Recorder) resetFlushTimerLocked() {
	if r.flushTimer != nil {
		r.flushTimer.Stop()
	}
	r.flushTimer = time.AfterFunc(r.cfg.KeyFlushTimeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.state == Capturing {
			r.flushKeysLocked()
		}
	})
}

// enqueueLocked hands the event to the writer without blocking. A full
// queue drops the event; capture always continues.
func (r *Recorder) enqueueLocked(ev models.RawEvent) {
	select {
	case r.queue <- ev:
	default:
		r.dropped++
		r.log.Error("capture queue full, event dropped", "event_id", ev.ID, "kind", ev.Kind)
	}
}

// writeLoop is the single raw-log writer. Write errors are per-event:
// logged, then the loop moves on.
func (r *Recorder) writeLoop() {
	defer r.writer.Done()
	for ev := range r.queue {
		if err := r.store.AppendRaw(ev); err != nil {
			r.log.Error("raw event write failed", "event_id", ev.ID, "error", err)
		}
	}
}
