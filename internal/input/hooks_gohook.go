//go:build globalhooks

package input

import (
	"fmt"
	"sync"
	"time"
	"unicode"

	hook "github.com/robotn/gohook"
)

// gohookSource adapts the gohook global event tap to HookSource.
type gohookSource struct {
	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// SystemHooks returns the gohook-backed global input hook.
func SystemHooks() (HookSource, error) {
	return &gohookSource{}, nil
}

func (g *gohookSource) Start(cb func(HookEvent)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return fmt.Errorf("hooks already started")
	}
	g.started = true
	g.done = make(chan struct{})

	ch := hook.Start()
	go func() {
		defer close(g.done)
		for ev := range ch {
			he, ok := translate(ev)
			if !ok {
				continue
			}
			cb(he)
		}
	}()
	return nil
}

func (g *gohookSource) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started {
		return nil
	}
	g.started = false
	hook.End()
	<-g.done
	return nil
}

func translate(ev hook.Event) (HookEvent, bool) {
	now := time.Now().UTC()
	switch ev.Kind {
	case hook.MouseDown:
		return HookEvent{Kind: HookClick, Time: now, X: int(ev.X), Y: int(ev.Y)}, true
	case hook.KeyDown:
		if unicode.IsPrint(ev.Keychar) && ev.Keychar != 0 {
			return HookEvent{Kind: HookKeyDown, Time: now, Char: ev.Keychar}, true
		}
		return HookEvent{Kind: HookKeyDown, Time: now, Key: hook.RawcodetoKeychar(ev.Rawcode)}, true
	case hook.KeyUp:
		return HookEvent{Kind: HookKeyUp, Time: now, Key: hook.RawcodetoKeychar(ev.Rawcode)}, true
	}
	return HookEvent{}, false
}
