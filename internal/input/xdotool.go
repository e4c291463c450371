package input

import (
	"fmt"
	"os/exec"
	"strconv"
)

// Xdotool implements Simulator by shelling out to xdotool. Coordinates are
// validated against the configured screen bounds before dispatch, so an
// out-of-bounds click fails without touching the pointer.
type Xdotool struct {
	binPath string
	width   int
	height  int
}

// NewXdotool returns a Simulator for a width x height screen.
func NewXdotool(binPath string, width, height int) *Xdotool {
	if binPath == "" {
		binPath = "xdotool"
	}
	return &Xdotool{binPath: binPath, width: width, height: height}
}

// Click implements Simulator.
func (x *Xdotool) Click(px, py int) error {
	if px < 0 || py < 0 || px >= x.width || py >= x.height {
		return &AutomationError{
			Op:  "click",
			Err: fmt.Errorf("coordinates (%d, %d) outside %dx%d screen", px, py, x.width, x.height),
		}
	}
	return x.run("click", "mousemove", strconv.Itoa(px), strconv.Itoa(py), "click", "1")
}

// TypeText implements Simulator.
func (x *Xdotool) TypeText(s string) error {
	if s == "" {
		return nil
	}
	return x.run("type", "type", "--delay", "12", "--", s)
}

// KeyPress implements Simulator.
func (x *Xdotool) KeyPress(code string) error {
	if code == "" {
		return &AutomationError{Op: "keypress", Err: fmt.Errorf("empty key code")}
	}
	return x.run("keypress", "key", "--", code)
}

func (x *Xdotool) run(op string, args ...string) error {
	cmd := exec.Command(x.binPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &AutomationError{Op: op, Err: fmt.Errorf("%w: %s", err, out)}
	}
	return nil
}
