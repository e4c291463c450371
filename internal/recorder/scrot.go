package recorder

import (
	"fmt"
	"os/exec"
)

// Scrot captures the screen by shelling out to scrot.
type Scrot struct {
	binPath string
}

// NewScrot returns a ScreenGrabber using the scrot binary at binPath.
func NewScrot(binPath string) *Scrot {
	if binPath == "" {
		binPath = "scrot"
	}
	return &Scrot{binPath: binPath}
}

// CaptureScreen implements ScreenGrabber.
func (s *Scrot) CaptureScreen(path string) error {
	cmd := exec.Command(s.binPath, "--overwrite", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("scrot: %w: %s", err, out)
	}
	return nil
}
