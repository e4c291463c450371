package recorder

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Arecord captures microphone audio by running arecord between Start and
// Stop. The recording lands in a temporary file and is renamed to the final
// artifact path on Stop.
type Arecord struct {
	binPath string

	mu      sync.Mutex
	cmd     *exec.Cmd
	tmpPath string
	started time.Time
}

// NewArecord returns an AudioRecorder using the arecord binary at binPath.
func NewArecord(binPath string) *Arecord {
	if binPath == "" {
		binPath = "arecord"
	}
	return &Arecord{binPath: binPath}
}

// Start implements AudioRecorder. 16 kHz mono, the rate speech models
// expect.
func (a *Arecord) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cmd != nil {
		return fmt.Errorf("audio capture already running")
	}

	tmp, err := os.CreateTemp("", "deskpilot-audio-*.wav")
	if err != nil {
		return fmt.Errorf("creating audio temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command(a.binPath, "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", tmp.Name())
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("starting arecord: %w", err)
	}

	a.cmd = cmd
	a.tmpPath = tmp.Name()
	a.started = time.Now()
	return nil
}

// Stop implements AudioRecorder: it interrupts arecord (which finalizes the
// WAV header), then moves the recording to path.
func (a *Arecord) Stop(path string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cmd == nil {
		return 0, fmt.Errorf("audio capture not running")
	}

	cmd, tmpPath, started := a.cmd, a.tmpPath, a.started
	a.cmd = nil
	a.tmpPath = ""

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		cmd.Process.Kill()
	}
	cmd.Wait()

	if err := moveFile(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("saving audio artifact: %w", err)
	}
	return time.Since(started).Seconds(), nil
}

// moveFile moves src to dst. Rename fails with EXDEV when the temp dir and
// the artifact area sit on different filesystems (tmpfs /tmp is common), so
// it falls back to copy and remove.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	os.Remove(src)
	return nil
}
