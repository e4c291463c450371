// Package ocr provides the optical-character-recognition collaborator
// interface and its tesseract-backed implementation.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Engine extracts text from a screenshot artifact.
type Engine interface {
	// TextFromImage returns the recognized text for the image at path.
	TextFromImage(ctx context.Context, path string) (string, error)
}

// Tesseract runs the tesseract CLI. The zero value is not usable; use
// NewTesseract.
type Tesseract struct {
	binPath string
	timeout time.Duration
}

// NewTesseract returns an Engine that shells out to the tesseract binary at
// binPath. Calls are bounded by timeout.
func NewTesseract(binPath string, timeout time.Duration) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Tesseract{binPath: binPath, timeout: timeout}
}

// Available reports whether the tesseract binary can be resolved.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binPath)
	return err == nil
}

// TextFromImage implements Engine. Newlines in the recognized text are
// flattened to spaces, matching how the text is later embedded in prompts.
func (t *Tesseract) TextFromImage(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("ocr input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binPath, path, "stdout", "--oem", "3", "--psm", "6")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ocr timed out after %s", t.timeout)
		}
		return "", fmt.Errorf("ocr failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	return strings.ReplaceAll(text, "\n", " "), nil
}
