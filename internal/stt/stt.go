// Package stt provides the speech-to-text collaborator interface and its
// whisper.cpp-backed implementation.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Transcriber turns an audio artifact into text.
type Transcriber interface {
	// TextFromAudio returns the transcription for the audio file at path.
	TextFromAudio(ctx context.Context, path string) (string, error)
}

// Whisper runs the whisper-cli binary. The zero value is not usable; use
// NewWhisper.
type Whisper struct {
	binPath   string
	modelPath string
	timeout   time.Duration
}

// NewWhisper returns a Transcriber that shells out to whisper-cli with the
// given GGML model. Calls are bounded by timeout.
func NewWhisper(binPath, modelPath string, timeout time.Duration) *Whisper {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Whisper{binPath: binPath, modelPath: modelPath, timeout: timeout}
}

// Available reports whether both the binary and the model file exist.
func (w *Whisper) Available() bool {
	if _, err := exec.LookPath(w.binPath); err != nil {
		return false
	}
	_, err := os.Stat(w.modelPath)
	return err == nil
}

// TextFromAudio implements Transcriber. whisper-cli writes its result next
// to the input as <path>.txt; that temporary file is removed afterwards.
func (w *Whisper) TextFromAudio(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stt input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.binPath, "-m", w.modelPath, "-f", path, "-otxt", "-np")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	outPath := path + ".txt"
	defer os.Remove(outPath)

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("stt timed out after %s", w.timeout)
		}
		return "", fmt.Errorf("stt failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("stt produced no output: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
