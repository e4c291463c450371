// Package llm provides the text-completion collaborator interface and a
// llama.cpp CLI-backed implementation. Completion is a single stateless
// call: prompt in, text out, local models only.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Completer is the text-completion collaborator.
type Completer interface {
	// Complete sends one prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// CLIClient shells out to a llama.cpp-style CLI with a local GGUF model.
// The zero value is not usable; use NewCLIClient.
type CLIClient struct {
	binPath   string
	modelPath string
	timeout   time.Duration
}

// CLIConfig configures the completion client.
type CLIConfig struct {
	// BinPath is the llama CLI binary (default "llama-cli").
	BinPath string

	// ModelPath is the GGUF model file.
	ModelPath string

	// Timeout bounds a single completion call (default 120s).
	Timeout time.Duration
}

// NewCLIClient creates a completion client from cfg.
func NewCLIClient(cfg CLIConfig) *CLIClient {
	if cfg.BinPath == "" {
		cfg.BinPath = "llama-cli"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &CLIClient{
		binPath:   cfg.BinPath,
		modelPath: cfg.ModelPath,
		timeout:   cfg.Timeout,
	}
}

// Available reports whether the binary and model file can be found. This is
// a cheap check that does not load the model.
func (c *CLIClient) Available() bool {
	if _, err := exec.LookPath(c.binPath); err != nil {
		return false
	}
	_, err := os.Stat(c.modelPath)
	return err == nil
}

// Complete implements Completer. Generation is deterministic (temperature 0)
// so the same prompt yields the same plan candidate.
func (c *CLIClient) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = 4000
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binPath,
		"-m", c.modelPath,
		"-n", strconv.Itoa(maxOutputTokens),
		"--temp", "0",
		"--no-display-prompt",
		"-no-cnv",
		"-p", prompt,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("completion timed out after %s", c.timeout)
		}
		return "", fmt.Errorf("completion failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
