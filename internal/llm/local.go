//go:build llamacpp

package llm

import (
	"context"
	"fmt"
	"sync"

	llama "github.com/tcpipuk/llama-go"
)

var _ Completer = (*LocalClient)(nil)

// LocalClient implements Completer with an embedded GGUF model via llama-go,
// avoiding the subprocess round-trip of CLIClient. Thread-safe: all model
// access is serialized via mutex.
type LocalClient struct {
	modelPath   string
	gpuLayers   int
	contextSize int

	// mu serializes llama context access (contexts are not thread-safe)
	mu sync.Mutex

	model   *llama.Model
	loadErr error
	once    sync.Once
}

// LocalConfig configures the embedded completion client.
type LocalConfig struct {
	// ModelPath is the path to the GGUF model file.
	ModelPath string

	// GPULayers is the number of layers to offload to GPU (0 = CPU only).
	GPULayers int

	// ContextSize is the context window size in tokens.
	ContextSize int
}

// NewLocalClient creates a LocalClient. The model is not loaded until first
// use.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	ctxSize := cfg.ContextSize
	if ctxSize <= 0 {
		ctxSize = 8192
	}
	return &LocalClient{
		modelPath:   cfg.ModelPath,
		gpuLayers:   cfg.GPULayers,
		contextSize: ctxSize,
	}
}

// loadModel lazy-loads the model on first use.
func (c *LocalClient) loadModel() error {
	c.once.Do(func() {
		if c.modelPath == "" {
			c.loadErr = fmt.Errorf("no model path configured")
			return
		}
		model, err := llama.LoadModel(c.modelPath,
			llama.WithGPULayers(c.gpuLayers),
			llama.WithContext(c.contextSize),
		)
		if err != nil {
			c.loadErr = fmt.Errorf("loading model %s: %w", c.modelPath, err)
			return
		}
		c.model = model
	})
	return c.loadErr
}

// Complete implements Completer. Generation is deterministic (temperature 0)
// so the same prompt yields the same plan candidate.
func (c *LocalClient) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if err := c.loadModel(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.model.Generate(prompt,
			llama.WithMaxTokens(maxOutputTokens),
			llama.WithTemperature(0),
		)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("generation failed: %w", r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the loaded model.
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		c.model.Close()
		c.model = nil
	}
	return nil
}
