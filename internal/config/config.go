// Package config loads deskpilot configuration from the data directory's
// config.yaml, applying defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-root data directory.
const DirName = ".deskpilot"

// Config holds all tunables for the pipeline.
type Config struct {
	// Screen bounds used to validate synthesized click coordinates.
	ScreenWidth  int `yaml:"screen_width"`
	ScreenHeight int `yaml:"screen_height"`

	// WindowSize is how many recent enriched events feed the synthesis
	// prompt.
	WindowSize int `yaml:"window_size"`

	// MaxRepairAttempts bounds the corrective follow-up prompts after a
	// rejected completion result.
	MaxRepairAttempts int `yaml:"max_repair_attempts"`

	// RetentionTTL is how long raw artifacts are kept.
	RetentionTTL time.Duration `yaml:"retention_ttl"`

	// SettleDelay is the pause between replayed actions; StartDelay is the
	// countdown before the first action, giving the user time to focus the
	// target window.
	SettleDelay time.Duration `yaml:"settle_delay"`
	StartDelay  time.Duration `yaml:"start_delay"`

	// KeyFlushTimeout is how long the recorder waits after the last
	// printable keystroke before coalescing the buffer into a text_input
	// event.
	KeyFlushTimeout time.Duration `yaml:"key_flush_timeout"`

	// PushToTalkKey is the key code that arms audio capture while held.
	PushToTalkKey string `yaml:"push_to_talk_key"`

	// Collaborator call timeouts.
	OCRTimeout        time.Duration `yaml:"ocr_timeout"`
	STTTimeout        time.Duration `yaml:"stt_timeout"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	// MaxOutputTokens caps the completion call.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// External tool and model paths.
	TesseractPath string `yaml:"tesseract_path"`
	WhisperPath   string `yaml:"whisper_path"`
	WhisperModel  string `yaml:"whisper_model"`
	LlamaPath     string `yaml:"llama_path"`
	LlamaModel    string `yaml:"llama_model"`
	XdotoolPath   string `yaml:"xdotool_path"`
	ScrotPath     string `yaml:"scrot_path"`
	ArecordPath   string `yaml:"arecord_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ScreenWidth:       1920,
		ScreenHeight:      1080,
		WindowSize:        15,
		MaxRepairAttempts: 2,
		RetentionTTL:      24 * time.Hour,
		SettleDelay:       500 * time.Millisecond,
		StartDelay:        3 * time.Second,
		KeyFlushTimeout:   1500 * time.Millisecond,
		PushToTalkKey:     "ctrl_r",
		OCRTimeout:        60 * time.Second,
		STTTimeout:        60 * time.Second,
		CompletionTimeout: 120 * time.Second,
		MaxOutputTokens:   4000,
		TesseractPath:     "tesseract",
		WhisperPath:       "whisper-cli",
		WhisperModel:      "models/ggml-base.en.bin",
		LlamaPath:         "llama-cli",
		LlamaModel:        "models/Phi-3-mini-4k-instruct-q4.gguf",
		XdotoolPath:       "xdotool",
		ScrotPath:         "scrot",
		ArecordPath:       "arecord",
	}
}

// DataDir returns the data directory under root.
func DataDir(root string) string {
	return filepath.Join(root, DirName)
}

// Load reads config.yaml from the data directory under root. A missing file
// yields the defaults; a malformed file is an error.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(DataDir(root), "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("screen bounds must be positive, got %dx%d", c.ScreenWidth, c.ScreenHeight)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.MaxRepairAttempts < 0 {
		return fmt.Errorf("max_repair_attempts must not be negative, got %d", c.MaxRepairAttempts)
	}
	if c.RetentionTTL <= 0 {
		return fmt.Errorf("retention_ttl must be positive, got %s", c.RetentionTTL)
	}
	return nil
}

// Write saves the configuration to config.yaml under root, creating the data
// directory if needed.
func (c Config) Write(root string) error {
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
