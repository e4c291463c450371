package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WindowSize != 15 {
		t.Errorf("WindowSize = %d, want 15", cfg.WindowSize)
	}
	if cfg.RetentionTTL != 24*time.Hour {
		t.Errorf("RetentionTTL = %s, want 24h", cfg.RetentionTTL)
	}
	if cfg.PushToTalkKey != "ctrl_r" {
		t.Errorf("PushToTalkKey = %q, want ctrl_r", cfg.PushToTalkKey)
	}
}

func TestWriteThenLoad(t *testing.T) {
	root := t.TempDir()

	cfg := Default()
	cfg.WindowSize = 30
	cfg.SettleDelay = 250 * time.Millisecond
	if err := cfg.Write(root); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.WindowSize != 30 {
		t.Errorf("WindowSize = %d, want 30", loaded.WindowSize)
	}
	if loaded.SettleDelay != 250*time.Millisecond {
		t.Errorf("SettleDelay = %s, want 250ms", loaded.SettleDelay)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	root := t.TempDir()
	dir := DataDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("window_size: [not an int"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(root); err == nil {
		t.Error("Load accepted a malformed config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero screen width", func(c *Config) { c.ScreenWidth = 0 }, true},
		{"negative window", func(c *Config) { c.WindowSize = -1 }, true},
		{"negative repair attempts", func(c *Config) { c.MaxRepairAttempts = -1 }, true},
		{"zero ttl", func(c *Config) { c.RetentionTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
