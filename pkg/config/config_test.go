package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.WakeWord.Threshold != 0.8 {
		t.Errorf("expected default wake threshold 0.8, got %v", cfg.WakeWord.Threshold)
	}
}

func TestLoad_OverridesDefaultsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "wake_word:\n  threshold: 0.6\naudio:\n  frame_size: 256\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WakeWord.Threshold != 0.6 {
		t.Errorf("expected overridden threshold 0.6, got %v", cfg.WakeWord.Threshold)
	}
	if cfg.Audio.FrameSize != 256 {
		t.Errorf("expected overridden frame size 256, got %d", cfg.Audio.FrameSize)
	}
	// untouched fields keep their defaults.
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected default sample rate to survive partial override, got %d", cfg.Audio.SampleRate)
	}
}

func TestLoad_RejectsInvalidThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "wake_word:\n  threshold: 1.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an out-of-range threshold")
	}
}
