package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "" || cfg.WarningsAsErrors || len(cfg.SearchPaths) != 0 {
		t.Fatalf("expected zero-value Config, got %+v", cfg)
	}
}

func TestLoadParsesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	data := []byte("search_paths:\n  - vendor/clean\noutput_dir: build\nwarnings_as_errors: true\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputDir != "build" {
		t.Fatalf("OutputDir = %q, want %q", cfg.OutputDir, "build")
	}
	if !cfg.WarningsAsErrors {
		t.Fatalf("WarningsAsErrors = false, want true")
	}
	if len(cfg.SearchPaths) != 1 || cfg.SearchPaths[0] != "vendor/clean" {
		t.Fatalf("SearchPaths = %v, want [vendor/clean]", cfg.SearchPaths)
	}
}

func TestLoadRejectsMalformedManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	if err := os.WriteFile(path, []byte("output_dir: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}
