// Package config loads the optional clean.config.yaml manifest that
// `cleanc compile` consults for project-wide settings spec.md
// itself names no configuration mechanism for (SPEC_FULL §10: "the one
// ambient concern spec.md leaves fully open"). Parsed with
// github.com/goccy/go-yaml, already present in the teacher's go.mod as an
// indirect dependency of go-snaps's own fixture tooling and promoted here
// to a direct one.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the manifest shape. Every field has a zero value that
// reproduces spec §6's defaults exactly, so a missing manifest and an
// empty one behave identically.
type Config struct {
	// SearchPaths is read from the manifest but not consulted anywhere:
	// the import resolver searches only its fixed default order
	// (./, ./modules/, ./lib/, ./stdlib/).
	SearchPaths []string `yaml:"search_paths"`

	// OutputDir is where `cleanc compile` writes the produced .wasm file
	// when -o is not given. Empty means "next to the input file".
	OutputDir string `yaml:"output_dir"`

	// WarningsAsErrors promotes every diag.SeverityWarning to a failing
	// diagnostic, tightening spec §7's "warnings alone don't suppress the
	// artifact" default for projects that want a stricter gate.
	WarningsAsErrors bool `yaml:"warnings_as_errors"`
}

// DefaultFilename is the manifest name `cleanc` looks for in the current
// directory when no --config flag is given.
const DefaultFilename = "clean.config.yaml"

// Load reads and parses the manifest at path. A missing file is not an
// error — it reports the zero Config, matching spec's "no configuration
// mechanism" baseline — but a present, malformed file is.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}
