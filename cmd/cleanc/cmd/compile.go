package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clean-wasmc/internal/config"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/pkg/clean"
)

var (
	compileOutput  string
	compileVerbose bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a Clean Language program to a WASM module",
	Long: `Compile lexes, parses, resolves imports, type-checks and lowers a
Clean Language program to a standalone WebAssembly 1.0 module.

Examples:
  # Compile a program, writing alongside it as script.wasm
  cleanc compile script.cln

  # Compile with a custom output path
  cleanc compile script.cln -o build/out.wasm`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output file (default: <input>.wasm)")
	compileCmd.Flags().BoolVarP(&compileVerbose, "verbose", "v", false, "verbose output")
}

func runCompile(_ *cobra.Command, args []string) error {
	filename := args[0]

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}

	artifact, diags := clean.Compile(string(content), clean.Options{
		Filename: filename,
		FS:       os.DirFS(filepath.Dir(filename)),
	})

	errorCount := 0
	for _, d := range diags {
		fmt.Fprint(os.Stderr, d.Format(true, string(content)))
		if d.Severity == diag.SeverityError || (cfg.WarningsAsErrors && d.Severity == diag.SeverityWarning) {
			errorCount++
		}
	}
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr)
	}

	if artifact == nil || errorCount > 0 {
		return &diagnosticError{diags: diags}
	}

	outFile := compileOutput
	if outFile == "" {
		outFile = defaultOutputPath(filename, cfg.OutputDir)
	}

	if err := os.WriteFile(outFile, artifact.Wasm, 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outFile, err)
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Compiled %d bytes, %d host imports\n", len(artifact.Wasm), len(artifact.Imports))
	}
	fmt.Printf("Compiled %s -> %s\n", filename, outFile)

	return nil
}

func defaultOutputPath(filename, outputDir string) string {
	ext := filepath.Ext(filename)
	base := filename
	if ext != "" {
		base = strings.TrimSuffix(filename, ext)
	}
	outFile := base + ".wasm"
	if outputDir == "" {
		return outFile
	}
	return filepath.Join(outputDir, filepath.Base(outFile))
}

// loadConfig reads the manifest from --config, or clean.config.yaml in the
// working directory when --config was not given.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFilename
	}
	return config.Load(path)
}
