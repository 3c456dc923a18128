package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
)

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Check Clean Language programs for diagnostics without compiling",
	Long: `Lint parses and type-checks every .cln/.clean file under path (a single
file or a directory tree) and reports diagnostics, stopping short of code
generation. It exits non-zero if any file has an error-severity diagnostic.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(_ *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	files, err := cleanFiles(root)
	if err != nil {
		return err
	}

	var all []diag.Diagnostic
	hadError := false

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		source := string(content)

		prog, diags := parser.Parse(source)
		if len(diags) == 0 {
			result := semantic.Analyze(prog)
			diags = result.Diagnostics
		}

		for _, d := range diags {
			fmt.Printf("%s: ", path)
			fmt.Print(d.Format(true, source))
			if d.Severity == diag.SeverityError {
				hadError = true
			}
		}
		all = append(all, diags...)
	}

	fmt.Printf("\n%d file(s) checked, %d diagnostic(s)\n", len(files), len(all))
	if hadError {
		return &diagnosticError{diags: all}
	}
	return nil
}

// cleanFiles walks root collecting .cln/.clean files; a single matching
// file is returned as its own one-element slice.
func cleanFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".cln" || ext == ".clean" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .cln/.clean files found under %s", strings.TrimSuffix(root, "/"))
	}
	return files, nil
}
