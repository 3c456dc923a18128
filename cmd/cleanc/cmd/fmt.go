package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/printer"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt [file]",
	Short: "Reformat a Clean Language program to canonical source",
	Long: `Fmt parses a program and re-prints it in canonical form (consistent
indentation, spacing, and statement ordering), writing the result to stdout
unless -w is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write the reformatted source back to the file instead of stdout")
}

func runFmt(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	prog, diags := parser.Parse(string(content))
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprint(os.Stderr, d.Format(true, string(content)))
		}
		return &diagnosticError{diags: diags}
	}

	out := printer.Print(prog)
	if fmtWrite {
		if err := os.WriteFile(filename, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", filename, err)
		}
		return nil
	}

	fmt.Print(out)
	return nil
}
