package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/printer"
)

var (
	parseExpr    string
	parseDumpAST bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse Clean Language source and display the AST",
	Long: `Parse reads a program, runs the lexer and parser, and prints either
the re-printed source (the default) or the full parsed AST (--dump-ast).

If no file is given, parse reads from stdin. Use -e to parse an inline
snippet instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseExpr, "eval", "e", "", "parse an inline snippet instead of a file")
	parseCmd.Flags().BoolVar(&parseDumpAST, "dump-ast", false, "dump the full AST structure instead of re-printing source")
}

func runParse(_ *cobra.Command, args []string) error {
	input, err := readInput(parseExpr, args)
	if err != nil {
		return err
	}

	prog, diags := parser.Parse(input)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprint(os.Stderr, d.Format(true, input))
		}
		return &diagnosticError{diags: diags}
	}

	if parseDumpAST {
		fmt.Println("Abstract Syntax Tree:")
		fmt.Println("=====================")
		dumpASTNode(os.Stdout, prog, 0)
	} else {
		fmt.Print(printer.Print(prog))
	}

	return nil
}

// readInput resolves an input program from, in priority order: an inline
// -e string, a file argument, or stdin — the same three-way selection the
// teacher's run/parse commands share.
func readInput(inline string, args []string) (string, error) {
	switch {
	case inline != "":
		return inline, nil
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("error reading file: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		return string(data), nil
	}
}
