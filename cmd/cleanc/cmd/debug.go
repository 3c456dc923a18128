package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clean-wasmc/internal/lexer"
	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

var (
	debugShowTokens  bool
	debugShowAST     bool
	debugShowSymbols bool
)

var debugCmd = &cobra.Command{
	Use:   "debug [file]",
	Short: "Inspect a Clean Language program's compiler-internal state",
	Long: `Debug runs as much of the pipeline as needed to satisfy the requested
views and prints them: --show-tokens for the raw lexer stream, --show-ast
for the parsed tree, --show-symbols for the resolved function and class
tables pass 1 of the semantic analyzer collected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)

	debugCmd.Flags().BoolVar(&debugShowTokens, "show-tokens", false, "dump the raw token stream")
	debugCmd.Flags().BoolVar(&debugShowAST, "show-ast", false, "dump the parsed AST")
	debugCmd.Flags().BoolVar(&debugShowSymbols, "show-symbols", false, "dump the resolved function and class tables")
}

func runDebug(_ *cobra.Command, args []string) error {
	input, err := readInput("", args)
	if err != nil {
		return err
	}

	if !debugShowTokens && !debugShowAST && !debugShowSymbols {
		debugShowAST = true
	}

	if debugShowTokens {
		fmt.Println("Tokens:")
		fmt.Println("=======")
		dumpTokens(input)
		fmt.Println()
	}

	prog, diags := parser.Parse(input)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprint(os.Stderr, d.Format(true, input))
		}
		return &diagnosticError{diags: diags}
	}

	if debugShowAST {
		fmt.Println("Abstract Syntax Tree:")
		fmt.Println("=====================")
		dumpASTNode(os.Stdout, prog, 0)
		fmt.Println()
	}

	if debugShowSymbols {
		result := semantic.Analyze(prog)
		fmt.Println("Symbols:")
		fmt.Println("========")
		dumpSymbols(result)
	}

	return nil
}

func dumpTokens(input string) {
	l := lexer.New(input)
	for {
		tok := l.NextToken()
		fmt.Printf("  %-14s %-20q %s\n", tok.Type, tok.Literal, tok.Pos)
		if tok.Type == token.EOF {
			break
		}
	}
}

func dumpSymbols(result *semantic.Result) {
	functionNames := make([]string, 0, len(result.Functions))
	for name := range result.Functions {
		functionNames = append(functionNames, name)
	}
	sort.Strings(functionNames)

	fmt.Println("  Functions:")
	for _, name := range functionNames {
		set := result.Functions[name]
		fmt.Printf("    %s (%d overload(s))\n", name, len(set.Signatures))
	}

	classNames := make([]string, 0, len(result.Classes))
	for name := range result.Classes {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)

	fmt.Println("  Classes:")
	for _, name := range classNames {
		info := result.Classes[name]
		parent := info.Decl.Parent
		if parent == "" {
			parent = "(none)"
		}
		fmt.Printf("    %s extends %s, %d field(s), %d method(s)\n", name, parent, len(info.Fields), len(info.Methods))
	}
}
