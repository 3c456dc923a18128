package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"

	"github.com/cwbudde/clean-wasmc/internal/hostenv"
	"github.com/cwbudde/clean-wasmc/pkg/clean"
)

var runEvalExpr string

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Compile and execute a Clean Language program",
	Long: `Run compiles a program in memory and executes it with an embedded
host-import implementation, so the module's start() output can be observed
without a separate WASM runtime on the host machine.

Examples:
  # Run a file
  cleanc run script.cln

  # Run an inline snippet
  cleanc run -e "start()\n  println(\"hi\")"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runEvalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
}

func runProgram(_ *cobra.Command, args []string) error {
	var source, filename, dir string

	switch {
	case runEvalExpr != "":
		source = runEvalExpr
		filename = "<eval>"
		dir = "."
	case len(args) == 1:
		filename = args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		source = string(content)
		dir = filepath.Dir(filename)
	default:
		return fmt.Errorf("either provide a file path or use -e for inline code")
	}

	artifact, diags := clean.Compile(source, clean.Options{
		Filename: filename,
		FS:       os.DirFS(dir),
	})
	for _, d := range diags {
		fmt.Fprint(os.Stderr, d.Format(true, source))
	}
	if artifact == nil {
		return &diagnosticError{diags: diags}
	}

	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	env := hostenv.New(os.Stdout, os.Stderr, dir)
	if err := env.Instantiate(ctx, runtime); err != nil {
		return fmt.Errorf("failed to register host imports: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, artifact.Wasm)
	if err != nil {
		return fmt.Errorf("failed to compile WASM module: %w", err)
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return fmt.Errorf("failed to instantiate WASM module: %w", err)
	}
	defer mod.Close(ctx)

	env.BindMemory(mod)

	start := mod.ExportedFunction("start")
	if start == nil {
		return fmt.Errorf("module has no start export")
	}
	if _, err := start.Call(ctx); err != nil {
		return fmt.Errorf("start() trapped: %w", err)
	}

	return nil
}
