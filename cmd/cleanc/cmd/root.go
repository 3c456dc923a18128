package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cleanc",
	Short: "Clean Language compiler",
	Long: `cleanc compiles Clean Language programs to standalone WebAssembly 1.0
modules.

Clean Language is a statically typed, indentation-structured language with
primitives, generics, lists/matrices, single-inheritance classes and
overloaded functions. The compiler produces a WASM module plus the fixed
set of host imports ("env") the module expects its embedder to satisfy.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to clean.config.yaml (default: ./clean.config.yaml if present)")
}

var configPath string
