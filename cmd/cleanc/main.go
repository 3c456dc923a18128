// Command cleanc is the Clean Language compiler's command-line driver.
// It is the external collaborator spec.md §1 scopes out of the core
// translation pipeline (lexer, parser, semantic analyzer, code
// generator): file I/O, logging, and the subcommand surface live here;
// pkg/clean owns the pipeline itself.
package main

import (
	"os"

	"github.com/cwbudde/clean-wasmc/cmd/cleanc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCodeFor(err))
	}
}
