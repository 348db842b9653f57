// Command rite is the validation ceremony client CLI.
package main

import (
	"fmt"
	"os"

	"github.com/perales/rite/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Subcommands silence cobra's own reporting; print the error once here.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
