// Command exprgen compiles, checks and evaluates expression IR.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/exprgen/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own formatted errors; only surface the rest.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
