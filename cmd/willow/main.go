package main

import (
	"fmt"
	"os"

	"github.com/willowtree-housing/willow/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own diagnostics; the error here carries the
		// exit code and a one-line summary.
		fmt.Fprintf(os.Stderr, "willow: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
