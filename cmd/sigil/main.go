package main

import (
	"fmt"
	"os"

	"github.com/calebraw/sigil/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sigil: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
