package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/finn/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "finn:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
