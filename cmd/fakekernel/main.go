// Command fakekernel validates and runs driver scenarios against the fake
// kernel.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fakekernel/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
