// Command autogitpull scans directory trees for Git repositories and
// keeps them pulled on a timer.
package main

import (
	"fmt"
	"os"

	"github.com/autogitpull/autogitpull/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "autogitpull:", err)
		os.Exit(1)
	}
}
