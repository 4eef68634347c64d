package main

import (
	"fmt"
	"os"

	"github.com/gnoswap-labs/unroll/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		code := cmd.ExitCode(err)
		if code != cmd.ExitDegraded {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(code)
	}
}
