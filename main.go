package main

import (
	"fmt"
	"os"

	"github.com/abdidvp/luaguard/internal/adapters/inbound/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
