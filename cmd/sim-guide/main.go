// Package main provides the entry point for the sim-guide CLI.
package main

import (
	"fmt"
	"os"

	"github.com/turnono/sim/cmd/sim-guide/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
