// Package main is the entry point for the flightcheck CLI.
//
// All logic lives in the commands package; main only maps the outcome of
// the root command to a process exit code.
package main

import (
	"os"

	"github.com/JNZader/flightcheck/cmd/flightcheck/commands"
)

func main() {
	os.Exit(commands.Execute())
}
