// Package main provides the CLI for the LeapExtract extraction engine.
package main

import (
	"os"

	"github.com/leapstack-labs/leapextract/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
