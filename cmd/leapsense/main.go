// Package main provides the leapsense CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsense/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
