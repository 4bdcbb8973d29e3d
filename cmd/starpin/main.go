// Package main provides the starpin command line tool.
package main

import (
	"os"

	"github.com/starpoint-labs/starpin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
