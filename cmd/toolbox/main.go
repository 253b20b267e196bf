// Package main provides the toolbox command line. It manages the tools of a
// Markdown vault, runs the commands they contribute, and opens the terminal
// settings screen.
package main

import (
	"os"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
