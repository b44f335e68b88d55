// Package main is the entry point of the standin CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/standinhq/standin/cmd/standin/commands"
	"github.com/standinhq/standin/pkg/standin/onboard"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, onboard.ErrNoCandidates) || errors.Is(err, onboard.ErrNoneSelected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
