// Package main is the entry point for the fleetdeck CLI.
package main

import (
	"os"

	"github.com/FleetDeck/FleetDeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
