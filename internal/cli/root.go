package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/FleetDeck/FleetDeck/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  _____ _           _   ____            _\n" +
		" |  ___| | ___  ___| |_|  _ \\  ___  ___| | __\n" +
		" | |_  | |/ _ \\/ _ \\ __| | | |/ _ \\/ __| |/ /\n" +
		" |  _| | |  __/  __/ |_| |_| |  __/ (__|   <\n" +
		" |_|   |_|\\___|\\___|\\__|____/ \\___|\\___|_|\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "fleetdeck",
	Short: "FleetDeck - Multi-robot fleet operator console",
	Long:  color.CyanString(logo) + "\nAn operator console core for heterogeneous robot fleets: live state,\nscheduled deliveries and loops, and timed dispatch to the task backend.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(graphCmd)
}
