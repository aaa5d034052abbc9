package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FleetDeck/FleetDeck/internal/config"
	"github.com/FleetDeck/FleetDeck/internal/journal"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ FleetDeck Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show console status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 FleetDeck Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:    ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:    ✗ Not found (defaults in effect)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:    ! %v (defaults in effect)\n", err)
		}
		fmt.Printf("Transport: %s (%s)\n", cfg.Transport.Mode, cfg.Transport.Brokers)

		if fi, err := os.Stat(cfg.Graph.Dir); err == nil && fi.IsDir() {
			fmt.Println("Graphs:    ✓ " + cfg.Graph.Dir)
		} else {
			fmt.Println("Graphs:    ✗ Missing dir " + cfg.Graph.Dir)
		}

		if !cfg.Journal.Enabled {
			fmt.Println("Journal:   ✗ Disabled")
			return
		}
		if _, err := os.Stat(cfg.Journal.Path); err != nil {
			fmt.Println("Journal:   ✗ No database yet (" + cfg.Journal.Path + ")")
			return
		}
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			fmt.Printf("Journal:   ? Unable to open (%v)\n", err)
			return
		}
		defer j.Close()
		dispatches, errs, err := j.Counts()
		if err != nil {
			fmt.Printf("Journal:   ? Query failed (%v)\n", err)
			return
		}
		fmt.Printf("Journal:   ✓ %d dispatches, %d errors\n", dispatches, errs)
	},
}
