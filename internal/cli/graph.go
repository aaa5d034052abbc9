package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FleetDeck/FleetDeck/internal/config"
	"github.com/FleetDeck/FleetDeck/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <fleet>",
	Short: "Inspect a fleet's navigation graph",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fleet := args[0]

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config warning: %v (using defaults)\n", err)
		}

		g, err := graph.NewFileSource(cfg.Graph.Dir).Load(fleet)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		printHeader("🗺  Navigation graph: " + g.FleetName)
		for _, wp := range g.Waypoints {
			if wp.HasWorkcell {
				fmt.Printf("  %s %s\n", color.GreenString("●"), wp.Name+" (workcell)")
			} else {
				fmt.Printf("  %s %s\n", color.HiBlackString("○"), wp.Name)
			}
		}
		fmt.Printf("%d waypoints\n", len(g.Waypoints))
	},
}
