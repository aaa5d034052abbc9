package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FleetDeck/FleetDeck/internal/bus"
	"github.com/FleetDeck/FleetDeck/internal/config"
	"github.com/FleetDeck/FleetDeck/internal/console"
	"github.com/FleetDeck/FleetDeck/internal/dispatch"
	"github.com/FleetDeck/FleetDeck/internal/graph"
	"github.com/FleetDeck/FleetDeck/internal/journal"
	"github.com/FleetDeck/FleetDeck/internal/schedule"
	"github.com/FleetDeck/FleetDeck/internal/state"
	"github.com/FleetDeck/FleetDeck/internal/transport"
)

var consoleLoopback bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the console core against the fleet transport",
	Run:   runConsole,
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleLoopback, "loopback", false, "Use the in-process loopback transport instead of kafka")
}

func runConsole(cmd *cobra.Command, args []string) {
	printHeader("🛰  FleetDeck Console")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config warning: %v (using defaults)\n", err)
	}

	msgBus := bus.NewMessageBus()
	graphs := graph.NewCache(graph.NewFileSource(cfg.Graph.Dir))
	table := state.NewTable()
	queue := schedule.NewQueue()

	var tr transport.Transport
	if consoleLoopback || cfg.Transport.Mode == "loopback" {
		tr = transport.NewLoopbackTransport(msgBus)
	} else {
		tr = transport.NewKafkaTransport(cfg.Transport.Brokers, cfg.Transport.ConsumerGroup, cfg.Transport.Topics, msgBus)
	}

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			fmt.Printf("Journal error: %v (continuing without journal)\n", err)
			jrnl = nil
		} else {
			defer jrnl.Close()
		}
	}

	dispatcher := dispatch.New(dispatch.Config{
		TickInterval: cfg.Dispatcher.TickInterval,
		MaxAttempts:  cfg.Dispatcher.MaxAttempts,
		OrphanPolicy: dispatch.OrphanPolicy(cfg.Dispatcher.OrphanPolicy),
	}, queue, table, tr, jrnl)

	ctrl := console.New(console.Options{
		Graphs:        graphs,
		Table:         table,
		Queue:         queue,
		Dispatcher:    dispatcher,
		Publisher:     tr,
		WorkcellsOnly: cfg.Console.WorkcellsOnly,
		LogSize:       cfg.Console.SummaryLogSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tr.Start(ctx); err != nil {
		fmt.Printf("Transport error: %v\n", err)
		os.Exit(1)
	}
	defer tr.Stop()
	slog.Info("Transport started", "transport", tr.Name(), "brokers", cfg.Transport.Brokers)

	// Inbound updates mutate the core; the refresh tick below only reads.
	go func() {
		for {
			msg, err := msgBus.ConsumeInbound(ctx)
			if err != nil {
				return
			}
			ctrl.ApplyInbound(msg)
		}
	}()

	go func() {
		_ = dispatcher.Run(ctx)
	}()

	fmt.Printf("Console running (transport=%s, tick=%s). Ctrl-C to stop.\n", tr.Name(), cfg.Dispatcher.TickInterval)
	interval := cfg.Console.RefreshInterval
	if interval <= 0 {
		interval = time.Second
	}
	refresh := time.NewTicker(interval)
	defer refresh.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nConsole stopped.")
			return
		case <-refresh.C:
			v := ctrl.CurrentView()
			slog.Info("Console view",
				"fleets", len(v.Selectors.Fleets),
				"robots", len(v.Robots),
				"queued", len(v.Schedule),
				"tasks", len(v.TaskSummaries),
				"dispatchErrors", len(v.DispatchErrors))
		}
	}
}
