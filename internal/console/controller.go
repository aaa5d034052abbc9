// Package console orchestrates the fleet state table, graph cache, task
// queue and dispatcher behind the single API the presentation layer uses.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FleetDeck/FleetDeck/internal/bus"
	"github.com/FleetDeck/FleetDeck/internal/dispatch"
	"github.com/FleetDeck/FleetDeck/internal/graph"
	"github.com/FleetDeck/FleetDeck/internal/schedule"
	"github.com/FleetDeck/FleetDeck/internal/state"
)

// ErrInvalidSelection is returned when a chosen waypoint does not exist in
// the fleet's graph or lacks a required workcell.
var ErrInvalidSelection = errors.New("invalid waypoint selection")

// ErrNotFound is returned when a referenced fleet or robot is unknown.
var ErrNotFound = errors.New("not found")

const defaultLogSize = 200

// Options configures the controller.
type Options struct {
	Graphs     *graph.Cache
	Table      *state.Table
	Queue      *schedule.Queue
	Dispatcher *dispatch.Dispatcher
	Publisher  dispatch.Publisher
	// WorkcellsOnly restricts every delivery submission to workcell
	// waypoints, regardless of the per-call flag.
	WorkcellsOnly bool
	LogSize       int
}

// Controller is the only component presentation code talks to. All state
// mutation funnels through it, under the core lock it shares with the
// dispatcher; publishing happens outside that lock.
type Controller struct {
	graphs *graph.Cache
	table  *state.Table
	queue  *schedule.Queue
	disp   *dispatch.Dispatcher
	pub    dispatch.Publisher

	workcellsOnly bool

	mu      *sync.Mutex // shared with the dispatcher's tick
	log     []string
	logSize int
}

// New creates a Controller.
func New(opts Options) *Controller {
	size := opts.LogSize
	if size <= 0 {
		size = defaultLogSize
	}
	mu := new(sync.Mutex)
	if opts.Dispatcher != nil {
		mu = opts.Dispatcher.CoreLock()
	}
	return &Controller{
		graphs:        opts.Graphs,
		table:         opts.Table,
		queue:         opts.Queue,
		disp:          opts.Dispatcher,
		pub:           opts.Publisher,
		workcellsOnly: opts.WorkcellsOnly,
		mu:            mu,
		logSize:       size,
	}
}

// ApplyInbound folds one transport update into the state table and the
// summary log. Called from the console run loop.
func (c *Controller) ApplyInbound(msg *bus.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Kind {
	case bus.KindFleetState:
		if msg.FleetState == nil {
			return
		}
		c.table.ApplyFleetState(msg.FleetState)
		// Warm the graph cache; a failed load is retried on the next
		// report from this fleet.
		if _, err := c.graphs.Get(msg.FleetState.Name); err != nil {
			slog.Debug("Graph not yet available", "fleet", msg.FleetState.Name, "error", err)
		}
	case bus.KindTaskSummary:
		if msg.TaskSummary == nil {
			return
		}
		c.table.ApplyTaskSummary(*msg.TaskSummary)
		c.appendLogLocked(fmt.Sprintf("task %s [%s] %s", msg.TaskSummary.TaskID, msg.TaskSummary.State, msg.TaskSummary.Status))
	default:
		slog.Warn("Dropping inbound message of unknown kind", "kind", msg.Kind)
	}
}

// DeliveryArgs describes a delivery submission.
type DeliveryArgs struct {
	Fleet           string
	Pickup          string
	PickupDispenser string
	Dropoff         string
	DropoffIngestor string
	At              time.Time
	WorkcellsOnly   bool
}

// SubmitDelivery validates the waypoint selection against the fleet's graph
// and queues a delivery entry.
func (c *Controller) SubmitDelivery(args DeliveryArgs) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.graphs.Get(args.Fleet)
	if err != nil {
		return 0, err
	}
	workcellsOnly := args.WorkcellsOnly || c.workcellsOnly
	for _, name := range []string{args.Pickup, args.Dropoff} {
		wp, ok := g.Find(name)
		if !ok {
			return 0, fmt.Errorf("waypoint %q not in fleet %q graph: %w", name, args.Fleet, ErrInvalidSelection)
		}
		if workcellsOnly && !wp.HasWorkcell {
			return 0, fmt.Errorf("waypoint %q has no workcell: %w", name, ErrInvalidSelection)
		}
	}

	seq, err := c.queue.Enqueue(args.At, schedule.KindDelivery, schedule.Payload{Delivery: &bus.DeliveryRequest{
		FleetName:        args.Fleet,
		PickupPlaceName:  args.Pickup,
		PickupDispenser:  args.PickupDispenser,
		DropoffPlaceName: args.Dropoff,
		DropoffIngestor:  args.DropoffIngestor,
	}})
	if err != nil {
		return 0, err
	}
	c.appendLogLocked(fmt.Sprintf("queued delivery %s -> %s for %s at %s", args.Pickup, args.Dropoff, args.Fleet, args.At.Format(time.TimeOnly)))
	return seq, nil
}

// LoopArgs describes a loop submission.
type LoopArgs struct {
	Fleet    string
	Start    string
	Finish   string
	NumLoops int
	At       time.Time
}

// SubmitLoop validates the waypoint selection and queues a loop entry.
func (c *Controller) SubmitLoop(args LoopArgs) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.graphs.Get(args.Fleet)
	if err != nil {
		return 0, err
	}
	for _, name := range []string{args.Start, args.Finish} {
		if _, ok := g.Find(name); !ok {
			return 0, fmt.Errorf("waypoint %q not in fleet %q graph: %w", name, args.Fleet, ErrInvalidSelection)
		}
	}
	loops := args.NumLoops
	if loops <= 0 {
		loops = 1
	}

	seq, err := c.queue.Enqueue(args.At, schedule.KindLoop, schedule.Payload{Loop: &bus.LoopRequest{
		FleetName:  args.Fleet,
		NumLoops:   loops,
		StartName:  args.Start,
		FinishName: args.Finish,
	}})
	if err != nil {
		return 0, err
	}
	c.appendLogLocked(fmt.Sprintf("queued loop %s <-> %s x%d for %s at %s", args.Start, args.Finish, loops, args.Fleet, args.At.Format(time.TimeOnly)))
	return seq, nil
}

// EditEntry changes a queued entry's time and/or payload.
func (c *Controller) EditEntry(seq uint64, newTime *time.Time, newPayload *schedule.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Edit(seq, newTime, newPayload)
}

// DeleteEntry removes a queued entry before its due time.
func (c *Controller) DeleteEntry(seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.queue.Delete(seq); err != nil {
		return err
	}
	c.appendLogLocked(fmt.Sprintf("deleted schedule entry %d", seq))
	return nil
}

// PauseRobot publishes an immediate pause mode request, bypassing the queue.
func (c *Controller) PauseRobot(ctx context.Context, fleet, robot string) error {
	return c.requestMode(ctx, fleet, robot, bus.ModePaused)
}

// ResumeRobot publishes an immediate resume mode request, bypassing the
// queue. This is also the compensating action for an erroneous pause; a
// published request cannot be recalled.
func (c *Controller) ResumeRobot(ctx context.Context, fleet, robot string) error {
	return c.requestMode(ctx, fleet, robot, bus.ModeMoving)
}

func (c *Controller) requestMode(ctx context.Context, fleet, robot string, mode bus.RobotMode) error {
	c.mu.Lock()
	known := c.table.HasRobot(fleet, robot)
	c.mu.Unlock()
	if !known {
		return fmt.Errorf("robot %s/%s: %w", fleet, robot, ErrNotFound)
	}
	msg := &bus.OutboundMessage{
		Kind:        bus.KindModeRequest,
		ModeRequest: &bus.ModeRequest{FleetName: fleet, RobotName: robot, Mode: mode},
	}
	// Publishing happens outside the core lock.
	if err := c.pub.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish mode request: %w", err)
	}
	c.appendLog(fmt.Sprintf("requested %s for %s/%s", mode, fleet, robot))
	return nil
}

// HoldSchedule pauses or resumes the dispatcher.
func (c *Controller) HoldSchedule(hold bool) {
	if hold {
		c.disp.Hold()
	} else {
		c.disp.Resume()
	}
}

func (c *Controller) appendLog(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLogLocked(line)
}

func (c *Controller) appendLogLocked(line string) {
	c.log = append(c.log, time.Now().Format(time.TimeOnly)+" "+line)
	if len(c.log) > c.logSize {
		c.log = c.log[len(c.log)-c.logSize:]
	}
}
