package console

import (
	"fmt"

	"github.com/FleetDeck/FleetDeck/internal/bus"
	"github.com/FleetDeck/FleetDeck/internal/dispatch"
	"github.com/FleetDeck/FleetDeck/internal/schedule"
	"github.com/FleetDeck/FleetDeck/internal/state"
)

// Selectors are the option lists the presentation layer binds its fleet,
// robot and waypoint pickers to. Waypoints appear only for fleets whose
// graph has been loaded.
type Selectors struct {
	Fleets           []string
	RobotsByFleet    map[string][]string
	WaypointsByFleet map[string][]string
}

// ScheduleItem is the view of one queued entry.
type ScheduleItem struct {
	SequenceID uint64
	Kind       schedule.Kind
	Label      string
}

// View is a read-only projection of the core state. Building one never
// mutates anything; the presentation layer polls it on its own cadence.
type View struct {
	Selectors      Selectors
	Robots         map[state.RobotKey]bus.RobotState
	TaskSummaries  []bus.TaskSummary
	Schedule       []ScheduleItem
	DispatchErrors []dispatch.DispatchError
	ScheduleHeld   bool
	Log            []string
}

// CurrentView projects the state table, queue and dispatcher into a view
// model. It runs under the core lock shared with the dispatcher, so the
// projection is consistent across components: a dispatch tick is observed
// either not started or with its bookkeeping complete.
func (c *Controller) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.table.Snapshot()

	v := View{
		Selectors: Selectors{
			Fleets:           snap.Fleets,
			RobotsByFleet:    snap.RobotsByFleet,
			WaypointsByFleet: make(map[string][]string, len(snap.Fleets)),
		},
		Robots:         snap.Robots,
		TaskSummaries:  snap.TaskSummaries,
		DispatchErrors: c.disp.Errors(),
		ScheduleHeld:   c.disp.Held(),
	}
	for _, fleet := range snap.Fleets {
		if g, ok := c.graphs.Cached(fleet); ok {
			v.Selectors.WaypointsByFleet[fleet] = g.WaypointNames(false)
		}
	}

	for _, e := range c.queue.Entries() {
		v.Schedule = append(v.Schedule, ScheduleItem{
			SequenceID: e.SequenceID,
			Kind:       e.Kind,
			Label:      entryLabel(e),
		})
	}

	v.Log = append([]string(nil), c.log...)
	return v
}

func entryLabel(e schedule.Entry) string {
	when := e.Time.Format("15:04:05")
	switch e.Kind {
	case schedule.KindDelivery:
		d := e.Payload.Delivery
		return fmt.Sprintf("[delivery] %s -> %s by %s at %s", d.PickupPlaceName, d.DropoffPlaceName, d.FleetName, when)
	default:
		l := e.Payload.Loop
		return fmt.Sprintf("[loop] %s <-> %s x%d by %s at %s", l.StartName, l.FinishName, l.NumLoops, l.FleetName, when)
	}
}
