package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FleetDeck/FleetDeck/internal/bus"
	"github.com/FleetDeck/FleetDeck/internal/dispatch"
	"github.com/FleetDeck/FleetDeck/internal/graph"
	"github.com/FleetDeck/FleetDeck/internal/schedule"
	"github.com/FleetDeck/FleetDeck/internal/state"
)

type mapSource map[string]*graph.GraphInfo

func (m mapSource) Load(fleetName string) (*graph.GraphInfo, error) {
	if g, ok := m[fleetName]; ok {
		return g, nil
	}
	return nil, graph.ErrGraphNotFound
}

type recordingPublisher struct {
	published []*bus.OutboundMessage
	fail      bool
}

func (p *recordingPublisher) Publish(ctx context.Context, msg *bus.OutboundMessage) error {
	if p.fail {
		return errors.New("transport down")
	}
	p.published = append(p.published, msg)
	return nil
}

type fixture struct {
	ctrl  *Controller
	queue *schedule.Queue
	table *state.Table
	disp  *dispatch.Dispatcher
	pub   *recordingPublisher
}

func tinyRobotGraphs() *graph.Cache {
	return graph.NewCache(mapSource{
		"tinyRobot": {
			FleetName: "tinyRobot",
			Waypoints: []graph.Waypoint{
				{Name: "pantry", HasWorkcell: true},
				{Name: "hardware_2", HasWorkcell: true},
				{Name: "lounge"},
			},
		},
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	q := schedule.NewQueue()
	tbl := state.NewTable()
	pub := &recordingPublisher{}
	d := dispatch.New(dispatch.DefaultConfig(), q, tbl, pub, nil)
	ctrl := New(Options{Graphs: tinyRobotGraphs(), Table: tbl, Queue: q, Dispatcher: d, Publisher: pub})
	return &fixture{ctrl: ctrl, queue: q, table: tbl, disp: d, pub: pub}
}

func TestSubmitDeliveryQueuesEntry(t *testing.T) {
	f := newFixture(t)

	seq, err := f.ctrl.SubmitDelivery(DeliveryArgs{
		Fleet:           "tinyRobot",
		Pickup:          "pantry",
		PickupDispenser: "d1",
		Dropoff:         "hardware_2",
		DropoffIngestor: "i1",
		At:              time.Unix(100, 0),
	})
	if err != nil {
		t.Fatalf("submit delivery: %v", err)
	}
	entries := f.queue.Entries()
	if len(entries) != 1 || entries[0].SequenceID != seq || entries[0].Kind != schedule.KindDelivery {
		t.Fatalf("queue state wrong: %+v", entries)
	}
	if entries[0].Payload.Delivery.FleetName != "tinyRobot" {
		t.Errorf("fleet not carried into payload: %+v", entries[0].Payload.Delivery)
	}
}

func TestSubmitDeliveryUnknownWaypoint(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SubmitDelivery(DeliveryArgs{
		Fleet:           "tinyRobot",
		Pickup:          "pantry",
		PickupDispenser: "d1",
		Dropoff:         "does_not_exist",
		DropoffIngestor: "i1",
		At:              time.Unix(100, 0),
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
	if f.queue.Len() != 0 {
		t.Error("failed submission must leave the queue unchanged")
	}
}

func TestSubmitDeliveryWorkcellsOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SubmitDelivery(DeliveryArgs{
		Fleet:           "tinyRobot",
		Pickup:          "lounge", // no workcell
		PickupDispenser: "d1",
		Dropoff:         "hardware_2",
		DropoffIngestor: "i1",
		At:              time.Unix(100, 0),
		WorkcellsOnly:   true,
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected workcell restriction to fail, got %v", err)
	}
}

func TestWorkcellsOnlyDefaultFromOptions(t *testing.T) {
	q := schedule.NewQueue()
	tbl := state.NewTable()
	pub := &recordingPublisher{}
	d := dispatch.New(dispatch.DefaultConfig(), q, tbl, pub, nil)
	ctrl := New(Options{Graphs: tinyRobotGraphs(), Table: tbl, Queue: q, Dispatcher: d, Publisher: pub, WorkcellsOnly: true})

	// The per-call flag is off; the configured default still restricts.
	_, err := ctrl.SubmitDelivery(DeliveryArgs{
		Fleet:           "tinyRobot",
		Pickup:          "lounge",
		PickupDispenser: "d1",
		Dropoff:         "hardware_2",
		DropoffIngestor: "i1",
		At:              time.Unix(100, 0),
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected configured workcell restriction to apply, got %v", err)
	}

	if _, err := ctrl.SubmitDelivery(DeliveryArgs{
		Fleet:           "tinyRobot",
		Pickup:          "pantry",
		PickupDispenser: "d1",
		Dropoff:         "hardware_2",
		DropoffIngestor: "i1",
		At:              time.Unix(100, 0),
	}); err != nil {
		t.Fatalf("workcell-to-workcell delivery should pass: %v", err)
	}
}

func TestSubmitLoopUnknownFleet(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.SubmitLoop(LoopArgs{
		Fleet: "ghostFleet",
		Start: "a", Finish: "b",
		At: time.Unix(100, 0),
	})
	if !errors.Is(err, graph.ErrGraphNotFound) {
		t.Fatalf("expected ErrGraphNotFound, got %v", err)
	}
}

func TestPauseResumeRobot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ctrl.PauseRobot(ctx, "tinyRobot", "tinyRobot1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pausing an unseen robot should fail with ErrNotFound, got %v", err)
	}

	f.ctrl.ApplyInbound(&bus.InboundMessage{
		Kind:       bus.KindFleetState,
		FleetState: &bus.FleetState{Name: "tinyRobot", Robots: []bus.RobotState{{Name: "tinyRobot1", Mode: bus.ModeMoving}}},
	})

	if err := f.ctrl.PauseRobot(ctx, "tinyRobot", "tinyRobot1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.ctrl.ResumeRobot(ctx, "tinyRobot", "tinyRobot1"); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if len(f.pub.published) != 2 {
		t.Fatalf("expected 2 mode requests, got %d", len(f.pub.published))
	}
	if f.pub.published[0].ModeRequest.Mode != bus.ModePaused {
		t.Errorf("first request should pause: %+v", f.pub.published[0].ModeRequest)
	}
	if f.pub.published[1].ModeRequest.Mode != bus.ModeMoving {
		t.Errorf("second request should resume: %+v", f.pub.published[1].ModeRequest)
	}
	// Mode requests bypass the queue entirely.
	if f.queue.Len() != 0 {
		t.Error("mode requests must not touch the queue")
	}
}

func TestCurrentViewProjection(t *testing.T) {
	f := newFixture(t)

	f.ctrl.ApplyInbound(&bus.InboundMessage{
		Kind:       bus.KindFleetState,
		FleetState: &bus.FleetState{Name: "tinyRobot", Robots: []bus.RobotState{{Name: "tinyRobot1", Mode: bus.ModeIdle}}},
	})
	f.ctrl.ApplyInbound(&bus.InboundMessage{
		Kind:        bus.KindTaskSummary,
		TaskSummary: &bus.TaskSummary{TaskID: "t-1", State: bus.TaskActive},
	})
	if _, err := f.ctrl.SubmitLoop(LoopArgs{
		Fleet: "tinyRobot", Start: "pantry", Finish: "hardware_2", NumLoops: 3, At: time.Unix(100, 0),
	}); err != nil {
		t.Fatalf("submit loop: %v", err)
	}

	v := f.ctrl.CurrentView()
	if len(v.Selectors.Fleets) != 1 || v.Selectors.Fleets[0] != "tinyRobot" {
		t.Errorf("fleet selector: %v", v.Selectors.Fleets)
	}
	if wps := v.Selectors.WaypointsByFleet["tinyRobot"]; len(wps) != 3 {
		t.Errorf("waypoint selector should come from the cached graph: %v", wps)
	}
	if len(v.TaskSummaries) != 1 || v.TaskSummaries[0].State != bus.TaskActive {
		t.Errorf("task summaries: %+v", v.TaskSummaries)
	}
	if len(v.Schedule) != 1 || v.Schedule[0].Kind != schedule.KindLoop {
		t.Errorf("schedule view: %+v", v.Schedule)
	}
	if len(v.Log) == 0 {
		t.Error("expected summary log lines")
	}

	// Projection is pure: building a view twice changes nothing.
	v2 := f.ctrl.CurrentView()
	if len(v2.Schedule) != len(v.Schedule) || len(v2.TaskSummaries) != len(v.TaskSummaries) {
		t.Error("CurrentView mutated state")
	}
}

func TestControllerAdoptsDispatcherLock(t *testing.T) {
	f := newFixture(t)
	if f.ctrl.mu != f.disp.CoreLock() {
		t.Fatal("controller and dispatcher must share one core lock")
	}
}

// viewingPublisher takes a view from inside Publish, where the dispatcher has
// released the core lock for the broker round trip.
type viewingPublisher struct {
	ctrl  *Controller
	views chan View
}

func (p *viewingPublisher) Publish(ctx context.Context, msg *bus.OutboundMessage) error {
	select {
	case p.views <- p.ctrl.CurrentView():
	default:
	}
	return nil
}

func TestViewAvailableDuringPublish(t *testing.T) {
	q := schedule.NewQueue()
	tbl := state.NewTable()
	pub := &viewingPublisher{views: make(chan View, 1)}
	cfg := dispatch.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	d := dispatch.New(cfg, q, tbl, pub, nil)
	ctrl := New(Options{Graphs: tinyRobotGraphs(), Table: tbl, Queue: q, Dispatcher: d, Publisher: pub})
	pub.ctrl = ctrl

	if _, err := ctrl.SubmitLoop(LoopArgs{
		Fleet: "tinyRobot", Start: "pantry", Finish: "hardware_2", At: time.Unix(1, 0),
	}); err != nil {
		t.Fatalf("submit loop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	var v View
	select {
	case v = <-pub.views:
	case <-time.After(2 * time.Second):
		t.Fatal("no publish observed; view blocked during dispatch")
	}
	// Extraction is atomic with removal, so the in-flight entry is already
	// gone from the schedule.
	if len(v.Schedule) != 0 {
		t.Errorf("extracted entry still visible in schedule: %+v", v.Schedule)
	}

	// Once the tick completes its bookkeeping, the placeholder summary shows.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if sums := ctrl.CurrentView().TaskSummaries; len(sums) == 1 && sums[0].State == bus.TaskQueued {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("placeholder summary never appeared after dispatch")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
