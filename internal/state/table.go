// Package state holds the live fleet state table: the latest known state of
// every robot plus the task summaries reported by the backend.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/FleetDeck/FleetDeck/internal/bus"
)

// RobotKey identifies one robot within one fleet.
type RobotKey struct {
	Fleet string
	Robot string
}

// Snapshot is a consistent point-in-time copy of the table. Mutating a
// snapshot never affects the table.
type Snapshot struct {
	Fleets        []string
	RobotsByFleet map[string][]string
	Robots        map[RobotKey]bus.RobotState
	TaskSummaries []bus.TaskSummary
	TakenAt       time.Time
}

// Table is the concurrently-updated fleet/robot state table. Fleets and
// robots are discovered implicitly: the first update for an unseen pair
// creates its entry. Robot states and task summaries are replaced wholesale,
// last write wins.
type Table struct {
	mu        sync.Mutex
	robots    map[string]map[string]bus.RobotState
	summaries map[string]bus.TaskSummary
	taskOrder []string // task IDs in first-seen order
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		robots:    make(map[string]map[string]bus.RobotState),
		summaries: make(map[string]bus.TaskSummary),
	}
}

// ApplyFleetState upserts every robot state in a fleet state report.
func (t *Table) ApplyFleetState(fs *bus.FleetState) {
	if fs == nil || fs.Name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fleet := t.robots[fs.Name]
	if fleet == nil {
		fleet = make(map[string]bus.RobotState)
		t.robots[fs.Name] = fleet
	}
	for _, rs := range fs.Robots {
		if rs.Name == "" {
			continue
		}
		fleet[rs.Name] = rs
	}
}

// ApplyRobotState upserts a single robot's state.
func (t *Table) ApplyRobotState(fleetName string, rs bus.RobotState) {
	t.ApplyFleetState(&bus.FleetState{Name: fleetName, Robots: []bus.RobotState{rs}})
}

// ApplyTaskSummary upserts a task summary keyed by task ID. Summaries are
// never deleted, only superseded.
func (t *Table) ApplyTaskSummary(ts bus.TaskSummary) {
	if ts.TaskID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.summaries[ts.TaskID]; !seen {
		t.taskOrder = append(t.taskOrder, ts.TaskID)
	}
	t.summaries[ts.TaskID] = ts
}

// HasRobot reports whether the table has seen the given robot.
func (t *Table) HasRobot(fleetName, robotName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.robots[fleetName][robotName]
	return ok
}

// HasFleet reports whether the table has seen the given fleet.
func (t *Table) HasFleet(fleetName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.robots[fleetName]
	return ok
}

// Snapshot returns a consistent deep copy of the table. Fleet and robot
// lists are sorted so selector derivation is deterministic; task summaries
// keep first-seen order.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		RobotsByFleet: make(map[string][]string, len(t.robots)),
		Robots:        make(map[RobotKey]bus.RobotState),
		TakenAt:       time.Now(),
	}
	for fleetName, fleet := range t.robots {
		snap.Fleets = append(snap.Fleets, fleetName)
		names := make([]string, 0, len(fleet))
		for robotName, rs := range fleet {
			names = append(names, robotName)
			snap.Robots[RobotKey{Fleet: fleetName, Robot: robotName}] = rs
		}
		sort.Strings(names)
		snap.RobotsByFleet[fleetName] = names
	}
	sort.Strings(snap.Fleets)

	snap.TaskSummaries = make([]bus.TaskSummary, 0, len(t.taskOrder))
	for _, id := range t.taskOrder {
		snap.TaskSummaries = append(snap.TaskSummaries, t.summaries[id])
	}
	return snap
}
