package bus

import "time"

// RobotMode describes what a robot is currently doing.
type RobotMode string

const (
	ModeIdle      RobotMode = "idle"
	ModeCharging  RobotMode = "charging"
	ModeMoving    RobotMode = "moving"
	ModePaused    RobotMode = "paused"
	ModeWaiting   RobotMode = "waiting"
	ModeEmergency RobotMode = "emergency"
	ModeError     RobotMode = "error"
)

// TaskState describes the lifecycle state of a task as reported by the
// task-issuing backend.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskActive    TaskState = "active"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Location is a robot position on a named level.
type Location struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Yaw       float64 `json:"yaw"`
	LevelName string  `json:"level_name"`
}

// RobotState is the last reported state of one robot. Fleet membership is
// carried by the enclosing FleetState message.
type RobotState struct {
	Name           string    `json:"name"`
	Model          string    `json:"model,omitempty"`
	Mode           RobotMode `json:"mode"`
	BatteryPercent float64   `json:"battery_percent"`
	Location       Location  `json:"location"`
	TaskID         string    `json:"task_id,omitempty"`
}

// FleetState is a full state report for one fleet: every robot the fleet
// adapter currently knows about.
type FleetState struct {
	Name   string       `json:"name"`
	Robots []RobotState `json:"robots"`
}

// TaskSummary is the backend's view of a submitted task.
type TaskSummary struct {
	TaskID         string    `json:"task_id"`
	FleetName      string    `json:"fleet_name,omitempty"`
	State          TaskState `json:"state"`
	Status         string    `json:"status,omitempty"`
	SubmissionTime time.Time `json:"submission_time"`
}

// DeliveryRequest asks a fleet to move material between two workcells.
type DeliveryRequest struct {
	TaskID           string `json:"task_id"`
	FleetName        string `json:"fleet_name,omitempty"`
	PickupPlaceName  string `json:"pickup_place_name"`
	PickupDispenser  string `json:"pickup_dispenser"`
	DropoffPlaceName string `json:"dropoff_place_name"`
	DropoffIngestor  string `json:"dropoff_ingestor"`
}

// LoopRequest asks a fleet to shuttle between two waypoints.
type LoopRequest struct {
	TaskID     string `json:"task_id"`
	FleetName  string `json:"robot_type"`
	NumLoops   int    `json:"num_loops"`
	StartName  string `json:"start_name"`
	FinishName string `json:"finish_name"`
}

// ModeRequest asks one robot to change mode (pause/resume).
type ModeRequest struct {
	FleetName string    `json:"fleet_name"`
	RobotName string    `json:"robot_name"`
	Mode      RobotMode `json:"mode"`
}
