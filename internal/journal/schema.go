package journal

import "time"

// Schema is applied on open. Journal databases are session artifacts but
// survive restarts, so the DDL stays idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT UNIQUE NOT NULL,
	kind TEXT NOT NULL,
	fleet TEXT,
	scheduled_at DATETIME,
	dispatched_at DATETIME NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dispatches_fleet ON dispatches(fleet);

CREATE TABLE IF NOT EXISTS dispatch_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sequence_id INTEGER NOT NULL,
	task_id TEXT,
	kind TEXT NOT NULL,
	fleet TEXT,
	reason TEXT NOT NULL,
	occurred_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DispatchRecord is one successfully published task request.
type DispatchRecord struct {
	ID           int64     `json:"id"`
	TaskID       string    `json:"task_id"`
	Kind         string    `json:"kind"`
	Fleet        string    `json:"fleet,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	DispatchedAt time.Time `json:"dispatched_at"`
	Attempts     int       `json:"attempts"`
}

// ErrorRecord is one entry dropped after exhausting its retry budget, or
// dropped by the orphan policy.
type ErrorRecord struct {
	ID         int64     `json:"id"`
	SequenceID uint64    `json:"sequence_id"`
	TaskID     string    `json:"task_id,omitempty"`
	Kind       string    `json:"kind"`
	Fleet      string    `json:"fleet,omitempty"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
