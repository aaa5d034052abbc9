// Package journal persists dispatch history and dispatch errors to sqlite so
// the operator can audit what the console actually sent.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordDispatch inserts a dispatch record.
func (j *Journal) RecordDispatch(rec *DispatchRecord) error {
	_, err := j.db.Exec(`INSERT INTO dispatches (task_id, kind, fleet, scheduled_at, dispatched_at, attempts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TaskID, rec.Kind, rec.Fleet, rec.ScheduledAt, rec.DispatchedAt, rec.Attempts)
	return err
}

// RecordError inserts a dispatch error record.
func (j *Journal) RecordError(rec *ErrorRecord) error {
	_, err := j.db.Exec(`INSERT INTO dispatch_errors (sequence_id, task_id, kind, fleet, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SequenceID, rec.TaskID, rec.Kind, rec.Fleet, rec.Reason, rec.OccurredAt)
	return err
}

// ListDispatches returns the most recent dispatches, newest first.
func (j *Journal) ListDispatches(limit int) ([]DispatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(`SELECT id, task_id, kind, COALESCE(fleet, ''), scheduled_at, dispatched_at, attempts
		FROM dispatches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DispatchRecord
	for rows.Next() {
		var r DispatchRecord
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Kind, &r.Fleet, &r.ScheduledAt, &r.DispatchedAt, &r.Attempts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListErrors returns the most recent dispatch errors, newest first.
func (j *Journal) ListErrors(limit int) ([]ErrorRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(`SELECT id, sequence_id, COALESCE(task_id, ''), kind, COALESCE(fleet, ''), reason, occurred_at
		FROM dispatch_errors ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var r ErrorRecord
		if err := rows.Scan(&r.ID, &r.SequenceID, &r.TaskID, &r.Kind, &r.Fleet, &r.Reason, &r.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of recorded dispatches and errors.
func (j *Journal) Counts() (dispatches, errors int, err error) {
	if err = j.db.QueryRow(`SELECT COUNT(*) FROM dispatches`).Scan(&dispatches); err != nil {
		return 0, 0, err
	}
	if err = j.db.QueryRow(`SELECT COUNT(*) FROM dispatch_errors`).Scan(&errors); err != nil {
		return 0, 0, err
	}
	return dispatches, errors, nil
}
