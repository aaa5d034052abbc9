// Package dispatch drains due schedule entries on a fixed cadence and hands
// them to the fleet transport, with bounded retry on publish failure.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FleetDeck/FleetDeck/internal/bus"
	"github.com/FleetDeck/FleetDeck/internal/journal"
	"github.com/FleetDeck/FleetDeck/internal/schedule"
	"github.com/FleetDeck/FleetDeck/internal/state"
)

// Publisher delivers an outbound request to the fleet side. Implemented by
// the transports; errors feed the dispatcher's retry bookkeeping.
type Publisher interface {
	Publish(ctx context.Context, msg *bus.OutboundMessage) error
}

// OrphanPolicy decides what happens to a due entry whose fleet has never
// been seen in the state table.
type OrphanPolicy string

const (
	// OrphanDispatch sends the entry anyway; the fleet adapter may simply
	// be between state updates. Matches the original console behavior.
	OrphanDispatch OrphanPolicy = "dispatch"
	// OrphanDrop drops the entry and reports it as a dispatch error.
	OrphanDrop OrphanPolicy = "drop"
)

// Config holds dispatcher settings.
type Config struct {
	TickInterval time.Duration `json:"tickInterval"`
	MaxAttempts  int           `json:"maxAttempts"`
	OrphanPolicy OrphanPolicy  `json:"orphanPolicy"`
}

// DefaultConfig returns sensible dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		MaxAttempts:  3,
		OrphanPolicy: OrphanDispatch,
	}
}

// DispatchError reports an entry dropped after exhausting its retry budget
// or by the orphan policy. Surfaced in the view model, never fatal.
type DispatchError struct {
	SequenceID uint64
	TaskID     string
	Kind       schedule.Kind
	Fleet      string
	Reason     string
	Time       time.Time
}

const maxKeptErrors = 100

// Dispatcher polls the task queue and publishes due entries in order.
type Dispatcher struct {
	cfg     Config
	queue   *schedule.Queue
	table   *state.Table
	pub     Publisher
	journal *journal.Journal // optional

	// core serializes a whole tick's extraction and bookkeeping with the
	// controller's operations and view snapshots. Shared via CoreLock.
	core sync.Mutex

	mu   sync.Mutex
	held bool
	errs []DispatchError
}

// New creates a Dispatcher. The journal may be nil.
func New(cfg Config, q *schedule.Queue, tbl *state.Table, pub Publisher, jrnl *journal.Journal) *Dispatcher {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.OrphanPolicy == "" {
		cfg.OrphanPolicy = OrphanDispatch
	}
	return &Dispatcher{
		cfg:     cfg,
		queue:   q,
		table:   tbl,
		pub:     pub,
		journal: jrnl,
	}
}

// CoreLock exposes the mutex serializing dispatch ticks with controller
// operations, so a view never observes a half-finished tick. The controller
// adopts it as its own lock.
func (d *Dispatcher) CoreLock() *sync.Mutex {
	return &d.core
}

// Run starts the dispatch tick loop. Blocks until context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("Dispatcher started", "tick", d.cfg.TickInterval, "maxAttempts", d.cfg.MaxAttempts)
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatcher stopped")
			return ctx.Err()
		case t := <-ticker.C:
			d.tick(ctx, t)
		}
	}
}

// Hold pauses dispatch: held ticks extract nothing, the queue keeps filling.
func (d *Dispatcher) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = true
}

// Resume re-enables dispatch.
func (d *Dispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.held = false
}

// Held reports whether dispatch is currently paused.
func (d *Dispatcher) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

// Errors returns the recent dispatch errors, oldest first.
func (d *Dispatcher) Errors() []DispatchError {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DispatchError, len(d.errs))
	copy(out, d.errs)
	return out
}

// tick extracts every due entry and publishes each in order. Extraction is
// atomic with removal, so an entry is dispatched at most once. The whole tick
// runs under the core lock, dropping it only around the broker round trip, so
// the controller's view sees ticks whole.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	if d.Held() {
		slog.Debug("Dispatcher tick skipped: schedule held")
		return
	}

	d.core.Lock()
	defer d.core.Unlock()
	for _, e := range d.queue.ExtractDue(now) {
		d.dispatch(ctx, e, now)
	}
}

// dispatch is called with the core lock held.
func (d *Dispatcher) dispatch(ctx context.Context, e schedule.Entry, now time.Time) {
	fleet := entryFleet(e)

	if d.cfg.OrphanPolicy == OrphanDrop && fleet != "" && !d.table.HasFleet(fleet) {
		d.report(e, fleet, fmt.Sprintf("fleet %q not present in state table", fleet), now)
		return
	}

	msg := outboundMessage(&e)
	taskID := entryTaskID(e)

	d.core.Unlock()
	err := d.pub.Publish(ctx, msg)
	d.core.Lock()

	if err != nil {
		e.Attempts++
		if e.Attempts >= d.cfg.MaxAttempts {
			d.report(e, fleet, fmt.Sprintf("publish failed after %d attempts: %v", e.Attempts, err), now)
			return
		}
		slog.Warn("Dispatcher publish failed, will retry", "seq", e.SequenceID, "attempt", e.Attempts, "error", err)
		// The entry keeps its scheduled time, so it is already due on the
		// next tick and the journal records when the operator wanted it.
		d.queue.Reinsert(e)
		return
	}

	slog.Info("Dispatcher published task", "seq", e.SequenceID, "kind", e.Kind, "task", taskID)

	// Placeholder summary; the backend's authoritative summary supersedes
	// it via the inbound path.
	d.table.ApplyTaskSummary(bus.TaskSummary{
		TaskID:         taskID,
		FleetName:      fleet,
		State:          bus.TaskQueued,
		SubmissionTime: now,
	})

	if d.journal != nil {
		if err := d.journal.RecordDispatch(&journal.DispatchRecord{
			TaskID:       taskID,
			Kind:         string(e.Kind),
			Fleet:        fleet,
			ScheduledAt:  e.Time,
			DispatchedAt: now,
			Attempts:     e.Attempts + 1,
		}); err != nil {
			slog.Warn("Dispatcher journal write failed", "error", err)
		}
	}
}

func (d *Dispatcher) report(e schedule.Entry, fleet, reason string, now time.Time) {
	derr := DispatchError{
		SequenceID: e.SequenceID,
		TaskID:     entryTaskID(e),
		Kind:       e.Kind,
		Fleet:      fleet,
		Reason:     reason,
		Time:       now,
	}
	slog.Warn("Dispatcher dropped entry", "seq", e.SequenceID, "reason", reason)

	d.mu.Lock()
	d.errs = append(d.errs, derr)
	if len(d.errs) > maxKeptErrors {
		d.errs = d.errs[len(d.errs)-maxKeptErrors:]
	}
	d.mu.Unlock()

	if d.journal != nil {
		if err := d.journal.RecordError(&journal.ErrorRecord{
			SequenceID: derr.SequenceID,
			TaskID:     derr.TaskID,
			Kind:       string(derr.Kind),
			Fleet:      derr.Fleet,
			Reason:     derr.Reason,
			OccurredAt: now,
		}); err != nil {
			slog.Warn("Dispatcher journal write failed", "error", err)
		}
	}
}

// outboundMessage builds the request for an entry, assigning an opaque task
// ID on first dispatch so retries keep the same ID.
func outboundMessage(e *schedule.Entry) *bus.OutboundMessage {
	switch e.Kind {
	case schedule.KindDelivery:
		if e.Payload.Delivery.TaskID == "" {
			e.Payload.Delivery.TaskID = uuid.NewString()
		}
		return &bus.OutboundMessage{Kind: bus.KindDelivery, Delivery: e.Payload.Delivery}
	default:
		if e.Payload.Loop.TaskID == "" {
			e.Payload.Loop.TaskID = uuid.NewString()
		}
		return &bus.OutboundMessage{Kind: bus.KindLoop, Loop: e.Payload.Loop}
	}
}

func entryFleet(e schedule.Entry) string {
	switch e.Kind {
	case schedule.KindDelivery:
		return e.Payload.Delivery.FleetName
	default:
		return e.Payload.Loop.FleetName
	}
}

func entryTaskID(e schedule.Entry) string {
	switch e.Kind {
	case schedule.KindDelivery:
		return e.Payload.Delivery.TaskID
	default:
		return e.Payload.Loop.TaskID
	}
}
