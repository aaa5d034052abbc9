// Package schedule implements the editable, time-ordered queue of pending
// task entries awaiting dispatch.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FleetDeck/FleetDeck/internal/bus"
)

var (
	// ErrNotFound is returned when the referenced entry was already
	// dispatched or deleted.
	ErrNotFound = errors.New("schedule entry not found")
	// ErrInvalidSchedule is returned for a malformed time or payload at
	// enqueue. Nothing is mutated on this path.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Kind distinguishes the two task types the console can queue.
type Kind string

const (
	KindDelivery Kind = "delivery"
	KindLoop     Kind = "loop"
)

// Payload is the task request an entry will dispatch. Exactly one field is
// set, according to the entry's Kind.
type Payload struct {
	Delivery *bus.DeliveryRequest `json:"delivery,omitempty"`
	Loop     *bus.LoopRequest     `json:"loop,omitempty"`
}

// Entry is one queued task. Ordering key is (Time, SequenceID), so entries
// sharing a timestamp keep insertion order. Attempts counts failed dispatch
// publishes; the dispatcher drops the entry after its retry budget.
type Entry struct {
	SequenceID uint64
	Time       time.Time
	Kind       Kind
	Payload    Payload
	Attempts   int
}

// Queue is the time-ordered task queue. All methods are safe for concurrent
// use; ExtractDue is exclusive with every mutation, so an entry is never
// edited concurrently with its own extraction.
type Queue struct {
	mu      sync.Mutex
	entries []Entry // always sorted by (Time, SequenceID)
	nextSeq uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

func validate(at time.Time, kind Kind, p Payload) error {
	if at.IsZero() {
		return fmt.Errorf("%w: zero time", ErrInvalidSchedule)
	}
	switch kind {
	case KindDelivery:
		d := p.Delivery
		if d == nil {
			return fmt.Errorf("%w: missing delivery payload", ErrInvalidSchedule)
		}
		if d.PickupPlaceName == "" || d.DropoffPlaceName == "" {
			return fmt.Errorf("%w: delivery needs pickup and dropoff waypoints", ErrInvalidSchedule)
		}
		if d.PickupDispenser == "" || d.DropoffIngestor == "" {
			return fmt.Errorf("%w: delivery needs dispenser and ingestor names", ErrInvalidSchedule)
		}
	case KindLoop:
		l := p.Loop
		if l == nil {
			return fmt.Errorf("%w: missing loop payload", ErrInvalidSchedule)
		}
		if l.FleetName == "" {
			return fmt.Errorf("%w: loop needs a fleet", ErrInvalidSchedule)
		}
		if l.StartName == "" || l.FinishName == "" {
			return fmt.Errorf("%w: loop needs start and finish waypoints", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, kind)
	}
	return nil
}

// Enqueue validates and inserts a new entry, returning its sequence ID.
func (q *Queue) Enqueue(at time.Time, kind Kind, p Payload) (uint64, error) {
	if err := validate(at, kind, p); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextSeq++
	e := Entry{SequenceID: q.nextSeq, Time: at, Kind: kind, Payload: p}
	q.insertLocked(e)
	return e.SequenceID, nil
}

// Reinsert puts a previously extracted entry back, keeping its sequence ID
// and attempt count. Used by the dispatcher to retry failed publishes.
func (q *Queue) Reinsert(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insertLocked(e)
}

// insertLocked inserts keeping the (Time, SequenceID) order.
func (q *Queue) insertLocked(e Entry) {
	i := sort.Search(len(q.entries), func(i int) bool {
		o := q.entries[i]
		if !o.Time.Equal(e.Time) {
			return o.Time.After(e.Time)
		}
		return o.SequenceID > e.SequenceID
	})
	q.entries = append(q.entries, Entry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
}

// Edit mutates an entry in place. Either argument may be nil to leave the
// field unchanged; a time change re-sorts the queue. Payload changes are
// validated against the entry's kind.
func (q *Queue) Edit(seq uint64, newTime *time.Time, newPayload *Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(seq)
	if i < 0 {
		return fmt.Errorf("entry %d: %w", seq, ErrNotFound)
	}
	e := q.entries[i]
	if newTime != nil {
		e.Time = *newTime
	}
	if newPayload != nil {
		e.Payload = *newPayload
	}
	if err := validate(e.Time, e.Kind, e.Payload); err != nil {
		return err
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.insertLocked(e)
	return nil
}

// Delete removes an entry before its due time. This is the only cancellation
// path; a dispatched entry cannot be recalled.
func (q *Queue) Delete(seq uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(seq)
	if i < 0 {
		return fmt.Errorf("entry %d: %w", seq, ErrNotFound)
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return nil
}

func (q *Queue) indexLocked(seq uint64) int {
	for i, e := range q.entries {
		if e.SequenceID == seq {
			return i
		}
	}
	return -1
}

// ExtractDue atomically removes and returns every entry with Time <= now, in
// (Time, SequenceID) order. An entry scheduled exactly at now is due.
func (q *Queue) ExtractDue(now time.Time) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.entries) && !q.entries[n].Time.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]Entry, n)
	copy(due, q.entries[:n])
	q.entries = q.entries[n:]
	return due
}

// Entries returns a copy of the queue in order, for view projection.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
