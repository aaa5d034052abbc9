package transport

import (
	"context"
	"sync"

	"github.com/FleetDeck/FleetDeck/internal/bus"
)

// LoopbackTransport is an in-process Transport for tests and for running the
// console without a broker (--loopback). Outbound requests are collected;
// inbound updates are injected by the caller.
type LoopbackTransport struct {
	bus *bus.MessageBus

	mu        sync.Mutex
	started   bool
	published []*bus.OutboundMessage
	failErr   error
}

// NewLoopbackTransport creates a loopback transport feeding b.
func NewLoopbackTransport(b *bus.MessageBus) *LoopbackTransport {
	return &LoopbackTransport{bus: b}
}

// Name returns "loopback".
func (t *LoopbackTransport) Name() string { return "loopback" }

// Start marks the transport started.
func (t *LoopbackTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	return nil
}

// Stop marks the transport stopped.
func (t *LoopbackTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	return nil
}

// Publish records the outbound request, or fails with the injected error.
func (t *LoopbackTransport) Publish(ctx context.Context, msg *bus.OutboundMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failErr != nil {
		return t.failErr
	}
	t.published = append(t.published, msg)
	return nil
}

// FailWith makes subsequent publishes fail with err; nil clears the fault.
func (t *LoopbackTransport) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failErr = err
}

// Published returns the outbound requests published so far.
func (t *LoopbackTransport) Published() []*bus.OutboundMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*bus.OutboundMessage, len(t.published))
	copy(out, t.published)
	return out
}

// InjectFleetState pushes a fleet state update onto the bus.
func (t *LoopbackTransport) InjectFleetState(fs *bus.FleetState) {
	t.bus.PublishInbound(&bus.InboundMessage{Kind: bus.KindFleetState, FleetState: fs})
}

// InjectTaskSummary pushes a task summary update onto the bus.
func (t *LoopbackTransport) InjectTaskSummary(ts *bus.TaskSummary) {
	t.bus.PublishInbound(&bus.InboundMessage{Kind: bus.KindTaskSummary, TaskSummary: ts})
}
