// Package bus provides the async message bus between the fleet transport and
// the console core.
package bus

import (
	"context"
	"time"
)

// Inbound message kinds.
const (
	KindFleetState  = "fleet_state"
	KindTaskSummary = "task_summary"
)

// Outbound message kinds.
const (
	KindDelivery    = "delivery"
	KindLoop        = "loop"
	KindModeRequest = "mode_request"
)

// InboundMessage is a state update from the fleet side. Exactly one payload
// field is set, according to Kind.
type InboundMessage struct {
	Kind        string       `json:"kind"`
	FleetState  *FleetState  `json:"fleet_state,omitempty"`
	TaskSummary *TaskSummary `json:"task_summary,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// OutboundMessage is a request from the console to the fleet side. Exactly
// one payload field is set, according to Kind.
type OutboundMessage struct {
	Kind        string           `json:"kind"`
	Delivery    *DeliveryRequest `json:"delivery,omitempty"`
	Loop        *LoopRequest     `json:"loop,omitempty"`
	ModeRequest *ModeRequest     `json:"mode_request,omitempty"`
}

// MessageBus decouples the transport from the console core. Transports push
// inbound updates; the console run loop consumes them one at a time.
// Outbound requests take the synchronous Transport.Publish path instead so
// the dispatcher sees publish errors for its retry bookkeeping.
type MessageBus struct {
	inbound chan *InboundMessage
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound: make(chan *InboundMessage, 100),
	}
}

// PublishInbound sends a state update from the transport to the core.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.inbound <- msg
}

// ConsumeInbound blocks until an update is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InboundSize returns the number of pending inbound updates.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}
