package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	b := NewMessageBus()

	b.PublishInbound(&InboundMessage{
		Kind: KindFleetState,
		FleetState: &FleetState{
			Name:   "tinyRobot",
			Robots: []RobotState{{Name: "tinyRobot1", Mode: ModeIdle}},
		},
	})

	if b.InboundSize() != 1 {
		t.Fatalf("expected 1 pending message, got %d", b.InboundSize())
	}

	msg, err := b.ConsumeInbound(context.Background())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if msg.Kind != KindFleetState {
		t.Errorf("expected kind %q, got %q", KindFleetState, msg.Kind)
	}
	if msg.FleetState == nil || msg.FleetState.Name != "tinyRobot" {
		t.Errorf("fleet state payload lost: %+v", msg.FleetState)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set on publish")
	}
}

func TestConsumeInboundCancelled(t *testing.T) {
	b := NewMessageBus()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Fatal("expected error from cancelled consume")
	}
}
