// Package transport bridges the console's message bus to the fleet side:
// inbound state topics feed the bus, outbound requests are published
// best-effort.
package transport

import (
	"context"

	"github.com/FleetDeck/FleetDeck/internal/bus"
)

// Transport defines the interface for fleet message transports.
type Transport interface {
	// Name returns the transport name (e.g. "kafka").
	Name() string
	// Start begins feeding inbound updates to the bus.
	Start(ctx context.Context) error
	// Stop stops the transport.
	Stop() error
	// Publish sends an outbound request. Best-effort: an error here is
	// handled by the caller's retry bookkeeping, nothing blocks.
	Publish(ctx context.Context, msg *bus.OutboundMessage) error
}
