// Package config provides configuration types and loading for fleetdeck.
package config

import (
	"time"

	"github.com/FleetDeck/FleetDeck/internal/transport"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Transport, Graph, Dispatcher, Journal, Console.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Transport  TransportConfig  `json:"transport"`
	Graph      GraphConfig      `json:"graph"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Journal    JournalConfig    `json:"journal"`
	Console    ConsoleConfig    `json:"console"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// TransportConfig selects and configures the fleet message transport.
type TransportConfig struct {
	// Mode is "kafka" or "loopback".
	Mode          string           `json:"mode" envconfig:"MODE"`
	Brokers       string           `json:"brokers" envconfig:"BROKERS"`
	ConsumerGroup string           `json:"consumerGroup" envconfig:"CONSUMER_GROUP"`
	Topics        transport.Topics `json:"topics"`
}

// GraphConfig locates the per-fleet navigation graph resources.
type GraphConfig struct {
	Dir string `json:"dir" envconfig:"DIR"`
}

// DispatcherConfig groups dispatch timing and retry settings.
type DispatcherConfig struct {
	TickInterval time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	MaxAttempts  int           `json:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
	// OrphanPolicy is "dispatch" or "drop": what to do with a due entry
	// whose fleet has never reported state.
	OrphanPolicy string `json:"orphanPolicy" envconfig:"ORPHAN_POLICY"`
}

// JournalConfig configures the sqlite dispatch journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Path    string `json:"path" envconfig:"PATH"`
}

// ConsoleConfig groups presentation-facing settings.
type ConsoleConfig struct {
	RefreshInterval time.Duration `json:"refreshInterval" envconfig:"REFRESH_INTERVAL"`
	WorkcellsOnly   bool          `json:"workcellsOnly" envconfig:"WORKCELLS_ONLY"`
	SummaryLogSize  int           `json:"summaryLogSize" envconfig:"SUMMARY_LOG_SIZE"`
}
