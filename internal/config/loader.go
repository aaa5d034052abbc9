package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/FleetDeck/FleetDeck/internal/transport"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".fleetdeck"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("FLEETDECK_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("FLEETDECK_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ConfigDir)
	return &Config{
		Paths: PathsConfig{
			DataDir: dataDir,
		},
		Transport: TransportConfig{
			Mode:          "kafka",
			Brokers:       "localhost:9092",
			ConsumerGroup: "fleetdeck",
			Topics:        transport.DefaultTopics(),
		},
		Graph: GraphConfig{
			Dir: filepath.Join(dataDir, "graphs"),
		},
		Dispatcher: DispatcherConfig{
			TickInterval: time.Second,
			MaxAttempts:  3,
			OrphanPolicy: "dispatch",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "journal.db"),
		},
		Console: ConsoleConfig{
			RefreshInterval: time.Second,
			SummaryLogSize:  200,
		},
	}
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults. The returned Config is always
// usable: a missing file yields defaults, and a malformed or unreadable file
// yields defaults plus env overrides alongside the error, so callers can warn
// and keep running.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/fleetdeck/env (and fallbacks)
	// first, so they participate in the overrides below.
	LoadEnvFileCandidates()

	var loadErr error
	if path, err := ConfigPath(); err != nil {
		loadErr = err
	} else if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			// Discard any partially unmarshaled fields.
			*cfg = *DefaultConfig()
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		loadErr = err
	}
	// If the file doesn't exist, continue with defaults.

	envconfig.Process("FLEETDECK_PATHS", &cfg.Paths)
	envconfig.Process("FLEETDECK_TRANSPORT", &cfg.Transport)
	envconfig.Process("FLEETDECK_GRAPH", &cfg.Graph)
	envconfig.Process("FLEETDECK_DISPATCHER", &cfg.Dispatcher)
	envconfig.Process("FLEETDECK_JOURNAL", &cfg.Journal)
	envconfig.Process("FLEETDECK_CONSOLE", &cfg.Console)

	return cfg, loadErr
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
