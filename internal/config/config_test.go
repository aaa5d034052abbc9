package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Transport.Mode != "kafka" {
		t.Errorf("default transport mode: %q", cfg.Transport.Mode)
	}
	if cfg.Dispatcher.TickInterval != time.Second {
		t.Errorf("default tick interval: %v", cfg.Dispatcher.TickInterval)
	}
	if cfg.Dispatcher.MaxAttempts != 3 {
		t.Errorf("default max attempts: %d", cfg.Dispatcher.MaxAttempts)
	}
	if cfg.Transport.Topics.FleetStates != "fleet_states" {
		t.Errorf("default fleet state topic: %q", cfg.Transport.Topics.FleetStates)
	}
}

func TestConfigPathExplicitOverride(t *testing.T) {
	t.Setenv("FLEETDECK_CONFIG", "/tmp/custom/fleetdeck.json")

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if path != "/tmp/custom/fleetdeck.json" {
		t.Errorf("expected explicit path honored, got %q", path)
	}
}

func TestConfigPathHomeOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FLEETDECK_CONFIG", "")
	t.Setenv("FLEETDECK_HOME", home)

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if want := filepath.Join(home, ConfigDir, ConfigFile); path != want {
		t.Errorf("expected %q, got %q", want, path)
	}
}

func TestLoadFileThenEnvPriority(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FLEETDECK_HOME", home)
	t.Setenv("FLEETDECK_CONFIG", "")
	t.Setenv("FLEETDECK_ENV_FILE", filepath.Join(home, "no-such-env"))

	fileCfg := DefaultConfig()
	fileCfg.Transport.Brokers = "file-broker:9092"
	fileCfg.Dispatcher.MaxAttempts = 5
	data, err := json.Marshal(fileCfg)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), data, 0o644); err != nil {
		t.Fatal(err)
	}

	// Environment outranks the file.
	t.Setenv("FLEETDECK_TRANSPORT_BROKERS", "env-broker:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport.Brokers != "env-broker:9092" {
		t.Errorf("env should outrank file: %q", cfg.Transport.Brokers)
	}
	if cfg.Dispatcher.MaxAttempts != 5 {
		t.Errorf("file should outrank defaults: %d", cfg.Dispatcher.MaxAttempts)
	}
}

func TestLoadMalformedFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FLEETDECK_HOME", home)
	t.Setenv("FLEETDECK_CONFIG", "")
	t.Setenv("FLEETDECK_ENV_FILE", filepath.Join(home, "no-such-env"))

	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLEETDECK_TRANSPORT_BROKERS", "env-broker:9092")

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected a parse error for a malformed config file")
	}
	if cfg == nil {
		t.Fatal("a broken file must still yield a usable config")
	}
	if cfg.Dispatcher.MaxAttempts != 3 || cfg.Transport.Mode != "kafka" {
		t.Errorf("defaults not in effect: %+v", cfg)
	}
	// Environment overrides still apply on the fallback path.
	if cfg.Transport.Brokers != "env-broker:9092" {
		t.Errorf("env override lost on fallback: %q", cfg.Transport.Brokers)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FLEETDECK_HOME", home)
	t.Setenv("FLEETDECK_CONFIG", "")

	cfg := DefaultConfig()
	cfg.Graph.Dir = "/opt/graphs"
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, ConfigDir, ConfigFile))
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse saved config: %v", err)
	}
	if got.Graph.Dir != "/opt/graphs" {
		t.Errorf("saved value lost: %q", got.Graph.Dir)
	}
}
