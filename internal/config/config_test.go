package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
state_file: /var/lib/plug/state.json
plug_address: 192.168.1.50
home_network: TestNet
mqtt_broker: tcp://broker:1883
journal_file: /var/lib/plug/journal.db
thresholds:
  charge: 80
  discharge: 40
  sleep_charge: 25
override_interval: 12h
sleep_pin_interval: 5m
lock_timeout: 10s
poll_interval: 1m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StateFile != "/var/lib/plug/state.json" {
		t.Errorf("state_file = %s", cfg.StateFile)
	}
	if cfg.PlugAddress != "192.168.1.50" {
		t.Errorf("plug_address = %s", cfg.PlugAddress)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("mqtt_broker = %s", cfg.MQTTBroker)
	}
	if cfg.Thresholds.Charge != 80 || cfg.Thresholds.Discharge != 40 || cfg.Thresholds.SleepCharge != 25 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if time.Duration(cfg.OverrideInterval) != 12*time.Hour {
		t.Errorf("override_interval = %v", cfg.OverrideInterval)
	}
	if time.Duration(cfg.SleepPinInterval) != 5*time.Minute {
		t.Errorf("sleep_pin_interval = %v", cfg.SleepPinInterval)
	}
	if time.Duration(cfg.LockTimeout) != 10*time.Second {
		t.Errorf("lock_timeout = %v", cfg.LockTimeout)
	}
	if time.Duration(cfg.PollInterval) != time.Minute {
		t.Errorf("poll_interval = %v", cfg.PollInterval)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
state_file: /tmp/state.json
plug_address: 192.168.1.50
home_network: TestNet
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Thresholds.Charge != 75 || cfg.Thresholds.Discharge != 50 || cfg.Thresholds.SleepCharge != 30 {
		t.Errorf("default thresholds = %+v", cfg.Thresholds)
	}
	if time.Duration(cfg.OverrideInterval) != 24*time.Hour {
		t.Errorf("default override_interval = %v", cfg.OverrideInterval)
	}
	if time.Duration(cfg.SleepPinInterval) != 2*time.Minute {
		t.Errorf("default sleep_pin_interval = %v", cfg.SleepPinInterval)
	}
	if time.Duration(cfg.LockTimeout) != 30*time.Second {
		t.Errorf("default lock_timeout = %v", cfg.LockTimeout)
	}
	if time.Duration(cfg.PollInterval) != 5*time.Minute {
		t.Errorf("default poll_interval = %v", cfg.PollInterval)
	}
	if cfg.MQTTBroker != "" || cfg.JournalFile != "" {
		t.Error("optional integrations should stay off by default")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("PLUG_STATE_DIR", "/custom/state")
	path := writeConfig(t, `
state_file: $PLUG_STATE_DIR/state.json
plug_address: 192.168.1.50
home_network: TestNet
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StateFile != "/custom/state/state.json" {
		t.Errorf("env not expanded: %s", cfg.StateFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "init") {
		t.Errorf("error should point at the init command: %v", err)
	}
}

func TestLoadRejectsInvertedBand(t *testing.T) {
	path := writeConfig(t, `
state_file: /tmp/state.json
plug_address: 192.168.1.50
home_network: TestNet
thresholds:
  charge: 50
  discharge: 75
  sleep_charge: 30
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error when discharge threshold is above charge threshold")
	}
}

func TestLoadRequiresPlugAddress(t *testing.T) {
	path := writeConfig(t, `
state_file: /tmp/state.json
home_network: TestNet
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for missing plug_address")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
state_file: /tmp/state.json
plug_address: 192.168.1.50
home_network: TestNet
lock_timeout: whenever
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	if err := Init(path, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if cfg.PlugAddress == "" || cfg.HomeNetwork == "" {
		t.Error("generated config missing example values")
	}

	if err := Init(path, false); err == nil {
		t.Error("Init should refuse to overwrite without force")
	}
	if err := Init(path, true); err != nil {
		t.Errorf("Init with force: %v", err)
	}
}
