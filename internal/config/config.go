// Package config loads the controller's YAML configuration. Environment
// variables in the file are expanded before parsing, so paths like
// $HOME/.local/state work as expected.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/battery-control/internal/policy"
)

// Duration is a time.Duration that round-trips through YAML as a string
// like "5m" or "30s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the controller's configuration. There are no compiled-in
// site constants; everything host-specific lives here.
type Config struct {
	// StateFile is where the persisted record lives. The companion lock
	// file sits next to it.
	StateFile string `yaml:"state_file"`

	// PlugAddress is the smart plug's IP or host, optionally with port.
	PlugAddress string `yaml:"plug_address"`

	// HomeNetwork is the Wi-Fi name that marks the laptop as plugged
	// into the controlled outlet.
	HomeNetwork string `yaml:"home_network"`

	// MQTTBroker, when set, enables transition announcements
	// (e.g. tcp://broker:1883).
	MQTTBroker string `yaml:"mqtt_broker,omitempty"`

	// JournalFile, when set, enables the SQLite transition journal.
	JournalFile string `yaml:"journal_file,omitempty"`

	Thresholds Thresholds `yaml:"thresholds"`

	// OverrideInterval is how long a manual override lasts.
	OverrideInterval Duration `yaml:"override_interval"`

	// SleepPinInterval is how long sleep preparation pins the state.
	SleepPinInterval Duration `yaml:"sleep_pin_interval"`

	// LockTimeout bounds the wait for the state lock in interactive
	// operations.
	LockTimeout Duration `yaml:"lock_timeout"`

	// PollInterval is the cadence of watch mode.
	PollInterval Duration `yaml:"poll_interval"`
}

// Thresholds mirrors policy.Thresholds in YAML form.
type Thresholds struct {
	Charge      float64 `yaml:"charge"`
	Discharge   float64 `yaml:"discharge"`
	SleepCharge float64 `yaml:"sleep_charge"`
}

// Policy converts the configured band into policy form.
func (t Thresholds) Policy() policy.Thresholds {
	return policy.Thresholds{
		Charge:      t.Charge,
		Discharge:   t.Discharge,
		SleepCharge: t.SleepCharge,
	}
}

// DefaultPath returns the per-user config location, e.g.
// ~/.config/battery-control/config.yaml on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "battery-control", "config.yaml")
}

// Load reads and validates the config file at path. Environment
// variables in the file content are expanded first.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'battery-control init' to create one)", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StateFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.StateFile = filepath.Join(home, ".local", "state", "battery-control", "state.json")
		}
	}
	if c.Thresholds == (Thresholds{}) {
		def := policy.DefaultThresholds()
		c.Thresholds = Thresholds{
			Charge:      def.Charge,
			Discharge:   def.Discharge,
			SleepCharge: def.SleepCharge,
		}
	}
	if c.OverrideInterval == 0 {
		c.OverrideInterval = Duration(24 * time.Hour)
	}
	if c.SleepPinInterval == 0 {
		c.SleepPinInterval = Duration(2 * time.Minute)
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = Duration(30 * time.Second)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(5 * time.Minute)
	}
}

// Validate checks for fields without usable values.
func (c *Config) Validate() error {
	if c.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}
	if c.PlugAddress == "" {
		return fmt.Errorf("plug_address is required")
	}
	if c.HomeNetwork == "" {
		return fmt.Errorf("home_network is required")
	}

	t := c.Thresholds
	if t.Charge <= 0 || t.Charge > 100 || t.Discharge < 0 || t.Discharge > 100 || t.SleepCharge < 0 || t.SleepCharge > 100 {
		return fmt.Errorf("thresholds must be percentages between 0 and 100")
	}
	if t.Discharge >= t.Charge {
		return fmt.Errorf("thresholds: discharge (%v) must be below charge (%v)", t.Discharge, t.Charge)
	}

	for name, d := range map[string]Duration{
		"override_interval":  c.OverrideInterval,
		"sleep_pin_interval": c.SleepPinInterval,
		"lock_timeout":       c.LockTimeout,
		"poll_interval":      c.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// Init writes a starter config file with example values.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	example := Config{
		PlugAddress: "192.168.1.123",
		HomeNetwork: "HomeWifi",
	}
	example.applyDefaults()

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
