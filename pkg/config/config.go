// Package config holds the demo settings. The defaults are the values the
// demos ship with and are meant to be edited per deployment.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/hebidemo/pkg/demo"
	"github.com/gwillem/hebidemo/pkg/hebi/stsbus"
)

const DefaultConfigFile = "hebidemo.yaml"

// Backend names.
const (
	BackendSim    = "sim"
	BackendSTSBus = "stsbus"
)

// Config holds the demo configuration
type Config struct {
	Family        string        `yaml:"family"`
	Backend       string        `yaml:"backend"`
	DiscoveryWait time.Duration `yaml:"discovery_wait"`
	BindTimeout   time.Duration `yaml:"bind_timeout"`

	// CommandLifetimeMs is the actuator watchdog window. It must exceed the
	// interval at which commands are sent; 0 disables the watchdog.
	CommandLifetimeMs int `yaml:"command_lifetime_ms"`

	Step       StepConfig       `yaml:"step"`
	Trajectory TrajectoryConfig `yaml:"trajectory"`
	Sim        SimConfig        `yaml:"sim"`
	STSBus     STSBusConfig     `yaml:"stsbus"`
}

// StepConfig holds configuration for the stepping demo
type StepConfig struct {
	Names    []string      `yaml:"names"`
	Max      int           `yaml:"max"`
	Scale    float64       `yaml:"scale"`
	Interval time.Duration `yaml:"interval"`
}

// TrajectoryConfig holds configuration for the trajectory demo
type TrajectoryConfig struct {
	Names    []string     `yaml:"names"`
	Duration float64      `yaml:"duration"`
	Rate     float64      `yaml:"rate"`
	Profile  demo.Profile `yaml:"profile"`
	Title    string       `yaml:"title"`
}

// SimConfig lists the simulated actuators
type SimConfig struct {
	Names       []string `yaml:"names"`
	VirtualTime bool     `yaml:"virtual_time"`
}

// STSBusConfig holds configuration for Feetech STS serial buses
type STSBusConfig struct {
	Ports       []string                      `yaml:"ports,omitempty"`
	BaudRate    int                           `yaml:"baud_rate"`
	ScanMaxID   int                           `yaml:"scan_max_id"`
	Calibration map[string]stsbus.Calibration `yaml:"calibration,omitempty"`
}

// Default returns the shipped configuration.
func Default() *Config {
	return &Config{
		Family:            "robotlab",
		Backend:           BackendSim,
		DiscoveryWait:     2 * time.Second,
		BindTimeout:       500 * time.Millisecond,
		CommandLifetimeMs: 1200,
		Step: StepConfig{
			Names:    []string{"5.1"},
			Max:      demo.DefaultStepMax,
			Scale:    demo.DefaultStepScale,
			Interval: demo.DefaultStepInterval,
		},
		Trajectory: TrajectoryConfig{
			Names:    []string{"3.2"},
			Duration: demo.DefaultDuration,
			Rate:     demo.DefaultRate,
			Profile:  demo.DefaultProfile(),
			Title:    "Robot Data - Change to label what this is",
		},
		Sim: SimConfig{
			Names:       []string{"5.1", "3.2", "9.0", "9.2"},
			VirtualTime: true,
		},
		STSBus: STSBusConfig{
			BaudRate:  stsbus.DefaultBaudRate,
			ScanMaxID: stsbus.DefaultScanMaxID,
		},
	}
}

// CommandLifetime returns the watchdog window as a duration.
func (c *Config) CommandLifetime() time.Duration {
	return time.Duration(c.CommandLifetimeMs) * time.Millisecond
}

// Validate checks the configuration for values the demos cannot run with.
func (c *Config) Validate() error {
	if c.Family == "" {
		return errors.New("family is required")
	}
	switch c.Backend {
	case BackendSim, BackendSTSBus:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.CommandLifetimeMs < 0 {
		return errors.Errorf("command_lifetime_ms must be >= 0, got %d", c.CommandLifetimeMs)
	}
	if c.CommandLifetimeMs > 0 && c.CommandLifetime() <= c.Step.Interval {
		return errors.Errorf("command lifetime %s must exceed the step interval %s", c.CommandLifetime(), c.Step.Interval)
	}
	if c.Step.Max < 0 {
		return errors.Errorf("step.max must be >= 0, got %d", c.Step.Max)
	}
	if c.Step.Scale == 0 {
		return errors.New("step.scale must be non-zero")
	}
	if c.Step.Interval <= 0 {
		return errors.New("step.interval must be > 0")
	}
	if c.Trajectory.Duration <= 0 {
		return errors.New("trajectory.duration must be > 0")
	}
	if c.Trajectory.Rate <= 0 {
		return errors.New("trajectory.rate must be > 0")
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Keys missing from
// the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Load returns the defaults overlaid with path when it exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfigFrom(path)
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return os.WriteFile(path, data, 0644)
}
