package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "robotlab", cfg.Family)
	assert.Equal(t, []string{"5.1"}, cfg.Step.Names)
	assert.Equal(t, []string{"3.2"}, cfg.Trajectory.Names)
	assert.Equal(t, 1200*time.Millisecond, cfg.CommandLifetime())
	assert.Equal(t, 15, cfg.Step.Max)
	assert.Equal(t, math.Pi/30, cfg.Step.Scale)
	assert.Equal(t, time.Second, cfg.Step.Interval)
	assert.Equal(t, 5.0, cfg.Trajectory.Duration)
	assert.Equal(t, 100.0, cfg.Trajectory.Rate)
	assert.Equal(t, 2.5, cfg.Trajectory.Profile.SwitchTime)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"lifetime disabled", func(c *Config) { c.CommandLifetimeMs = 0 }, false},
		{"lifetime equals interval", func(c *Config) { c.CommandLifetimeMs = 1000 }, true},
		{"lifetime shorter than interval", func(c *Config) { c.CommandLifetimeMs = 250 }, true},
		{"negative lifetime", func(c *Config) { c.CommandLifetimeMs = -1 }, true},
		{"unknown backend", func(c *Config) { c.Backend = "udp" }, true},
		{"no family", func(c *Config) { c.Family = "" }, true},
		{"negative max", func(c *Config) { c.Step.Max = -1 }, true},
		{"zero scale", func(c *Config) { c.Step.Scale = 0 }, true},
		{"negative scale", func(c *Config) { c.Step.Scale = -0.1 }, false},
		{"zero interval", func(c *Config) { c.Step.Interval = 0 }, true},
		{"zero duration", func(c *Config) { c.Trajectory.Duration = 0 }, true},
		{"zero rate", func(c *Config) { c.Trajectory.Rate = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hebidemo.yaml")
	data := []byte(`
family: lab2
command_lifetime_ms: 1500
step:
  names: ["9.0", "9.2"]
  interval: 500ms
stsbus:
  calibration:
    "0.1":
      homing_offset: 12
      inverted: true
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "lab2", cfg.Family)
	assert.Equal(t, []string{"9.0", "9.2"}, cfg.Step.Names)
	assert.Equal(t, 500*time.Millisecond, cfg.Step.Interval)
	assert.Equal(t, 15, cfg.Step.Max, "default kept")
	assert.Equal(t, []string{"3.2"}, cfg.Trajectory.Names, "default kept")
	assert.Equal(t, 12, cfg.STSBus.Calibration["0.1"].HomingOffset)
	assert.True(t, cfg.STSBus.Calibration["0.1"].Inverted)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Backend = BackendSTSBus
	cfg.Trajectory.Profile.HoldPosition = 0.5
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadConfigFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFrom_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("step: [not, a, map"), 0644))
	_, err := LoadConfigFrom(path)
	assert.Error(t, err)
}
