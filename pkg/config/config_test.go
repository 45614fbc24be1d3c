package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, uint16(0x16C2), cfg.Device.VendorID)
	assert.Equal(t, uint16(0x27DE), cfg.Device.ProductID)
	assert.Equal(t, "NELC", cfg.Device.Manufacturer)
	assert.Equal(t, "KB2040-HEADTRACK", cfg.Device.Product)
	assert.Equal(t, "TEST", cfg.Device.SerialNumber)
	assert.Equal(t, uint16(0x4A), cfg.Sensor.Address)
	assert.Equal(t, time.Second, cfg.Sensor.SettleDelay)
	assert.Equal(t, 10*time.Millisecond, cfg.Sensor.ReportInterval)
	assert.Equal(t, 1, cfg.Sensor.MessageBudget)
	assert.Equal(t, uint64(10000), cfg.Sensor.CadenceTicks)
	assert.False(t, cfg.Pipeline.Integration)
	assert.False(t, cfg.Pipeline.Diagnostics)
	assert.Equal(t, float32(100), cfg.Pipeline.PositionScale)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"10-bit address", func(c *Config) { c.Sensor.Address = 0x200 }, "7-bit"},
		{"zero cadence", func(c *Config) { c.Sensor.CadenceTicks = 0 }, "cadence_ticks"},
		{"zero budget", func(c *Config) { c.Sensor.MessageBudget = 0 }, "message_budget"},
		{"negative leak", func(c *Config) { c.Pipeline.VelocityLeak = -1 }, "leak"},
		{"negative baud", func(c *Config) { c.Emulator.BaudRate = -9600 }, "baud_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Sensor.CadenceTicks = 0
	cfg.Sensor.MessageBudget = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cadence_ticks")
	assert.Contains(t, err.Error(), "message_budget")
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
device:
  product: "BENCH-TRACKER"
  serial_number: "0001"

sensor:
  address: 75
  settle_delay: 500ms
  report_interval: 5ms
  message_budget: 4
  cadence_ticks: 20000

pipeline:
  integration: true
  velocity_leak: 1.1
  diagnostics: true

emulator:
  port: "/dev/ttyACM1"
  baud_rate: 921600
  motion_period: 2s
  amplitude: 45
  no_rotation: true
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "BENCH-TRACKER", cfg.Device.Product)
	assert.Equal(t, "0001", cfg.Device.SerialNumber)
	assert.Equal(t, "NELC", cfg.Device.Manufacturer) // default
	assert.Equal(t, uint16(75), cfg.Sensor.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.Sensor.SettleDelay)
	assert.Equal(t, 5*time.Millisecond, cfg.Sensor.ReportInterval)
	assert.Equal(t, 4, cfg.Sensor.MessageBudget)
	assert.Equal(t, uint64(20000), cfg.Sensor.CadenceTicks)
	assert.True(t, cfg.Pipeline.Integration)
	assert.Equal(t, float32(1.1), cfg.Pipeline.VelocityLeak)
	assert.Equal(t, float32(1.00005), cfg.Pipeline.PositionLeak) // default
	assert.True(t, cfg.Pipeline.Diagnostics)
	assert.Equal(t, "/dev/ttyACM1", cfg.Emulator.Port)
	assert.Equal(t, 921600, cfg.Emulator.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.Emulator.MotionPeriod)
	assert.Equal(t, float32(45), cfg.Emulator.Amplitude)
	assert.True(t, cfg.Emulator.NoRotation)
}

func TestLoad_ExplicitZerosUseDefaults(t *testing.T) {
	name := writeTemp(t, `
sensor:
  cadence_ticks: 0
  message_budget: 0
emulator:
  port: ""
`)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultCadenceTicks), cfg.Sensor.CadenceTicks)
	assert.Equal(t, 1, cfg.Sensor.MessageBudget)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Emulator.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidValues(t *testing.T) {
	name := writeTemp(t, `
sensor:
  address: 300
`)

	cfg, err := Load(name)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "7-bit")
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Emulator.Port = "/dev/ttyS5"
	cfg.Pipeline.Integration = true
	cfg.Sensor.SettleDelay = 250 * time.Millisecond

	name := writeTemp(t, "")
	require.NoError(t, cfg.Save(name))

	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
