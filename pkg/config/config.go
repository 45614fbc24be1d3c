package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the tracker configuration. The firmware is built with
// Default(); the emulator can also load it from a YAML file.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Emulator EmulatorConfig `yaml:"emulator"`
}

// DeviceConfig is the identity presented to the host over USB.
type DeviceConfig struct {
	VendorID     uint16 `yaml:"vendor_id"`
	ProductID    uint16 `yaml:"product_id"`
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
	SerialNumber string `yaml:"serial_number"`
}

// SensorConfig contains sensor task parameters.
type SensorConfig struct {
	Address        uint16        `yaml:"address"`         // 7-bit I2C address
	SettleDelay    time.Duration `yaml:"settle_delay"`    // Wait before the first init attempt
	ReportInterval time.Duration `yaml:"report_interval"` // Sensor-side report rate
	MessageBudget  int           `yaml:"message_budget"`  // Sensor packets handled per loop iteration
	CadenceTicks   uint64        `yaml:"cadence_ticks"`   // Clock ticks between frames
}

// PipelineConfig toggles the optional pipeline stages.
type PipelineConfig struct {
	// Integration enables position estimation from linear acceleration.
	// Translation fields are zero when it is off.
	Integration   bool    `yaml:"integration"`
	AccelGain     float32 `yaml:"accel_gain"`
	VelocityGain  float32 `yaml:"velocity_gain"`
	VelocityLeak  float32 `yaml:"velocity_leak"`
	PositionLeak  float32 `yaml:"position_leak"`
	PositionScale float32 `yaml:"position_scale"` // metres to frame units

	// Diagnostics writes sensor init results as text lines into the
	// telemetry stream.
	Diagnostics bool `yaml:"diagnostics"`
}

// EmulatorConfig contains settings for running the tracker on a PC.
type EmulatorConfig struct {
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	MotionPeriod time.Duration `yaml:"motion_period"` // Period of the simulated head sweep
	Amplitude    float32       `yaml:"amplitude"`     // Simulated yaw amplitude in degrees
	NoRotation   bool          `yaml:"no_rotation"`   // Simulate a sensor that never reports orientation
	FailInit     bool          `yaml:"fail_init"`     // Simulate a sensor that rejects configuration
	IgnoreDTR    bool          `yaml:"ignore_dtr"`    // Treat the host as always ready (ports without modem lines)
}

// DefaultCadenceTicks is the frame interval: 10 ms on a 1 MHz clock.
const DefaultCadenceTicks = 10000

// Default returns the configuration of the reference hardware.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			VendorID:     0x16C2,
			ProductID:    0x27DE,
			Manufacturer: "NELC",
			Product:      "KB2040-HEADTRACK",
			SerialNumber: "TEST",
		},
		Sensor: SensorConfig{
			Address:        0x4A,
			SettleDelay:    time.Second,
			ReportInterval: 10 * time.Millisecond,
			MessageBudget:  1,
			CadenceTicks:   DefaultCadenceTicks,
		},
		Pipeline: PipelineConfig{
			Integration:   false,
			AccelGain:     0.1,
			VelocityGain:  0.01,
			VelocityLeak:  1.05,
			PositionLeak:  1.00005,
			PositionScale: 100,
			Diagnostics:   false,
		},
		Emulator: EmulatorConfig{
			Port:         "/dev/ttyUSB0",
			BaudRate:     115200,
			ReadTimeout:  time.Millisecond,
			MotionPeriod: 4 * time.Second,
			Amplitude:    30,
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Sensor.Address > 0x7F {
		errs = append(errs, fmt.Errorf("sensor address 0x%X is not a 7-bit address", c.Sensor.Address))
	}
	if c.Sensor.CadenceTicks == 0 {
		errs = append(errs, errors.New("cadence_ticks must be positive"))
	}
	if c.Sensor.MessageBudget <= 0 {
		errs = append(errs, errors.New("message_budget must be positive"))
	}
	if c.Pipeline.VelocityLeak <= 0 || c.Pipeline.PositionLeak <= 0 {
		errs = append(errs, errors.New("leak factors must be positive"))
	}
	if c.Emulator.BaudRate < 0 {
		errs = append(errs, errors.New("baud_rate must not be negative"))
	}
	return errors.Join(errs...)
}

// ensureDefaults fills zero-valued fields from Default().
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.VendorID == 0 {
		c.Device.VendorID = def.Device.VendorID
	}
	if c.Device.ProductID == 0 {
		c.Device.ProductID = def.Device.ProductID
	}
	if c.Device.Manufacturer == "" {
		c.Device.Manufacturer = def.Device.Manufacturer
	}
	if c.Device.Product == "" {
		c.Device.Product = def.Device.Product
	}
	if c.Device.SerialNumber == "" {
		c.Device.SerialNumber = def.Device.SerialNumber
	}

	if c.Sensor.Address == 0 {
		c.Sensor.Address = def.Sensor.Address
	}
	if c.Sensor.ReportInterval == 0 {
		c.Sensor.ReportInterval = def.Sensor.ReportInterval
	}
	if c.Sensor.MessageBudget == 0 {
		c.Sensor.MessageBudget = def.Sensor.MessageBudget
	}
	if c.Sensor.CadenceTicks == 0 {
		c.Sensor.CadenceTicks = def.Sensor.CadenceTicks
	}

	if c.Pipeline.AccelGain == 0 {
		c.Pipeline.AccelGain = def.Pipeline.AccelGain
	}
	if c.Pipeline.VelocityGain == 0 {
		c.Pipeline.VelocityGain = def.Pipeline.VelocityGain
	}
	if c.Pipeline.VelocityLeak == 0 {
		c.Pipeline.VelocityLeak = def.Pipeline.VelocityLeak
	}
	if c.Pipeline.PositionLeak == 0 {
		c.Pipeline.PositionLeak = def.Pipeline.PositionLeak
	}
	if c.Pipeline.PositionScale == 0 {
		c.Pipeline.PositionScale = def.Pipeline.PositionScale
	}

	if c.Emulator.Port == "" {
		c.Emulator.Port = def.Emulator.Port
	}
	if c.Emulator.BaudRate == 0 {
		c.Emulator.BaudRate = def.Emulator.BaudRate
	}
	if c.Emulator.ReadTimeout == 0 {
		c.Emulator.ReadTimeout = def.Emulator.ReadTimeout
	}
	if c.Emulator.MotionPeriod == 0 {
		c.Emulator.MotionPeriod = def.Emulator.MotionPeriod
	}
}
