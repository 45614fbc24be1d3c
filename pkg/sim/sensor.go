// Package sim provides stand-ins for the tracker hardware so the run-loops
// can execute on a PC.
package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/itohio/headtrack/pkg/bno08x"
	"github.com/itohio/headtrack/pkg/config"
	"github.com/itohio/headtrack/pkg/fusion"
)

var (
	// ErrInitRejected is returned by Init when the simulated sensor is
	// configured to refuse initialization.
	ErrInitRejected = errors.New("simulated sensor rejected init")
	// ErrNotInitialized is returned when reports are enabled before Init.
	ErrNotInitialized = errors.New("simulated sensor not initialized")
	// ErrNoData is returned when a report has not been produced yet.
	ErrNoData = errors.New("no simulated report")
)

// swayAmplitude is the simulated side-to-side head sway in metres.
const swayAmplitude = 0.02

// Sensor simulates a head slowly looking left and right while nodding a
// little. It satisfies tasks.Sensor.
type Sensor struct {
	cfg config.EmulatorConfig
	now func() time.Time

	start       time.Time
	initialized bool
	rotEnabled  bool
	accEnabled  bool

	rot      fusion.Quat
	hasRot   bool
	accel    fusion.Vec3
	hasAccel bool
	samples  uint32
}

// NewSensor creates a simulated sensor. A nil cfg uses emulator defaults.
func NewSensor(cfg *config.EmulatorConfig) *Sensor {
	if cfg == nil {
		cfg = &config.Default().Emulator
	}
	return &Sensor{
		cfg: *cfg,
		now: time.Now,
	}
}

// Init starts the simulated motion.
func (s *Sensor) Init() error {
	if s.cfg.FailInit {
		return ErrInitRejected
	}
	s.initialized = true
	s.start = s.now()
	return nil
}

// EnableReport turns on one of the supported reports.
func (s *Sensor) EnableReport(id bno08x.ReportID, interval time.Duration) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	switch id {
	case bno08x.GyroIntegratedRotation, bno08x.RotationVector, bno08x.GameRotationVector:
		s.rotEnabled = true
	case bno08x.LinearAcceleration:
		s.accEnabled = true
	default:
		return fmt.Errorf("report 0x%02X not simulated", uint8(id))
	}
	return nil
}

// HandlePending produces one sample of every enabled report.
func (s *Sensor) HandlePending(budget int) int {
	if budget <= 0 || !s.initialized {
		return 0
	}

	var w, phase float64
	if s.cfg.MotionPeriod > 0 {
		w = 2 * math.Pi / s.cfg.MotionPeriod.Seconds()
		phase = w * s.now().Sub(s.start).Seconds()
	}

	if s.rotEnabled && !s.cfg.NoRotation {
		amp := float64(s.cfg.Amplitude) * math.Pi / 180
		yaw := amp * math.Sin(phase)
		pitch := amp / 3 * math.Sin(2*phase)
		s.rot = fusion.FromEuler(0, float32(pitch), float32(yaw))
		s.hasRot = true
	}
	if s.accEnabled {
		s.accel = fusion.Vec3{float32(-swayAmplitude * w * w * math.Sin(phase)), 0, 0}
		s.hasAccel = true
	}

	s.samples++
	return 1
}

// Rotation returns the latest simulated orientation.
func (s *Sensor) Rotation() (fusion.Quat, error) {
	if !s.hasRot {
		return fusion.Quat{}, ErrNoData
	}
	return s.rot, nil
}

// LinearAccel returns the latest simulated linear acceleration.
func (s *Sensor) LinearAccel() (fusion.Vec3, error) {
	if !s.hasAccel {
		return fusion.Vec3{}, ErrNoData
	}
	return s.accel, nil
}

// Samples returns how many simulated samples were produced.
func (s *Sensor) Samples() uint32 {
	return s.samples
}
