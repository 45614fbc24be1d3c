package sim

import (
	"testing"
	"time"

	"github.com/itohio/headtrack/pkg/bno08x"
	"github.com/itohio/headtrack/pkg/config"
	"github.com/itohio/headtrack/pkg/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ tasks.Sensor = (*Sensor)(nil)
var _ tasks.Clock = (*WallClock)(nil)

type manualTime struct {
	t time.Time
}

func (m *manualTime) now() time.Time { return m.t }

func newTestSensor(cfg config.EmulatorConfig) (*Sensor, *manualTime) {
	mt := &manualTime{t: time.Unix(1000, 0)}
	s := NewSensor(&cfg)
	s.now = mt.now
	return s, mt
}

func TestNewSensor_NilConfig(t *testing.T) {
	s := NewSensor(nil)
	assert.NotNil(t, s)
	assert.Equal(t, config.Default().Emulator, s.cfg)
}

func TestSensor_RequiresInit(t *testing.T) {
	s, _ := newTestSensor(config.Default().Emulator)

	assert.ErrorIs(t, s.EnableReport(bno08x.GyroIntegratedRotation, time.Millisecond), ErrNotInitialized)
	assert.Equal(t, 0, s.HandlePending(1))

	_, err := s.Rotation()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = s.LinearAccel()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSensor_FailInit(t *testing.T) {
	cfg := config.Default().Emulator
	cfg.FailInit = true
	s, _ := newTestSensor(cfg)

	assert.ErrorIs(t, s.Init(), ErrInitRejected)
	assert.Error(t, s.EnableReport(bno08x.LinearAcceleration, time.Millisecond))
	assert.Equal(t, 0, s.HandlePending(1))
}

func TestSensor_UnsupportedReport(t *testing.T) {
	s, _ := newTestSensor(config.Default().Emulator)
	require.NoError(t, s.Init())

	err := s.EnableReport(bno08x.Magnetometer, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x03")
}

func TestSensor_Motion(t *testing.T) {
	cfg := config.Default().Emulator
	cfg.MotionPeriod = 4 * time.Second
	cfg.Amplitude = 30
	s, mt := newTestSensor(cfg)

	require.NoError(t, s.Init())
	require.NoError(t, s.EnableReport(bno08x.GyroIntegratedRotation, 10*time.Millisecond))
	require.NoError(t, s.EnableReport(bno08x.LinearAcceleration, 10*time.Millisecond))

	tests := []struct {
		name    string
		at      time.Duration
		wantYaw float32
	}{
		{"start", 0, 0},
		{"quarter period", time.Second, 30},
		{"half period", 2 * time.Second, 0},
		{"three quarters", 3 * time.Second, -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt.t = s.start.Add(tt.at)
			assert.Equal(t, 1, s.HandlePending(8))

			q, err := s.Rotation()
			require.NoError(t, err)
			deg := q.Euler().Degrees()
			assert.InDelta(t, tt.wantYaw, deg[2], 0.01)

			_, err = s.LinearAccel()
			assert.NoError(t, err)
		})
	}
	assert.Equal(t, uint32(4), s.Samples())
}

func TestSensor_NoRotation(t *testing.T) {
	cfg := config.Default().Emulator
	cfg.NoRotation = true
	s, _ := newTestSensor(cfg)
	require.NoError(t, s.Init())
	require.NoError(t, s.EnableReport(bno08x.GyroIntegratedRotation, time.Millisecond))

	s.HandlePending(1)
	_, err := s.Rotation()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSensor_ZeroPeriodIsStill(t *testing.T) {
	cfg := config.Default().Emulator
	cfg.MotionPeriod = 0
	s, mt := newTestSensor(cfg)
	require.NoError(t, s.Init())
	require.NoError(t, s.EnableReport(bno08x.GyroIntegratedRotation, time.Millisecond))
	require.NoError(t, s.EnableReport(bno08x.LinearAcceleration, time.Millisecond))

	mt.t = mt.t.Add(time.Hour)
	s.HandlePending(1)
	a, err := s.LinearAccel()
	require.NoError(t, err)
	assert.Equal(t, float32(0), a[0])
}

func TestWallClock(t *testing.T) {
	mt := &manualTime{t: time.Unix(0, 0)}
	c := &WallClock{start: mt.t, now: mt.now}

	assert.Equal(t, uint64(0), c.Ticks())
	mt.t = mt.t.Add(10 * time.Millisecond)
	assert.Equal(t, uint64(10000), c.Ticks())
}
