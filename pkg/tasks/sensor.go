package tasks

import (
	"time"

	"github.com/itohio/headtrack/pkg/bno08x"
	"github.com/itohio/headtrack/pkg/config"
	"github.com/itohio/headtrack/pkg/fusion"
	"github.com/itohio/headtrack/pkg/hatire"
	"github.com/itohio/headtrack/pkg/queue"
)

// Sensor is the inertial sensor as seen by the sensor task.
// *bno08x.Device satisfies it.
type Sensor interface {
	Init() error
	EnableReport(id bno08x.ReportID, interval time.Duration) error
	HandlePending(budget int) int
	Rotation() (fusion.Quat, error)
	LinearAccel() (fusion.Vec3, error)
}

var _ Sensor = (*bno08x.Device)(nil)

// SensorState is the lifecycle state of the sensor task.
type SensorState uint8

const (
	// Uninitialized is the state before the first Run.
	Uninitialized SensorState = iota
	// Initializing is held while the sensor is being configured.
	Initializing
	// Running is terminal. It is reached whether or not initialization
	// succeeded.
	Running
)

// String returns the lower-case state name.
func (s SensorState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	}
	return "unknown"
}

// SensorStats counts what the sensor task produced.
type SensorStats struct {
	State   SensorState
	Emitted uint32 // frames accepted by the queue
	Dropped uint32 // frames lost because the queue was full
	InitErr error  // first initialization failure, if any
}

// SensorTask polls the sensor and produces one telemetry frame per cadence
// interval. It runs on the second core and owns the sensor and the queue's
// write end.
type SensorTask struct {
	clock  Clock
	sensor Sensor
	out    *queue.Producer

	// Sleep performs the settle delay before initialization.
	Sleep func(time.Duration)
	// Logf receives initialization results.
	Logf Logf

	settle   time.Duration
	interval time.Duration
	budget   int
	cadence  uint64

	integrator  *fusion.Integrator
	scale       float32
	diagnostics bool

	lastEmit  uint64
	lastAccel uint64
	stats     SensorStats
	line      [queue.Capacity]byte
}

// NewSensorTask creates the sensor task. Both cadence gates start counting
// from the current tick.
func NewSensorTask(clock Clock, sensor Sensor, out *queue.Producer, sc config.SensorConfig, pc config.PipelineConfig) *SensorTask {
	now := clock.Ticks()
	s := &SensorTask{
		clock:       clock,
		sensor:      sensor,
		out:         out,
		Sleep:       time.Sleep,
		settle:      sc.SettleDelay,
		interval:    sc.ReportInterval,
		budget:      sc.MessageBudget,
		cadence:     sc.CadenceTicks,
		scale:       pc.PositionScale,
		diagnostics: pc.Diagnostics,
		lastEmit:    now,
		lastAccel:   now,
	}
	if s.budget <= 0 {
		s.budget = 1
	}
	if s.cadence == 0 {
		s.cadence = config.DefaultCadenceTicks
	}
	if pc.Integration {
		s.integrator = &fusion.Integrator{
			AccelGain:    pc.AccelGain,
			VelocityGain: pc.VelocityGain,
			VelocityLeak: pc.VelocityLeak,
			PositionLeak: pc.PositionLeak,
		}
	}
	return s
}

// Stats returns the task counters. It must be called from the task's own
// core or after the loop has stopped.
func (s *SensorTask) Stats() SensorStats {
	return s.stats
}

// Position returns the current position estimate in metres. It is zero
// when integration is disabled.
func (s *SensorTask) Position() fusion.Vec3 {
	if s.integrator == nil {
		return fusion.Vec3{}
	}
	return s.integrator.Position
}

// Run implements Task.
func (s *SensorTask) Run() {
	now := s.clock.Ticks()

	if s.stats.State == Uninitialized {
		s.initialize()
	}

	s.sensor.HandlePending(s.budget)

	if s.integrator != nil && Elapsed(now, s.lastAccel) >= s.cadence {
		s.integrate()
		s.lastAccel = now
	}

	if Elapsed(now, s.lastEmit) >= s.cadence {
		s.emit()
		s.lastEmit = now
	}
}

// initialize configures the sensor once. Failures are reported but never
// retried; the task runs either way and simply receives no data.
func (s *SensorTask) initialize() {
	s.stats.State = Initializing

	if s.Sleep != nil && s.settle > 0 {
		s.Sleep(s.settle)
	}

	s.report("Sensor Init", s.sensor.Init())
	s.report("Sensor Enable GRV Report", s.sensor.EnableReport(bno08x.GyroIntegratedRotation, s.interval))
	s.report("Sensor Enable Linear Accel Report", s.sensor.EnableReport(bno08x.LinearAcceleration, s.interval))

	s.stats.State = Running
}

func (s *SensorTask) report(title string, err error) {
	if err != nil && s.stats.InitErr == nil {
		s.stats.InitErr = err
	}
	if s.Logf != nil {
		if err != nil {
			s.Logf.printf("%s Failed: %v", title, err)
		} else {
			s.Logf.printf("%s Complete", title)
		}
	}

	if !s.diagnostics {
		return
	}
	// The line is truncated to fit the queue, keeping its newline.
	limit := len(s.line) - 1
	n := copy(s.line[:limit], title)
	if err != nil {
		n += copy(s.line[n:limit], " Failed: ")
		n += copy(s.line[n:limit], err.Error())
	} else {
		n += copy(s.line[n:limit], " Complete")
	}
	s.line[n] = '\n'
	_ = s.out.TryWrite(s.line[:n+1])
}

func (s *SensorTask) integrate() {
	accel, err := s.sensor.LinearAccel()
	if err != nil {
		return
	}
	q, err := s.sensor.Rotation()
	if err != nil {
		return
	}
	s.integrator.Update(q, accel)
}

func (s *SensorTask) emit() {
	f := hatire.NewFrame()

	if q, err := s.sensor.Rotation(); err == nil {
		f.Rotation = q.Euler().Degrees()
	}

	pos := s.Position()
	for i := range pos {
		f.Translation[i] = pos[i] * s.scale
	}

	b := f.Bytes()
	if err := s.out.TryWrite(b[:]); err != nil {
		s.stats.Dropped++
		return
	}
	s.stats.Emitted++
}
