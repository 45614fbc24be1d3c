package tasks

import (
	"errors"
	"time"

	"github.com/itohio/headtrack/pkg/bno08x"
	"github.com/itohio/headtrack/pkg/fusion"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Ticks() uint64 { return c.now }

func (c *fakeClock) advance(d uint64) { c.now += d }

var errNoData = errors.New("no data")

type fakeSensor struct {
	initErr   error
	enableErr error

	initCalls int
	enabled   []bno08x.ReportID
	intervals []time.Duration
	handled   int
	budgets   []int

	rot      fusion.Quat
	hasRot   bool
	accel    fusion.Vec3
	hasAccel bool
}

func (s *fakeSensor) Init() error {
	s.initCalls++
	return s.initErr
}

func (s *fakeSensor) EnableReport(id bno08x.ReportID, interval time.Duration) error {
	s.enabled = append(s.enabled, id)
	s.intervals = append(s.intervals, interval)
	return s.enableErr
}

func (s *fakeSensor) HandlePending(budget int) int {
	s.handled++
	s.budgets = append(s.budgets, budget)
	return 0
}

func (s *fakeSensor) Rotation() (fusion.Quat, error) {
	if !s.hasRot {
		return fusion.Quat{}, errNoData
	}
	return s.rot, nil
}

func (s *fakeSensor) LinearAccel() (fusion.Vec3, error) {
	if !s.hasAccel {
		return fusion.Vec3{}, errNoData
	}
	return s.accel, nil
}

// fakePort records writes. accept limits how many bytes a single Write
// takes (0 = everything).
type fakePort struct {
	dtr      bool
	accept   int
	writeErr error
	// failAfter makes writes fail once this many calls succeeded (0 = never).
	failAfter int

	input   []byte
	readErr error
	polled  bool

	writes  [][]byte
	written []byte
	calls   int
}

func (p *fakePort) DTR() bool { return p.dtr }

func (p *fakePort) Write(b []byte) (int, error) {
	p.calls++
	if p.writeErr != nil && (p.failAfter == 0 || p.calls > p.failAfter) {
		return 0, p.writeErr
	}
	n := len(b)
	if p.accept > 0 && n > p.accept {
		n = p.accept
	}
	p.writes = append(p.writes, append([]byte(nil), b[:n]...))
	p.written = append(p.written, b[:n]...)
	return n, nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(b, p.input)
	p.input = p.input[n:]
	return n, nil
}

func (p *fakePort) Poll() bool {
	p.polled = true
	return len(p.input) > 0 || p.readErr != nil
}
