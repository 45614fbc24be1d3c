// Package tasks contains the two cooperative run-loops of the tracker and
// the launcher that puts one on each core.
//
// A task is polled forever by Loop. Run must never block: work that cannot
// be done now is retried on the next call. The only state shared by the two
// loops is the byte queue between them.
package tasks

import (
	"context"
	"errors"
	"sync/atomic"
)

// Task is a unit of cooperative work polled by Loop.
type Task interface {
	Run()
}

// Clock is a free-running monotonic tick counter.
type Clock interface {
	Ticks() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

// Ticks implements Clock.
func (f ClockFunc) Ticks() uint64 {
	return f()
}

// Elapsed returns now-since, correct across counter wraparound.
func Elapsed(now, since uint64) uint64 {
	return now - since
}

// Logf is an optional printf-style logger. Nil means silent.
type Logf func(format string, args ...any)

func (l Logf) printf(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}

// ErrLaunched is returned by Launcher.Launch after the first call.
var ErrLaunched = errors.New("cores already launched")

// Loop polls t until ctx is done.
func Loop[T Task](ctx context.Context, t T) {
	done := ctx.Done()
	if done == nil {
		for {
			t.Run()
		}
	}
	for {
		select {
		case <-done:
			return
		default:
			t.Run()
		}
	}
}

// Launcher starts the two run-loops exactly once.
type Launcher struct {
	launched atomic.Bool
}

// Launch starts second on a new goroutine and then runs first on the
// calling goroutine until ctx is done. With TinyGo's cores scheduler the
// new goroutine runs on the second core, on a stack sized by -stack-size.
// When Launch returns, second has stopped as well.
func (l *Launcher) Launch(ctx context.Context, second, first Task) error {
	if !l.launched.CompareAndSwap(false, true) {
		return ErrLaunched
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		Loop(ctx, second)
	}()

	Loop(ctx, first)
	<-stopped
	return nil
}
