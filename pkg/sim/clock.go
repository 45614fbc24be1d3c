package sim

import "time"

// WallClock counts microseconds since it was created, like the RP2040
// timer the firmware runs on.
type WallClock struct {
	start time.Time
	now   func() time.Time
}

// NewWallClock returns a clock starting at zero.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now(), now: time.Now}
}

// Ticks implements tasks.Clock.
func (c *WallClock) Ticks() uint64 {
	return uint64(c.now().Sub(c.start) / time.Microsecond)
}
