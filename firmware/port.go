//go:build tinygo

package main

import (
	"machine"
)

// dtrReader is implemented by the USB CDC serial port.
type dtrReader interface {
	DTR() bool
}

// cdcPort adapts the USB CDC serial port to tasks.Port.
type cdcPort struct {
	serial machine.Serialer
	dtr    dtrReader
}

func newCDCPort(s machine.Serialer) *cdcPort {
	p := &cdcPort{serial: s}
	if d, ok := s.(dtrReader); ok {
		p.dtr = d
	}
	return p
}

// DTR reports whether the host opened the port. Serial ports without the
// line state are treated as always open.
func (p *cdcPort) DTR() bool {
	if p.dtr == nil {
		return true
	}
	return p.dtr.DTR()
}

func (p *cdcPort) Write(b []byte) (int, error) {
	return p.serial.Write(b)
}

func (p *cdcPort) Poll() bool {
	return p.serial.Buffered() > 0
}

// Read drains buffered bytes without blocking.
func (p *cdcPort) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) && p.serial.Buffered() > 0 {
		c, err := p.serial.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}
