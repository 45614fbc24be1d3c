// Package hostlink connects the transport task to a real serial port so the
// tracker can be emulated on a PC and read by an unmodified host
// application through a null-modem or virtual port pair.
package hostlink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is used when none is configured.
	DefaultBaudRate = 115200
	// DefaultReadTimeout keeps reads from stalling the run-loop.
	DefaultReadTimeout = time.Millisecond

	pollBufferSize = 64
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("serial link closed")

// conn is the part of serial.Port the link uses.
type conn interface {
	io.ReadWriteCloser
	GetModemStatusBits() (*serial.ModemStatusBits, error)
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial implements tasks.Port over a serial port. The host's DTR arrives
// as our DSR through a null-modem connection.
type Serial struct {
	name string

	// IgnoreDTR reports the host as always ready, for ports that do not
	// carry modem lines.
	IgnoreDTR bool

	mu      sync.Mutex
	conn    conn
	pending [pollBufferSize]byte
	pendN   int
	closed  bool
}

// Open opens the named port.
func Open(name string, baudRate int, readTimeout time.Duration) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}

	return newSerial(name, port), nil
}

func newSerial(name string, c conn) *Serial {
	return &Serial{name: name, conn: c}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Name returns the port name.
func (s *Serial) Name() string {
	return s.name
}

// DTR reports whether the host has the port open.
func (s *Serial) DTR() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.IgnoreDTR {
		return true
	}
	bits, err := s.conn.GetModemStatusBits()
	if err != nil || bits == nil {
		return false
	}
	return bits.DSR
}

// Write writes p to the port.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	return s.conn.Write(p)
}

// Poll reads whatever the host sent within the read timeout and keeps it
// for the next Read. It reports whether data is waiting. With nothing
// pending it blocks for up to the read timeout, so the configured timeout
// bounds each transport iteration on the desktop.
func (s *Serial) Poll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.pendN > 0 {
		return true
	}
	n, err := s.conn.Read(s.pending[:])
	if err != nil || n <= 0 {
		return false
	}
	s.pendN = n
	return true
}

// Read returns bytes collected by Poll. It returns 0 and no error when
// nothing is waiting.
func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	n := copy(p, s.pending[:s.pendN])
	copy(s.pending[:], s.pending[n:s.pendN])
	s.pendN -= n
	return n, nil
}

// Close closes the port. It is safe to call more than once.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.name, err)
	}
	return nil
}
