package tasks

import (
	"github.com/itohio/headtrack/pkg/queue"
)

// Port is the serial link to the host. Write and Read must not block.
type Port interface {
	// DTR reports whether the host has opened the port.
	DTR() bool
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	// Poll services the link and reports whether data may be readable.
	Poll() bool
}

// EchoBufferSize bounds one echo exchange.
const EchoBufferSize = 64

// TransportStats counts transport activity.
type TransportStats struct {
	Forwarded   uint32 // telemetry bytes accepted by the port
	Echoed      uint32 // bytes echoed back to the host
	WriteErrors uint32
	ReadErrors  uint32
}

// TransportTask forwards telemetry to the host and answers the echo demo.
// It runs on the first core and owns the port and the queue's read end.
type TransportTask struct {
	port  Port
	in    *queue.Consumer
	buf   [EchoBufferSize]byte
	stats TransportStats
}

// NewTransportTask creates the transport task.
func NewTransportTask(port Port, in *queue.Consumer) *TransportTask {
	return &TransportTask{
		port: port,
		in:   in,
	}
}

// Stats returns the task counters. It must be called from the task's own
// core or after the loop has stopped.
func (t *TransportTask) Stats() TransportStats {
	return t.stats
}

// Run implements Task.
func (t *TransportTask) Run() {
	t.forward()
	t.echo()
}

// forward sends whatever telemetry is queued while the host is listening.
// Without DTR the queue is left alone and fills up until the producer
// starts dropping frames.
func (t *TransportTask) forward() {
	if !t.port.DTR() {
		return
	}

	g, ok := t.in.TryRead()
	if !ok {
		return
	}

	n, err := t.port.Write(g.Bytes())
	if err != nil {
		t.stats.WriteErrors++
	}
	if n > 0 {
		g.Release(n)
		t.stats.Forwarded += uint32(n)
	}
}

// echo upper-cases whatever the host sent and writes it back. Anything the
// port refuses to take is dropped.
func (t *TransportTask) echo() {
	if !t.port.Poll() {
		return
	}

	n, err := t.port.Read(t.buf[:])
	if err != nil {
		t.stats.ReadErrors++
		return
	}
	if n <= 0 {
		return
	}
	if n > len(t.buf) {
		n = len(t.buf)
	}

	reply := t.buf[:n]
	for i, b := range reply {
		if 'a' <= b && b <= 'z' {
			reply[i] = b - ('a' - 'A')
		}
	}

	for len(reply) > 0 {
		w, err := t.port.Write(reply)
		if err != nil {
			t.stats.WriteErrors++
			return
		}
		if w <= 0 {
			return
		}
		if w > len(reply) {
			w = len(reply)
		}
		t.stats.Echoed += uint32(w)
		reply = reply[w:]
	}
}
