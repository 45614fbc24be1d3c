// Package hatire defines the binary telemetry frame streamed to the PC.
//
// The layout is the one expected by Hatire-style head-tracking receivers:
//
//	offset size field
//	0      2    begin marker 0xAAAA
//	2      2    code (always 0)
//	4      12   rotation roll, pitch, yaw (float32, degrees)
//	16     12   translation x, y, z (float32, centimetres)
//	28     2    end marker 0x5555
//
// All fields are little-endian with no padding.
package hatire

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// Size is the encoded frame length in bytes.
	Size = 30

	// Begin marks the start of a frame.
	Begin uint16 = 0xAAAA
	// End marks the end of a frame.
	End uint16 = 0x5555
)

var (
	// ErrShortBuffer is returned when a buffer cannot hold a frame.
	ErrShortBuffer = errors.New("buffer shorter than frame")
	// ErrBadSentinel is returned when a frame's markers do not match.
	ErrBadSentinel = errors.New("frame sentinel mismatch")
)

// Frame is one telemetry record.
type Frame struct {
	Begin       uint16
	Code        uint16
	Rotation    [3]float32 // degrees
	Translation [3]float32 // centimetres
	End         uint16
}

// NewFrame returns a zeroed frame with both markers set.
func NewFrame() Frame {
	return Frame{Begin: Begin, End: End}
}

// Bytes encodes the frame into a fixed-size array.
func (f Frame) Bytes() [Size]byte {
	var b [Size]byte
	f.put(b[:])
	return b
}

// MarshalTo writes the encoded frame into dst and returns the number of
// bytes written.
func (f Frame) MarshalTo(dst []byte) (int, error) {
	if len(dst) < Size {
		return 0, ErrShortBuffer
	}
	f.put(dst)
	return Size, nil
}

func (f Frame) put(b []byte) {
	le := binary.LittleEndian
	le.PutUint16(b[0:], f.Begin)
	le.PutUint16(b[2:], f.Code)
	for i, v := range f.Rotation {
		le.PutUint32(b[4+4*i:], math.Float32bits(v))
	}
	for i, v := range f.Translation {
		le.PutUint32(b[16+4*i:], math.Float32bits(v))
	}
	le.PutUint16(b[28:], f.End)
}

// Decode parses a frame from the first Size bytes of src.
func Decode(src []byte) (Frame, error) {
	if len(src) < Size {
		return Frame{}, ErrShortBuffer
	}

	le := binary.LittleEndian
	f := Frame{
		Begin: le.Uint16(src[0:]),
		Code:  le.Uint16(src[2:]),
		End:   le.Uint16(src[28:]),
	}
	for i := range f.Rotation {
		f.Rotation[i] = math.Float32frombits(le.Uint32(src[4+4*i:]))
	}
	for i := range f.Translation {
		f.Translation[i] = math.Float32frombits(le.Uint32(src[16+4*i:]))
	}

	if f.Begin != Begin || f.End != End {
		return f, ErrBadSentinel
	}
	return f, nil
}

// Sync returns the offset of the first complete frame in src, judged by its
// begin and end markers, or -1 if there is none. Receivers use it to
// resynchronise after joining a stream mid-frame or after corruption.
func Sync(src []byte) int {
	le := binary.LittleEndian
	for i := 0; i+Size <= len(src); i++ {
		if le.Uint16(src[i:]) == Begin && le.Uint16(src[i+Size-2:]) == End {
			return i
		}
	}
	return -1
}
