// Package bno08x is a small polling driver for the BNO080/BNO085 family of
// inertial sensors speaking SHTP over I2C.
//
// Only what a head tracker needs is implemented: reset, product-ID check,
// enabling reports and decoding rotation vectors and linear acceleration.
package bno08x

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/headtrack/pkg/fusion"
)

// Address is the default 7-bit I2C address.
const Address = 0x4A

// Bus is an I2C bus. machine.I2C from TinyGo satisfies it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// SHTP channels.
const (
	chanCommand    = 0
	chanExecutable = 1
	chanControl    = 2
	chanReports    = 3
	chanWake       = 4
	chanGyroRV     = 5
)

// ReportID identifies a sensor report.
type ReportID uint8

const (
	Accelerometer          ReportID = 0x01
	Gyroscope              ReportID = 0x02
	Magnetometer           ReportID = 0x03
	LinearAcceleration     ReportID = 0x04
	RotationVector         ReportID = 0x05
	Gravity                ReportID = 0x06
	GameRotationVector     ReportID = 0x08
	GyroIntegratedRotation ReportID = 0x2A
)

// Control and report codes.
const (
	cmdProductIDRequest  = 0xF9
	cmdProductIDResponse = 0xF8
	cmdSetFeature        = 0xFD
	repBaseTimestamp     = 0xFB
	repTimestampRebase   = 0xFA
	execReset            = 0x01
)

// Report lengths on the input channel, including the report ID byte.
var reportLen = map[uint8]int{
	repBaseTimestamp:          5,
	repTimestampRebase:        5,
	uint8(Accelerometer):      10,
	uint8(Gyroscope):          10,
	uint8(Magnetometer):       10,
	uint8(LinearAcceleration): 10,
	uint8(RotationVector):     14,
	uint8(Gravity):            10,
	uint8(GameRotationVector): 12,
}

const (
	headerSize = 4
	// Packets longer than this are truncated; only the boot advertisement
	// is that long and it is ignored.
	maxPacket = 128

	q8  = 1.0 / (1 << 8)
	q14 = 1.0 / (1 << 14)
)

var (
	// ErrNoData is returned when a report has not been received yet.
	ErrNoData = errors.New("no report received")
	// ErrNoProductID is returned when the sensor did not answer the
	// product-ID request during Init.
	ErrNoProductID = errors.New("no product id response")
)

// ProductID is the identification returned by the sensor.
type ProductID struct {
	ResetCause uint8
	SWMajor    uint8
	SWMinor    uint8
	PartNumber uint32
	Build      uint32
	Patch      uint16
}

// Device is a BNO08x on an I2C bus. It is not safe for concurrent use.
type Device struct {
	bus  Bus
	addr uint16

	// Sleep waits between reset and the first read. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// ResetDelay is how long the sensor is given to boot after a reset.
	ResetDelay time.Duration
	// InitBudget bounds the packets read while waiting for boot messages
	// and the product-ID response.
	InitBudget int

	seq [6]uint8
	buf [maxPacket]byte
	out [headerSize + 17]byte

	product   ProductID
	rotation  fusion.Quat
	hasRot    bool
	accel     fusion.Vec3
	hasAccel  bool
	processed uint32
}

// New returns a driver for a sensor at addr on bus.
func New(bus Bus, addr uint16) *Device {
	return &Device{
		bus:        bus,
		addr:       addr,
		Sleep:      time.Sleep,
		ResetDelay: 150 * time.Millisecond,
		InitBudget: 16,
	}
}

// Init resets the sensor and checks that it identifies itself.
func (d *Device) Init() error {
	if err := d.send(chanExecutable, []byte{execReset}); err != nil {
		return fmt.Errorf("soft reset: %w", err)
	}
	if d.Sleep != nil {
		d.Sleep(d.ResetDelay)
	}

	// Boot advertisement and reset-complete messages.
	for i := 0; i < d.InitBudget; i++ {
		ch, _, err := d.readPacket()
		if err != nil || ch < 0 {
			break
		}
	}

	if err := d.send(chanControl, []byte{cmdProductIDRequest, 0}); err != nil {
		return fmt.Errorf("product id request: %w", err)
	}
	for i := 0; i < d.InitBudget; i++ {
		ch, payload, err := d.readPacket()
		if err != nil {
			return fmt.Errorf("product id response: %w", err)
		}
		if ch == chanControl && len(payload) >= 16 && payload[0] == cmdProductIDResponse {
			d.product = parseProductID(payload)
			return nil
		}
		d.dispatch(ch, payload)
	}
	return ErrNoProductID
}

// Product returns the identification read by Init.
func (d *Device) Product() ProductID {
	return d.product
}

// EnableReport asks the sensor to stream report id every interval.
func (d *Device) EnableReport(id ReportID, interval time.Duration) error {
	var cmd [17]byte
	cmd[0] = cmdSetFeature
	cmd[1] = uint8(id)
	binary.LittleEndian.PutUint32(cmd[5:], uint32(interval/time.Microsecond))
	if err := d.send(chanControl, cmd[:]); err != nil {
		return fmt.Errorf("enable report 0x%02X: %w", uint8(id), err)
	}
	return nil
}

// HandlePending reads and decodes up to budget packets and returns how many
// were read. It stops early when the sensor has nothing to send or the bus
// reports an error.
func (d *Device) HandlePending(budget int) int {
	n := 0
	for n < budget {
		ch, payload, err := d.readPacket()
		if err != nil || ch < 0 {
			break
		}
		d.dispatch(ch, payload)
		n++
	}
	return n
}

// Rotation returns the latest rotation quaternion.
func (d *Device) Rotation() (fusion.Quat, error) {
	if !d.hasRot {
		return fusion.Quat{}, ErrNoData
	}
	return d.rotation, nil
}

// LinearAccel returns the latest linear acceleration in m/s².
func (d *Device) LinearAccel() (fusion.Vec3, error) {
	if !d.hasAccel {
		return fusion.Vec3{}, ErrNoData
	}
	return d.accel, nil
}

// Processed returns the number of sensor reports decoded so far.
func (d *Device) Processed() uint32 {
	return d.processed
}

func (d *Device) send(channel int, payload []byte) error {
	n := headerSize + len(payload)
	pkt := d.out[:n]
	binary.LittleEndian.PutUint16(pkt[0:], uint16(n))
	pkt[2] = uint8(channel)
	pkt[3] = d.seq[channel]
	copy(pkt[headerSize:], payload)

	if err := d.bus.Tx(d.addr, pkt, nil); err != nil {
		return err
	}
	d.seq[channel]++
	return nil
}

// readPacket returns the channel and payload of the next packet, or a
// channel of -1 when there is none.
func (d *Device) readPacket() (int, []byte, error) {
	hdr := d.buf[:headerSize]
	if err := d.bus.Tx(d.addr, nil, hdr); err != nil {
		return -1, nil, err
	}
	length := int(binary.LittleEndian.Uint16(hdr) & 0x7FFF)
	if length == 0 || length == 0x7FFF {
		return -1, nil, nil
	}
	if length > maxPacket {
		length = maxPacket
	}
	if length < headerSize {
		length = headerSize
	}

	// Every read transaction starts again with the header.
	pkt := d.buf[:length]
	if err := d.bus.Tx(d.addr, nil, pkt); err != nil {
		return -1, nil, err
	}
	return int(pkt[2]), pkt[headerSize:], nil
}

func (d *Device) dispatch(channel int, payload []byte) {
	switch channel {
	case chanGyroRV:
		d.parseGyroRV(payload)
	case chanReports, chanWake:
		d.parseReports(payload)
	}
}

// parseGyroRV decodes the gyro-integrated rotation vector: i, j, k, real in
// Q14 followed by angular velocity, with no report header.
func (d *Device) parseGyroRV(p []byte) {
	if len(p) < 8 {
		return
	}
	d.rotation = quatQ14(p)
	d.hasRot = true
	d.processed++
}

func (d *Device) parseReports(p []byte) {
	for len(p) > 0 {
		id := p[0]
		n, ok := reportLen[id]
		if !ok || len(p) < n {
			return
		}

		switch ReportID(id) {
		case LinearAcceleration:
			d.accel = fusion.Vec3{
				float32(int16le(p[4:])) * q8,
				float32(int16le(p[6:])) * q8,
				float32(int16le(p[8:])) * q8,
			}
			d.hasAccel = true
			d.processed++
		case RotationVector, GameRotationVector:
			d.rotation = quatQ14(p[4:])
			d.hasRot = true
			d.processed++
		}
		p = p[n:]
	}
}

func quatQ14(p []byte) fusion.Quat {
	return fusion.Quat{
		X: float32(int16le(p[0:])) * q14,
		Y: float32(int16le(p[2:])) * q14,
		Z: float32(int16le(p[4:])) * q14,
		W: float32(int16le(p[6:])) * q14,
	}
}

func parseProductID(p []byte) ProductID {
	le := binary.LittleEndian
	return ProductID{
		ResetCause: p[1],
		SWMajor:    p[2],
		SWMinor:    p[3],
		PartNumber: le.Uint32(p[4:]),
		Build:      le.Uint32(p[8:]),
		Patch:      le.Uint16(p[12:]),
	}
}

func int16le(b []byte) int16 {
	return int16(binary.LittleEndian.Uint16(b))
}
