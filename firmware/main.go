//go:build tinygo

//go:generate tinygo flash -target=kb2040 -scheduler=cores -stack-size=4KB

package main

import (
	"context"
	"machine"
	"machine/usb"
	"time"

	"github.com/itohio/headtrack/pkg/bno08x"
	"github.com/itohio/headtrack/pkg/config"
	"github.com/itohio/headtrack/pkg/queue"
	"github.com/itohio/headtrack/pkg/tasks"
)

var (
	cfg = config.Default()

	// Cross-core telemetry queue. It lives for the whole program and is
	// split exactly once.
	telemetry queue.Queue

	boot = time.Now()
)

func init() {
	// USB identity must be set before the CDC interface enumerates.
	usb.VendorID = cfg.Device.VendorID
	usb.ProductID = cfg.Device.ProductID
	usb.Manufacturer = cfg.Device.Manufacturer
	usb.Product = cfg.Device.Product
	usb.Serial = cfg.Device.SerialNumber
}

func main() {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	}); err != nil {
		println("I2C configure failed:", err.Error())
	}

	producer, consumer, err := telemetry.Split()
	if err != nil {
		println("queue split failed:", err.Error())
		return
	}

	clock := tasks.ClockFunc(func() uint64 {
		return uint64(time.Since(boot).Microseconds())
	})

	imu := bno08x.New(i2c, cfg.Sensor.Address)

	// The sensor task runs on core 1 and must not print: println goes to
	// machine.Serial, which belongs to the transport task on core 0. Init
	// results reach the host only through Pipeline.Diagnostics.
	sensor := tasks.NewSensorTask(clock, imu, producer, cfg.Sensor, cfg.Pipeline)

	transport := tasks.NewTransportTask(newCDCPort(machine.Serial), consumer)

	var launcher tasks.Launcher
	if err := launcher.Launch(context.Background(), sensor, transport); err != nil {
		println("launch failed:", err.Error())
	}
}
