//go:build tinygo

package main

import "machine"

const (
	// I2C configuration. The BNO08x sits on the STEMMA QT connector.
	I2C_FREQUENCY = 400 * machine.KHz
	PIN_SDA       = machine.I2C0_SDA_PIN
	PIN_SCL       = machine.I2C0_SCL_PIN
)
