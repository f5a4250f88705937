// Package supply reads the panel supply rail through an INA219-compatible
// current/voltage monitor on I2C.
package supply

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// Reading is one sample of the panel rail.
type Reading struct {
	// BusMv is the rail voltage in millivolts.
	BusMv int `json:"bus_mv"`
	// ShuntUv is the voltage across the shunt resistor in microvolts.
	ShuntUv int       `json:"shunt_uv"`
	Time    time.Time `json:"time"`
}

// Monitor abstracts how rail readings are obtained so the host can run
// without a monitor fitted.
type Monitor interface {
	Read(ctx context.Context) (Reading, error)
}

const (
	regShunt = 0x01
	regBus   = 0x02

	// busOVF is set when the conversion overflowed.
	busOVF = 1 << 0
)

// INA219 talks to the monitor at one address on an I2C bus.
type INA219 struct {
	dev *i2c.Dev
	now func() time.Time
}

// NewINA219 returns a monitor at addr on bus.
func NewINA219(bus i2c.Bus, addr uint16) *INA219 {
	return &INA219{dev: &i2c.Dev{Bus: bus, Addr: addr}, now: time.Now}
}

func (m *INA219) String() string {
	return fmt.Sprintf("ina219(%s)", m.dev)
}

func (m *INA219) readReg(reg byte) (uint16, error) {
	buf := make([]byte, 2)
	if err := m.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, fmt.Errorf("supply: read register 0x%02x: %w", reg, err)
	}
	return binary.BigEndian.Uint16(buf), nil
}

// Read samples bus and shunt voltage.
func (m *INA219) Read(_ context.Context) (Reading, error) {
	bus, err := m.readReg(regBus)
	if err != nil {
		return Reading{}, err
	}
	if bus&busOVF != 0 {
		return Reading{}, fmt.Errorf("supply: conversion overflow (bus=0x%04x)", bus)
	}
	shunt, err := m.readReg(regShunt)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		// Bits 15..3, 4 mV per LSB.
		BusMv: int(bus>>3) * 4,
		// Two's complement, 10 uV per LSB.
		ShuntUv: int(int16(shunt)) * 10,
		Time:    m.now(),
	}, nil
}
