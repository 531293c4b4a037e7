// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package qmc5883l

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/compass_computer/internal/heading"
	"github.com/relabs-tech/compass_computer/internal/mag"
)

// I2C register map for the QMC5883L (GY-271 breakout).
const (
	regXoutLSB  = 0x00 // X LSB; X MSB, Y LSB/MSB, Z LSB/MSB follow
	regStatus   = 0x06
	regToutLSB  = 0x07
	regControl1 = 0x09
	regControl2 = 0x0A
	regSetReset = 0x0B
	regChipID   = 0x0D
)

// Status register bits.
const (
	statusDRDY = 0x01 // new data ready
	statusOVL  = 0x02 // an axis left the configured range
	statusDOR  = 0x04 // data skipped for reading
)

// CONTROL2 soft reset bit.
const softReset = 0x80

// DefaultAddr is the typical QMC5883L I2C address.
const DefaultAddr = 0x0D

// ErrOverflow is returned when the field exceeded the configured range on
// at least one axis. With the 2 Gauss range, switching to 8 Gauss usually
// clears it.
var ErrOverflow = errors.New("qmc5883l: field overflow")

// RegisterNames maps register addresses to their datasheet names, for the
// register debug tool.
var RegisterNames = map[byte]string{
	0x00: "XOUT_LSB",
	0x01: "XOUT_MSB",
	0x02: "YOUT_LSB",
	0x03: "YOUT_MSB",
	0x04: "ZOUT_LSB",
	0x05: "ZOUT_MSB",
	0x06: "STATUS",
	0x07: "TOUT_LSB",
	0x08: "TOUT_MSB",
	0x09: "CONTROL1",
	0x0A: "CONTROL2",
	0x0B: "SET_RESET",
	0x0D: "CHIP_ID",
}

// Settle delay after each init register write; overridable in tests.
var sleep = time.Sleep

const settleDelay = 10 * time.Millisecond

// Opts holds initialization options.
//
// ODRHz: output data rate, 10/50/100/200 (default 50).
// RangeGauss: 2 or 8 (default 8).
// OSR: oversampling ratio, 64/128/256/512 (default 512).
// Standby: skip continuous mode and leave the device idle.
// DeclinationRad: added to headings to reference true north; find the
// value for your location at http://www.magnetic-declination.com/.
type Opts struct {
	Addr           uint16
	ODRHz          int
	RangeGauss     int
	OSR            int
	Standby        bool
	DeclinationRad float64
}

// Dev is an owned handle on one QMC5883L. Each Dev carries its own
// correction model, so several sensors can run in one process without any
// shared calibration state. All bus transactions are serialized by an
// internal mutex.
type Dev struct {
	mu             sync.Mutex
	dev            i2c.Dev
	model          mag.Model
	declinationRad float64
}

// New resets and configures the device: soft reset to CONTROL2, then the
// mode/range/rate/oversampling byte to CONTROL1, then the recommended
// set/reset period, with a settle delay after each write. The correction
// model starts as identity.
func New(bus i2c.Bus, opts Opts) (*Dev, error) {
	addr := opts.Addr
	if addr == 0 {
		addr = DefaultAddr
	}

	ctrl := byte(0x01) // continuous mode
	if opts.Standby {
		ctrl = 0x00
	}
	switch opts.ODRHz {
	case 10:
		ctrl |= 0x00
	case 100:
		ctrl |= 0x08
	case 200:
		ctrl |= 0x0C
	default: // 50Hz
		ctrl |= 0x04
	}
	switch opts.RangeGauss {
	case 2:
		ctrl |= 0x00
	default: // 8 Gauss
		ctrl |= 0x10
	}
	switch opts.OSR {
	case 64:
		ctrl |= 0xC0
	case 128:
		ctrl |= 0x80
	case 256:
		ctrl |= 0x40
	default: // 512
		ctrl |= 0x00
	}

	d := &Dev{
		dev:            i2c.Dev{Addr: addr, Bus: bus},
		model:          mag.Identity(),
		declinationRad: opts.DeclinationRad,
	}

	if err := d.writeReg(regControl2, softReset); err != nil {
		return nil, fmt.Errorf("qmc5883l: soft reset: %w", err)
	}
	sleep(settleDelay)
	if err := d.writeReg(regControl1, ctrl); err != nil {
		return nil, fmt.Errorf("qmc5883l: control setup: %w", err)
	}
	sleep(settleDelay)
	if err := d.writeReg(regSetReset, 0x01); err != nil {
		return nil, fmt.Errorf("qmc5883l: set/reset period: %w", err)
	}
	sleep(settleDelay)

	return d, nil
}

// ReadRaw reads the six axis data bytes in one transaction starting at the
// X LSB register and decodes the three signed counts. Transport failures
// are wrapped and propagated, never retried here.
func (d *Dev) ReadRaw() (mag.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRawLocked()
}

func (d *Dev) readRawLocked() (mag.Sample, error) {
	var data [6]byte
	if err := d.readRegBlock(regXoutLSB, data[:]); err != nil {
		return mag.Sample{}, fmt.Errorf("qmc5883l: data read: %w", err)
	}
	return mag.DecodeSample(data), nil
}

// ReadCalibrated reads a raw sample and applies the device's correction
// model.
func (d *Dev) ReadCalibrated() ([3]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.readRawLocked()
	if err != nil {
		return [3]float64{}, err
	}
	return d.model.Apply(s), nil
}

// Heading reads a calibrated sample and returns the declination-adjusted
// compass heading in degrees [0,360). On a bus failure there is no
// heading, only the error.
func (d *Dev) Heading() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.readRawLocked()
	if err != nil {
		return 0, err
	}
	v := d.model.Apply(s)
	return heading.FromXY(v[0], v[1], d.declinationRad), nil
}

// SetCorrection replaces the correction model. The model is swapped whole;
// there is no partial update.
func (d *Dev) SetCorrection(m mag.Model) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model = m
}

// Correction returns the current correction model.
func (d *Dev) Correction() mag.Model {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.model
}

// SetDeclination updates the magnetic declination in radians.
func (d *Dev) SetDeclination(rad float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.declinationRad = rad
}

// Ready reports whether a new measurement is available, or ErrOverflow if
// an axis left the configured range.
func (d *Dev) Ready() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegBlock(regStatus, b[:]); err != nil {
		return false, fmt.Errorf("qmc5883l: status read: %w", err)
	}
	if b[0]&statusOVL != 0 {
		return false, ErrOverflow
	}
	return b[0]&statusDRDY != 0, nil
}

// Temperature returns the die temperature in degrees Celsius at 100
// LSB/°C. The sensor factory-calibrates only the slope, not the absolute
// offset, so treat this as relative.
func (d *Dev) Temperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var data [2]byte
	if err := d.readRegBlock(regToutLSB, data[:]); err != nil {
		return 0, fmt.Errorf("qmc5883l: temperature read: %w", err)
	}
	t := int(data[0]) | int(data[1])<<8
	if t > 32767 {
		t -= 65536
	}
	return float64(t) / 100, nil
}

// ReadRegister reads a single register byte. Used by the debug tool.
func (d *Dev) ReadRegister(addr byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegBlock(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Dev) writeReg(addr, val byte) error {
	return d.dev.Tx([]byte{addr, val}, nil)
}

func (d *Dev) readRegBlock(addr byte, out []byte) error {
	return d.dev.Tx([]byte{addr}, out)
}
