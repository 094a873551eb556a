//go:build linux

package adc

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultI2CAddr is the ADS1115 address with ADDR strapped to ground.
const DefaultI2CAddr = 0x48

// ADS1115 register map and config bits used for single-shot reads.
const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgOSSingle    = 0x8000 // start one conversion
	cfgMuxSingle   = 0x4000 // AINx vs GND, channel in bits 12..13
	cfgPGA4V       = 0x0200 // +-4.096V range
	cfgModeSingle  = 0x0100
	cfgRate128SPS  = 0x0080
	cfgCompDisable = 0x0003

	conversionWait = 9 * time.Millisecond // 128SPS conversion takes ~8ms
)

// RealReader reads analog channels from an ADS1115 over I2C.
type RealReader struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// NewRealReader opens the named I2C bus ("" for the first available) and
// prepares the converter at the given address.
func NewRealReader(busName string, addr uint16) (*RealReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	if addr == 0 {
		addr = DefaultI2CAddr
	}
	return &RealReader{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// ReadRaw starts a single-shot conversion on the channel, waits for it to
// finish, and returns the result scaled to the node's 10-bit code space.
func (r *RealReader) ReadRaw(channel int) (int, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("adc: channel %d out of range 0..3", channel)
	}

	cfg := uint16(cfgOSSingle | cfgMuxSingle | cfgPGA4V | cfgModeSingle | cfgRate128SPS | cfgCompDisable)
	cfg |= uint16(channel) << 12
	if err := r.dev.Tx([]byte{regConfig, byte(cfg >> 8), byte(cfg)}, nil); err != nil {
		return 0, fmt.Errorf("start conversion on channel %d: %w", channel, err)
	}

	time.Sleep(conversionWait)

	var buf [2]byte
	if err := r.dev.Tx([]byte{regConversion}, buf[:]); err != nil {
		return 0, fmt.Errorf("read conversion on channel %d: %w", channel, err)
	}

	code := int(int16(uint16(buf[0])<<8 | uint16(buf[1])))
	if code < 0 {
		// Single-ended inputs cannot go below ground; clamp noise.
		code = 0
	}
	// 15-bit single-ended result down to the 10-bit space the curve math uses.
	return code >> 5, nil
}

// Close releases the I2C bus.
func (r *RealReader) Close() error {
	return r.bus.Close()
}
