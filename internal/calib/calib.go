// Package calib derives and persists the clean-air baseline resistance (Ro)
// for each gas channel. Calibration samples the sensor in assumed clean air,
// averages the resistances, and divides by the sensor's clean-air factor;
// the result is stored at a fixed per-channel offset so later boots can
// restore it without re-sampling.
package calib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dhoward/airnode/internal/gascurve"
	"github.com/dhoward/airnode/internal/store"
)

// Calibration defaults.
const (
	DefaultSampleCount    = 50
	DefaultSampleInterval = 500 * time.Millisecond

	// SanityFloor is the lowest believable restored Ro (kOhm). Anything
	// below it is treated as a corrupt record.
	SanityFloor = 4.0

	// SafeDefaultRo replaces a corrupt restored Ro (kOhm).
	SafeDefaultRo = 10.0
)

// Record layout: one byte initialized flag followed by the Ro float64 bits,
// little-endian. The layout and the per-slot offsets are a persistence
// contract: firmware upgrades must not reinterpret another channel's bytes.
const (
	recordBase = 0
	recordSize = 9

	flagInitialized = 0x01
)

// ErrNoUsableSamples indicates every calibration sample read as a sensor
// fault, so no baseline could be derived.
var ErrNoUsableSamples = errors.New("calib: no usable samples during calibration")

// Channel describes one gas channel's calibration-relevant configuration.
// Constants are fixed at configuration time; Ro is derived here.
type Channel struct {
	// Slot is the channel's storage slot. Slots are assigned once in the
	// node configuration and never reused for a different sensor.
	Slot int

	// ADCChannel is the analog input the sensor is wired to.
	ADCChannel int

	// LoadKOhm is the load resistor of the voltage divider.
	LoadKOhm float64

	// CleanAirFactor is the datasheet Rs/Ro ratio in clean air.
	CleanAirFactor float64
}

// Record is the persisted calibration tuple for one channel.
type Record struct {
	Initialized bool
	Ro          float64
}

// Sampler is the analog sampling capability calibration needs.
type Sampler interface {
	Sample(channel int) (int, error)
}

// Calibrator runs clean-air calibration and persists the results.
type Calibrator struct {
	sampler  Sampler
	store    store.Store
	count    int
	interval time.Duration
	sleep    func(time.Duration)
}

// New creates a Calibrator. count <= 0 and interval <= 0 fall back to the
// defaults. The sleep function is injectable for tests; pass nil for
// time.Sleep.
func New(sampler Sampler, st store.Store, count int, interval time.Duration, sleep func(time.Duration)) *Calibrator {
	if count <= 0 {
		count = DefaultSampleCount
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Calibrator{sampler: sampler, store: st, count: count, interval: interval, sleep: sleep}
}

// Calibrate samples the channel in assumed clean air, averages the derived
// resistances, and returns Ro = mean(Rs) / clean-air factor. Faulted reads
// are skipped; if every read faults, ErrNoUsableSamples is returned.
//
// This blocks for roughly count*interval on the cooperative thread, so it
// runs at startup or on an explicit operator command, never mid-loop.
func (c *Calibrator) Calibrate(ch Channel) (float64, error) {
	var sum float64
	usable := 0
	for i := 0; i < c.count; i++ {
		if i > 0 {
			c.sleep(c.interval)
		}
		raw, err := c.sampler.Sample(ch.ADCChannel)
		if err != nil {
			return 0, fmt.Errorf("calibrate slot %d: %w", ch.Slot, err)
		}
		rs, err := gascurve.ResistanceFromRaw(raw, ch.LoadKOhm)
		if err != nil {
			// Transient fault, skip this sample.
			continue
		}
		sum += rs
		usable++
	}
	if usable == 0 {
		return 0, ErrNoUsableSamples
	}
	return sum / float64(usable) / ch.CleanAirFactor, nil
}

// LoadOrCalibrate returns the channel's baseline. With an initialized record
// and force=false it restores the persisted Ro, clamping corrupt values to
// the safe default. Otherwise it calibrates and writes the record back to
// the channel's fixed slot, so repeated operator-triggered recalibrations
// never consume additional storage.
func (c *Calibrator) LoadOrCalibrate(ch Channel, force bool) (float64, error) {
	if !force {
		rec, err := c.Load(ch)
		if err != nil {
			return 0, err
		}
		if rec.Initialized {
			ro := rec.Ro
			if ro < SanityFloor || math.IsNaN(ro) {
				log.Printf("calib: slot %d restored Ro %v below sanity floor, using default %v", ch.Slot, ro, SafeDefaultRo)
				ro = SafeDefaultRo
			}
			return ro, nil
		}
	}

	ro, err := c.Calibrate(ch)
	if err != nil {
		return 0, err
	}
	if err := c.storeRecord(ch, Record{Initialized: true, Ro: ro}); err != nil {
		return 0, err
	}
	return ro, nil
}

// Load reads the channel's persisted record without sampling.
func (c *Calibrator) Load(ch Channel) (Record, error) {
	buf := make([]byte, recordSize)
	if err := c.store.ReadAt(buf, recordOffset(ch.Slot)); err != nil {
		return Record{}, fmt.Errorf("load record slot %d: %w", ch.Slot, err)
	}
	return decodeRecord(buf), nil
}

func (c *Calibrator) storeRecord(ch Channel, rec Record) error {
	if err := c.store.WriteAt(encodeRecord(rec), recordOffset(ch.Slot)); err != nil {
		return fmt.Errorf("store record slot %d: %w", ch.Slot, err)
	}
	return nil
}

// recordOffset maps a slot to its fixed byte offset.
func recordOffset(slot int) int64 {
	return recordBase + int64(slot)*recordSize
}

func encodeRecord(rec Record) []byte {
	buf := make([]byte, recordSize)
	if rec.Initialized {
		buf[0] = flagInitialized
	}
	binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(rec.Ro))
	return buf
}

func decodeRecord(buf []byte) Record {
	return Record{
		Initialized: buf[0] == flagInitialized,
		Ro:          math.Float64frombits(binary.LittleEndian.Uint64(buf[1:])),
	}
}
