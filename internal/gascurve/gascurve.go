// Package gascurve converts raw ADC readings from resistive gas sensors into
// gas concentration percentages. This package has NO external dependencies
// (no ADC, storage, or time.Sleep); every function is pure.
//
// The conversion happens in two steps: a voltage-divider relation turns a raw
// ADC code into the sensor's resistance, and a two-point log-log line turns
// the ratio of that resistance to a clean-air baseline into a concentration.
package gascurve

import (
	"errors"
	"math"
)

// FullScale is the maximum ADC code for the node's 10-bit converters.
const FullScale = 1023

// ErrSensorFault indicates a raw reading that cannot come from a working
// sensor (the divider would need zero or negative voltage).
var ErrSensorFault = errors.New("gascurve: sensor fault (raw reading out of range)")

// Curve describes a line in log10(ppm) vs log10(Rs/Ro) space for one
// (sensor, gas) pair. X0 and Y0 anchor the line, Slope must be non-zero.
// Physical sensors have negative slopes: resistance falls as gas rises.
type Curve struct {
	X0    float64
	Y0    float64
	Slope float64
}

// ResistanceFromRaw computes the sensor resistance in kOhm from a raw ADC
// code and the load resistor value, using the voltage-divider relation
// Rs = load * (FullScale - raw) / raw.
//
// A raw code of zero (or below) means the divider saw no voltage at all,
// which a connected sensor cannot produce; that is reported as
// ErrSensorFault rather than dividing by zero.
func ResistanceFromRaw(raw int, loadKOhm float64) (float64, error) {
	if raw <= 0 {
		return 0, ErrSensorFault
	}
	if raw > FullScale {
		raw = FullScale
	}
	return loadKOhm * float64(FullScale-raw) / float64(raw), nil
}

// PercentageFromRatio converts a resistance ratio (Rs/Ro) into a gas
// concentration using the curve's two-point log-log line:
//
//	ppm = 10 ^ ((log10(ratio) - Y0) / Slope + X0)
//
// The curve constants are derived from a log10 fit, so log10 is used here.
// A non-positive ratio has no logarithm and a zero slope has no inverse;
// both return 0 (no contribution) instead of propagating NaN downstream.
func PercentageFromRatio(ratio float64, c Curve) float64 {
	if ratio <= 0 || c.Slope == 0 {
		return 0
	}
	return math.Pow(10, (math.Log10(ratio)-c.Y0)/c.Slope+c.X0)
}

// Concentration is the full pipeline for one reading: raw code to
// resistance, resistance over baseline to percentage. Unsupported
// (sensor, gas) pairs and faulty readings both yield 0.
func Concentration(raw int, loadKOhm, ro float64, sensor Sensor, gas Gas) float64 {
	curve, ok := CurveFor(sensor, gas)
	if !ok {
		return 0
	}
	if ro <= 0 {
		return 0
	}
	rs, err := ResistanceFromRaw(raw, loadKOhm)
	if err != nil {
		return 0
	}
	return PercentageFromRatio(rs/ro, curve)
}
