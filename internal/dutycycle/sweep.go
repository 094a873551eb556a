package dutycycle

import (
	"fmt"
	"time"
)

// Sweep defaults.
const (
	DefaultSweepStep     = 2
	DefaultSweepMaxLevel = 255
	DefaultSweepSettle   = 50 * time.Millisecond
)

// SweepConfig parameterizes a duty-level calibration sweep.
type SweepConfig struct {
	// FeedbackChannel is the analog input watching the heater supply.
	FeedbackChannel int

	// TargetRaw is the feedback ADC code matching the desired low
	// voltage.
	TargetRaw int

	// Step and MaxLevel bound the sweep; Settle is the wait after each
	// level change before the feedback is trusted. Zero values fall back
	// to the defaults.
	Step     int
	MaxLevel int
	Settle   time.Duration
}

// CalibrateDutyLevel finds the actuator duty level whose feedback voltage
// is closest to the target, sweeping upward from zero. The feedback starts
// above the target and falls as the duty rises; the first level at or below
// the target ends the sweep, and whichever of the last two levels read
// closer to the target wins.
//
// If the target is never crossed within the sweep range, the closest level
// seen is returned; the sweep always terminates.
func CalibrateDutyLevel(actuator Actuator, sampler Sampler, cfg SweepConfig, sleep func(time.Duration)) (int, error) {
	step := cfg.Step
	if step <= 0 {
		step = DefaultSweepStep
	}
	maxLevel := cfg.MaxLevel
	if maxLevel <= 0 {
		maxLevel = DefaultSweepMaxLevel
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSweepSettle
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	bestLevel := 0
	bestDist := -1
	prevLevel := 0
	prevDist := -1

	for level := 0; level <= maxLevel; level += step {
		if err := actuator.SetLevel(level); err != nil {
			return 0, fmt.Errorf("sweep level %d: %w", level, err)
		}
		sleep(settle)

		raw, err := sampler.Sample(cfg.FeedbackChannel)
		if err != nil {
			return 0, fmt.Errorf("sweep feedback at level %d: %w", level, err)
		}

		dist := raw - cfg.TargetRaw
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			bestLevel = level
		}

		if raw <= cfg.TargetRaw {
			// Crossed from above: the closer of the last two levels.
			if prevDist >= 0 && prevDist < dist {
				return prevLevel, nil
			}
			return level, nil
		}
		prevLevel = level
		prevDist = dist
	}

	// Never crossed; best effort.
	return bestLevel, nil
}
