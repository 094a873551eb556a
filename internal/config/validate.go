package config

import (
	"fmt"
	"strings"

	"github.com/dhoward/airnode/internal/gascurve"
)

// ValidationError collects every configuration conflict found, so the
// operator fixes them all in one pass instead of one per restart.
type ValidationError struct {
	Problems []string
}

// Error joins the problems into one message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Validate rejects configurations that cannot run: two sensors claiming the
// same analog channel or GPIO line, overlapping storage slots, unsupported
// curve pairs, and nonsensical timings. Conflicts are configuration-time
// errors, never runtime ones.
func (c *Config) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.NodeID < 0 {
		addf("node_id %d is negative", c.NodeID)
	}
	if c.Poll <= 0 {
		addf("poll interval must be positive")
	}
	if c.Broker == "" && c.Serial.Port == "" {
		addf("no transport configured: set broker or serial.port")
	}

	adcOwners := map[int]string{}
	claimADC := func(ch int, owner string) {
		if prev, taken := adcOwners[ch]; taken {
			addf("adc channel %d claimed by both %s and %s", ch, prev, owner)
			return
		}
		adcOwners[ch] = owner
	}
	slotOwners := map[int]string{}
	claimSlot := func(slot int, owner string) {
		if prev, taken := slotOwners[slot]; taken {
			addf("storage slot %d claimed by both %s and %s", slot, prev, owner)
			return
		}
		slotOwners[slot] = owner
	}

	for i, g := range c.Gas {
		if !g.Enabled {
			continue
		}
		name := g.Name
		if name == "" {
			name = fmt.Sprintf("gas_channels[%d]", i)
			addf("%s has no name", name)
		}
		claimADC(g.ADCChannel, name)
		claimSlot(g.Slot, name)
		if g.LoadKOhm <= 0 {
			addf("%s: load_kohm must be positive", name)
		}
		if g.CleanAirFactor <= 0 {
			addf("%s: clean_air_factor must be positive", name)
		}
		if _, ok := gascurve.CurveFor(g.Sensor, g.Gas); !ok {
			addf("%s: sensor %s has no curve for gas %s", name, g.Sensor, g.Gas)
		}
		if g.UpdateInterval <= 0 {
			addf("%s: update_interval must be positive", name)
		}
	}

	if c.Duty.Enabled {
		claimADC(c.Duty.ADCChannel, "duty_cycle")
		claimADC(c.Duty.FeedbackChannel, "duty_cycle feedback")
		claimSlot(c.Duty.Slot, "duty_cycle")
		if _, ok := gascurve.CurveFor(c.Duty.Sensor, c.Duty.Gas); !ok {
			addf("duty_cycle: sensor %s has no curve for gas %s", c.Duty.Sensor, c.Duty.Gas)
		}
		if c.Duty.HeatDuration <= 0 || c.Duty.SettleDuration <= 0 {
			addf("duty_cycle: heat_duration and settle_duration must be positive")
		}
		if c.Duty.HeatLevel <= 0 || c.Duty.HeatLevel > 255 {
			addf("duty_cycle: heat_level %d out of range 1..255", c.Duty.HeatLevel)
		}
	}

	pinOwners := map[int]string{}
	claimPin := func(pin int, owner string) {
		if prev, taken := pinOwners[pin]; taken {
			addf("pin %d claimed by both %s and %s", pin, prev, owner)
			return
		}
		pinOwners[pin] = owner
	}
	if c.Door.Enabled {
		claimPin(c.Pins.Door, "door")
	}
	if c.Motion.Enabled {
		claimPin(c.Pins.Motion, "motion")
	}
	claimPin(c.Pins.ToneLow, "tone_low")
	claimPin(c.Pins.ToneHigh, "tone_high")

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Capabilities is the runtime capability set replacing build-time feature
// selection: each optional component is a value resolved once at startup.
type Capabilities struct {
	GasChannels int
	DutyCycle   bool
	Door        bool
	Motion      bool
	SerialGW    bool
}

// Capabilities derives the capability set from the configuration.
func (c *Config) Capabilities() Capabilities {
	caps := Capabilities{
		DutyCycle: c.Duty.Enabled,
		Door:      c.Door.Enabled,
		Motion:    c.Motion.Enabled,
		SerialGW:  c.Serial.Port != "",
	}
	for _, g := range c.Gas {
		if g.Enabled {
			caps.GasChannels++
		}
	}
	return caps
}
