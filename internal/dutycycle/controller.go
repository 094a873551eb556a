// Package dutycycle drives a sensor that must be stepped through timed
// heating, low-voltage settle, and sampling states before a reading is
// valid (MQ-7 style cycles). The controller runs one phase's work per
// scheduler tick, so a sensor with a minutes-long warm-up shares the
// cooperative loop without blocking other components.
package dutycycle

import (
	"fmt"
	"time"

	"github.com/dhoward/airnode/internal/gascurve"
)

// Phase is one stage of the duty cycle. Phases advance in a fixed order:
// Idle -> Heating -> Settling -> Sampling -> Idle; no phase is skipped and
// re-entering Idle is the only way to restart the cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHeating
	PhaseSettling
	PhaseSampling
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseHeating:
		return "HEATING"
	case PhaseSettling:
		return "SETTLING"
	case PhaseSampling:
		return "SAMPLING"
	}
	return "UNKNOWN"
}

// Actuator drives the sensor's heater supply as a PWM duty level 0..255.
type Actuator interface {
	SetLevel(level int) error
}

// Sampler is the analog sampling capability the controller needs.
type Sampler interface {
	Sample(channel int) (int, error)
}

// Reading is one calibrated measurement produced at the end of a cycle.
type Reading struct {
	Time          time.Time
	Raw           int
	Concentration float64
}

// Config holds the controller's fixed parameters.
type Config struct {
	HeatDuration   time.Duration
	SettleDuration time.Duration

	// HeatLevel and LowLevel are the actuator duty levels for the heating
	// and settle phases. LowLevel usually comes from CalibrateDutyLevel.
	HeatLevel int
	LowLevel  int

	ADCChannel int
	LoadKOhm   float64
	Sensor     gascurve.Sensor
	Gas        gascurve.Gas

	// DeactivateBelow, when > 0, auto-disables the cycle once a reading
	// falls below it (the event being watched has passed).
	DeactivateBelow float64
}

// Controller is the four-phase duty-cycle state machine.
type Controller struct {
	cfg      Config
	sampler  Sampler
	actuator Actuator

	phase        Phase
	phaseEntered time.Time
	enabled      bool
	ro           float64
}

// New creates a controller in the Idle phase, disabled.
func New(cfg Config, sampler Sampler, actuator Actuator) *Controller {
	return &Controller{cfg: cfg, sampler: sampler, actuator: actuator}
}

// SetBaseline sets the clean-air baseline used to normalize readings,
// typically after the calibration manager has produced it.
func (c *Controller) SetBaseline(ro float64) {
	c.ro = ro
}

// SetEnabled requests the cycle to run or stop. Disabling takes effect at
// the next phase boundary, never mid-phase: cutting heater power partway
// through a phase would leave the actuator at an unsafe intermediate level,
// so a disable lands when the current phase's timer expires.
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Enabled reports whether the cycle is requested to run.
func (c *Controller) Enabled() bool {
	return c.enabled
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Busy reports whether a cycle is in flight. While busy the node holds the
// sleep lock so the suspension cannot interrupt phase timing.
func (c *Controller) Busy() bool {
	return c.phase != PhaseIdle
}

// Tick re-evaluates the state machine once. Only the current phase's work
// executes; a Reading is returned when a Sampling phase completed.
func (c *Controller) Tick(now time.Time) (*Reading, error) {
	switch c.phase {
	case PhaseIdle:
		if !c.enabled {
			return nil, nil
		}
		if err := c.actuator.SetLevel(c.cfg.HeatLevel); err != nil {
			return nil, fmt.Errorf("drive heat level: %w", err)
		}
		c.enter(PhaseHeating, now)

	case PhaseHeating:
		if now.Sub(c.phaseEntered) < c.cfg.HeatDuration {
			return nil, nil
		}
		if done, err := c.abortIfDisabled(); done {
			return nil, err
		}
		if err := c.actuator.SetLevel(c.cfg.LowLevel); err != nil {
			return nil, fmt.Errorf("drive low level: %w", err)
		}
		c.enter(PhaseSettling, now)

	case PhaseSettling:
		if now.Sub(c.phaseEntered) < c.cfg.SettleDuration {
			return nil, nil
		}
		if done, err := c.abortIfDisabled(); done {
			return nil, err
		}
		c.enter(PhaseSampling, now)

	case PhaseSampling:
		raw, err := c.sampler.Sample(c.cfg.ADCChannel)
		if err != nil {
			// Transient fault: end the cycle, retry on the next one.
			c.finishCycle()
			return nil, fmt.Errorf("sample channel %d: %w", c.cfg.ADCChannel, err)
		}
		conc := gascurve.Concentration(raw, c.cfg.LoadKOhm, c.ro, c.cfg.Sensor, c.cfg.Gas)
		if c.cfg.DeactivateBelow > 0 && conc < c.cfg.DeactivateBelow {
			c.enabled = false
		}
		return &Reading{Time: now, Raw: raw, Concentration: conc}, c.finishCycle()
	}
	return nil, nil
}

func (c *Controller) enter(p Phase, now time.Time) {
	c.phase = p
	c.phaseEntered = now
}

// abortIfDisabled honors a pending disable at a phase boundary. The cycle
// returns to Idle even when the power-down fails; the error is surfaced so
// the caller can log it.
func (c *Controller) abortIfDisabled() (bool, error) {
	if c.enabled {
		return false, nil
	}
	c.phase = PhaseIdle
	if err := c.actuator.SetLevel(0); err != nil {
		return true, fmt.Errorf("heater power-down: %w", err)
	}
	return true, nil
}

// finishCycle returns to Idle; the heater is powered down unless another
// cycle starts on the next tick.
func (c *Controller) finishCycle() error {
	c.phase = PhaseIdle
	if !c.enabled {
		if err := c.actuator.SetLevel(0); err != nil {
			return fmt.Errorf("heater power-down: %w", err)
		}
	}
	return nil
}
