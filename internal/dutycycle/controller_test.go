package dutycycle

import (
	"errors"
	"testing"
	"time"

	"github.com/dhoward/airnode/internal/gascurve"
)

// fakeActuator records every level it was driven to.
type fakeActuator struct {
	levels []int
	err    error
}

func (f *fakeActuator) SetLevel(level int) error {
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)
	return nil
}

func (f *fakeActuator) last() int {
	if len(f.levels) == 0 {
		return -1
	}
	return f.levels[len(f.levels)-1]
}

// fakeSampler returns scripted codes in order, repeating the last.
type fakeSampler struct {
	codes []int
	index int
	err   error
}

func (f *fakeSampler) Sample(channel int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	code := f.codes[f.index]
	if f.index < len(f.codes)-1 {
		f.index++
	}
	return code, nil
}

func testConfig() Config {
	return Config{
		HeatDuration:   60 * time.Second,
		SettleDuration: 90 * time.Second,
		HeatLevel:      255,
		LowLevel:       72,
		ADCChannel:     1,
		LoadKOhm:       10,
		Sensor:         gascurve.SensorMQ7,
		Gas:            gascurve.GasCO,
	}
}

func TestPhasesAreMonotonic(t *testing.T) {
	act := &fakeActuator{}
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// One full cycle visits each phase exactly once, in order.
	var visited []Phase

	record := func() { visited = append(visited, c.Phase()) }

	c.Tick(now) // Idle -> Heating, heat level driven
	record()
	c.Tick(now.Add(30 * time.Second)) // mid-heat: no transition
	record()
	c.Tick(now.Add(60 * time.Second)) // Heating -> Settling
	record()
	c.Tick(now.Add(100 * time.Second)) // mid-settle: no transition
	record()
	reading, err := c.Tick(now.Add(150 * time.Second)) // Settling -> Sampling
	record()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading != nil {
		t.Fatal("no reading expected at settle->sample transition")
	}
	reading, err = c.Tick(now.Add(151 * time.Second)) // Sampling -> Idle, reading out
	record()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading == nil {
		t.Fatal("expected a reading at cycle end")
	}

	want := []Phase{PhaseHeating, PhaseHeating, PhaseSettling, PhaseSettling, PhaseSampling, PhaseIdle}
	for i, p := range want {
		if visited[i] != p {
			t.Errorf("step %d: expected phase %v, got %v", i, p, visited[i])
		}
	}
}

func TestActuatorLevelsPerPhase(t *testing.T) {
	act := &fakeActuator{}
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tick(now)
	if act.last() != 255 {
		t.Errorf("heating phase must drive the heat level, got %d", act.last())
	}
	c.Tick(now.Add(60 * time.Second))
	if act.last() != 72 {
		t.Errorf("settle phase must drive the low level, got %d", act.last())
	}
}

func TestDisabledControllerStaysIdle(t *testing.T) {
	act := &fakeActuator{}
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, act)

	now := time.Now()
	for i := 0; i < 5; i++ {
		if r, err := c.Tick(now.Add(time.Duration(i) * time.Minute)); r != nil || err != nil {
			t.Fatalf("disabled tick %d: reading=%v err=%v", i, r, err)
		}
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("expected Idle, got %v", c.Phase())
	}
	if len(act.levels) != 0 {
		t.Errorf("actuator must not be driven while disabled: %v", act.levels)
	}
}

func TestDisableHonoredAtPhaseBoundary(t *testing.T) {
	act := &fakeActuator{}
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tick(now) // start heating

	// Disable mid-heat: nothing changes until the phase timer expires.
	c.SetEnabled(false)
	c.Tick(now.Add(30 * time.Second))
	if c.Phase() != PhaseHeating {
		t.Errorf("disable must not cut a phase short, got %v", c.Phase())
	}
	if act.last() != 255 {
		t.Errorf("heater must keep its level mid-phase, got %d", act.last())
	}

	// At the boundary the cycle aborts and the heater powers down.
	c.Tick(now.Add(60 * time.Second))
	if c.Phase() != PhaseIdle {
		t.Errorf("expected Idle after boundary abort, got %v", c.Phase())
	}
	if act.last() != 0 {
		t.Errorf("heater must be powered down on abort, got %d", act.last())
	}
}

func TestAbortPowerDownFailureSurfaces(t *testing.T) {
	act := &fakeActuator{}
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tick(now)
	c.SetEnabled(false)

	act.err = errors.New("pwm write fault")
	if _, err := c.Tick(now.Add(60 * time.Second)); err == nil {
		t.Error("failed heater power-down must surface an error")
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("cycle must still return to Idle, got %v", c.Phase())
	}
}

func TestAutoDeactivateBelowThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.DeactivateBelow = 5
	// A high raw code means low resistance ratio... pick a reading whose
	// concentration lands below the threshold: raw near zero resistance
	// ratio very high -> concentration tiny for negative slopes.
	act := &fakeActuator{}
	c := New(cfg, &fakeSampler{codes: []int{20}}, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tick(now)
	c.Tick(now.Add(60 * time.Second))
	c.Tick(now.Add(150 * time.Second))
	reading, err := c.Tick(now.Add(151 * time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading == nil {
		t.Fatal("expected a reading")
	}
	if reading.Concentration >= 5 {
		t.Fatalf("test setup: concentration %v not below threshold", reading.Concentration)
	}
	if c.Enabled() {
		t.Error("controller must auto-disable below the threshold")
	}
	if act.last() != 0 {
		t.Errorf("heater must power down after auto-disable, got %d", act.last())
	}
}

func TestSampleErrorEndsCycle(t *testing.T) {
	act := &fakeActuator{}
	s := &fakeSampler{codes: []int{400}}
	c := New(testConfig(), s, act)
	c.SetBaseline(10)
	c.SetEnabled(true)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Tick(now)
	c.Tick(now.Add(60 * time.Second))
	c.Tick(now.Add(150 * time.Second))

	s.err = errors.New("bus fault")
	if _, err := c.Tick(now.Add(151 * time.Second)); err == nil {
		t.Error("expected sample error to propagate")
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("a faulted cycle must return to Idle, got %v", c.Phase())
	}
	// Still enabled: the next tick starts a fresh cycle.
	if !c.Enabled() {
		t.Error("a transient fault must not disable the cycle")
	}
}

func TestBusyTracksPhase(t *testing.T) {
	c := New(testConfig(), &fakeSampler{codes: []int{400}}, &fakeActuator{})
	c.SetEnabled(true)
	if c.Busy() {
		t.Error("idle controller must not be busy")
	}
	c.Tick(time.Now())
	if !c.Busy() {
		t.Error("controller mid-cycle must be busy")
	}
}
