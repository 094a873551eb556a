package node

import (
	"errors"
	"math"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/dhoward/airnode/internal/adc"
	"github.com/dhoward/airnode/internal/calib"
	"github.com/dhoward/airnode/internal/config"
	"github.com/dhoward/airnode/internal/gpio"
	"github.com/dhoward/airnode/internal/status"
	"github.com/dhoward/airnode/internal/store"
	"github.com/dhoward/airnode/internal/transport"
	"github.com/dhoward/airnode/internal/trigger"
)

func noSleep(time.Duration) {}

// rig assembles a node over fakes. The ADC script is keyed by channel;
// Startup consumes the first sample of every calibrated channel.
type rig struct {
	node    *Node
	pub     *transport.FakePublisher
	adc     *adc.FakeReader
	reader  *gpio.FakeReader
	buzzer  *gpio.FakeBuzzer
	tracker *status.Tracker
}

type fakeActuator struct {
	levels []int
}

func (f *fakeActuator) SetLevel(level int) error {
	f.levels = append(f.levels, level)
	return nil
}

func newRig(t *testing.T, cfg *config.Config, samples map[int][]int) *rig {
	t.Helper()

	reader := adc.NewFakeReader(samples)
	sampler := adc.NewSampler(reader, 1, 0, noSleep)
	calibrator := calib.New(sampler, store.NewMemStore(store.DefaultSize), 1, 0, noSleep)

	pub := transport.NewFakePublisher()
	gpioReader := gpio.NewFakeReader([]gpio.Sample{{Door: false, Motion: false}})
	buzzer := &gpio.FakeBuzzer{}
	tracker := status.NewTracker(time.Now(), status.Config{NodeID: cfg.NodeID})

	n := New(cfg, Deps{
		Sampler:    sampler,
		Calibrator: calibrator,
		Reader:     gpioReader,
		Buzzer:     buzzer,
		Publisher:  pub,
		System:     pub,
		Receiver:   pub,
		Actuator:   &fakeActuator{},
		Tracker:    tracker,
	})
	if err := n.Startup(false); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	return &rig{node: n, pub: pub, adc: reader, reader: gpioReader, buzzer: buzzer, tracker: tracker}
}

func TestStartupDerivesBaseline(t *testing.T) {
	cfg := config.Default()
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	// Calibration reads 200: Rs = 18 * 823 / 200, Ro = Rs / 9.8.
	r := newRig(t, cfg, map[int][]int{0: {200, 100}})

	r.node.Tick(time.Now(), 0)

	snap := r.tracker.Snapshot()
	if len(snap.Channels) != 1 {
		t.Fatalf("Channels = %d, want 1", len(snap.Channels))
	}
	wantRo := 18.0 * 823.0 / 200.0 / 9.8
	if math.Abs(snap.Channels[0].Ro-wantRo) > 1e-9 {
		t.Errorf("Ro = %v, want %v", snap.Channels[0].Ro, wantRo)
	}
	if _, ok := r.pub.Last(cfg.Gas[0].TransportID); !ok {
		t.Error("first tick should publish the smoke value")
	}
}

func TestGasThresholdDrivesAlarmAndSleepLock(t *testing.T) {
	cfg := config.Default()
	cfg.Gas[0].UpdateInterval = time.Second
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	// 200 calibrates; 600 converts well above the 10 ppm threshold,
	// 100 well below it.
	r := newRig(t, cfg, map[int][]int{0: {200, 600, 100}})
	t0 := time.Now()

	r.node.Tick(t0, 0)
	if !r.node.Alarm().Sounding() {
		t.Fatal("high reading should sound the alarm")
	}
	if !r.node.SleepLock().Has(trigger.ReasonAlarm) {
		t.Error("sounding alarm should hold the sleep lock")
	}
	if r.buzzer.Current() == trigger.ToneOff {
		t.Error("buzzer should be driven while sounding")
	}

	r.node.Tick(t0.Add(time.Second), time.Second)
	if r.node.Alarm().Sounding() {
		t.Error("low reading should clear the alarm")
	}
	if r.node.SleepLock().Has(trigger.ReasonAlarm) {
		t.Error("sleep lock should release with the alarm")
	}
	if r.buzzer.Current() != trigger.ToneOff {
		t.Errorf("buzzer = %v after clear, want ToneOff", r.buzzer.Current())
	}
}

func TestManualResetSuppressesRetrigger(t *testing.T) {
	cfg := config.Default()
	cfg.Gas[0].UpdateInterval = time.Second
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 600}})
	t0 := time.Now()

	r.node.Tick(t0, 0)
	if !r.node.Alarm().Sounding() {
		t.Fatal("setup: alarm should sound")
	}

	r.node.HandleCommand(transport.Command{Type: transport.CommandManualReset}, t0)
	if r.node.Alarm().Sounding() {
		t.Fatal("manual reset should silence immediately")
	}

	// Reading stays high; inside the window the reason may not re-sound.
	r.node.Tick(t0.Add(time.Second), time.Second)
	if r.node.Alarm().Sounding() {
		t.Error("suppressed reason re-sounded inside the window")
	}

	r.node.Tick(t0.Add(31*time.Second), 30*time.Second)
	if !r.node.Alarm().Sounding() {
		t.Error("persisting reason should re-sound after the window")
	}
}

func TestRemoteSetAlarmCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Gas[0].UpdateInterval = time.Second
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 100}})
	t0 := time.Now()

	r.pub.Deliver(transport.Command{Type: transport.CommandSetAlarm, Value: true})
	r.node.Tick(t0, 0)
	if !r.node.Alarm().Sounding() {
		t.Fatal("remote set-alarm should sound")
	}
	if r.node.Alarm().Mask()&trigger.ReasonRemote == 0 {
		t.Errorf("mask = %b, want remote bit", r.node.Alarm().Mask())
	}

	r.pub.Deliver(transport.Command{Type: transport.CommandSetAlarm, Value: false})
	r.node.Tick(t0.Add(time.Second), time.Second)
	if r.node.Alarm().Sounding() {
		t.Error("remote clear should silence")
	}
}

func TestPublishOnChangeOrStaleCap(t *testing.T) {
	cfg := config.Default()
	cfg.Gas[0].UpdateInterval = time.Second
	cfg.Gas[0].MissCap = 2
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	// Constant reading after calibration.
	r := newRig(t, cfg, map[int][]int{0: {200, 100}})
	t0 := time.Now()

	r.node.Tick(t0, 0)                              // changed from nothing: publish
	r.node.Tick(t0.Add(time.Second), time.Second)   // unchanged, miss 1
	r.node.Tick(t0.Add(2*time.Second), time.Second) // miss 2: forced refresh

	var got int
	for _, p := range r.pub.Values {
		if p.ChannelID == cfg.Gas[0].TransportID {
			got++
		}
	}
	if got != 2 {
		t.Errorf("published %d smoke values, want 2 (initial + stale refresh)", got)
	}
}

func TestPublishFailureRetainsValueForRetry(t *testing.T) {
	cfg := config.Default()
	cfg.Gas[0].UpdateInterval = time.Second
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 100}})
	r.pub.PublishError = errors.New("broker down")
	r.pub.FailCount = 1
	t0 := time.Now()

	r.node.Tick(t0, 0)
	if len(r.pub.Values) != 0 {
		t.Fatalf("Values = %v, want none while failing", r.pub.Values)
	}
	if r.tracker.Snapshot().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", r.tracker.Snapshot().Dropped)
	}

	// Value was not recorded as published, so the unchanged reading still
	// counts as changed and goes out on the next pass.
	r.node.Tick(t0.Add(time.Second), time.Second)
	if _, ok := r.pub.Last(cfg.Gas[0].TransportID); !ok {
		t.Error("retained value should publish once the transport recovers")
	}
}

func TestReadFaultRetriesNextTick(t *testing.T) {
	cfg := config.Default()
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 100, 600}})
	t0 := time.Now()

	r.node.Tick(t0, 0)

	// A bus fault on a due sample must not consume the interval: the
	// channel stays due and is re-read one poll later, not 30s later.
	r.adc.ReadError = errors.New("i2c bus fault")
	r.node.Tick(t0.Add(30*time.Second), 30*time.Second)
	if r.node.Alarm().Sounding() {
		t.Fatal("setup: faulted read must not produce a value")
	}
	r.adc.ReadError = nil

	r.node.Tick(t0.Add(30*time.Second+100*time.Millisecond), 100*time.Millisecond)
	if !r.node.Alarm().Sounding() {
		t.Error("cleared fault should re-sample on the next tick, not wait out the interval")
	}

	var got int
	for _, p := range r.pub.Values {
		if p.ChannelID == cfg.Gas[0].TransportID {
			got++
		}
	}
	if got != 2 {
		t.Errorf("published %d smoke values, want 2 (initial + post-fault)", got)
	}
}

func TestDutyCycleHoldsSleepLock(t *testing.T) {
	cfg := config.Default()
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false
	cfg.Duty.Enabled = true
	cfg.Duty.HeatDuration = 2 * time.Second
	cfg.Duty.SettleDuration = 2 * time.Second
	cfg.Duty.DeactivateBelow = 0

	// Channel 1 calibrates from 80 (Ro above the sanity floor), then
	// samples 400.
	r := newRig(t, cfg, map[int][]int{
		0: {200, 100},
		1: {80, 400},
	})
	t0 := time.Now()

	r.node.Tick(t0, 0) // Idle -> Heating
	if !r.node.SleepLock().Has(trigger.ReasonDutyCycle) {
		t.Fatal("mid-cycle node must hold the sleep lock")
	}

	r.node.Tick(t0.Add(2*time.Second), 2*time.Second) // -> Settling
	r.node.Tick(t0.Add(4*time.Second), 2*time.Second) // -> Sampling
	if !r.node.SleepLock().Has(trigger.ReasonDutyCycle) {
		t.Fatal("sleep lock released before the cycle finished")
	}

	r.node.Tick(t0.Add(4*time.Second), 0) // reading, back to Idle
	if r.node.SleepLock().Has(trigger.ReasonDutyCycle) {
		t.Error("sleep lock should release once the cycle completes")
	}
	if _, ok := r.pub.Last(cfg.Duty.TransportID); !ok {
		t.Error("completed cycle should publish its reading")
	}
}

func TestDoorTransitionPublishes(t *testing.T) {
	cfg := config.Default()
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 100}})
	r.reader.Samples = []gpio.Sample{
		{Door: false},
		{Door: true},
	}
	t0 := time.Now()

	r.node.Tick(t0, 0)
	if got, _ := r.pub.Last(cfg.Door.TransportID); got != "0" {
		t.Fatalf("initial door value = %q, want \"0\"", got)
	}

	r.node.Tick(t0.Add(100*time.Millisecond), 100*time.Millisecond)
	if got, _ := r.pub.Last(cfg.Door.TransportID); got != "1" {
		t.Errorf("door value after open = %q, want \"1\"", got)
	}
}

func TestPendingDoorTransitionHoldsSleepLock(t *testing.T) {
	cfg := config.Default()
	cfg.Motion.Enabled = false

	r := newRig(t, cfg, map[int][]int{0: {200, 100}})
	r.pub.PublishError = errors.New("broker down")
	r.pub.FailCount = 2 // smoke and door both fail on the first pass
	t0 := time.Now()

	r.node.Tick(t0, 0)
	if !r.node.SleepLock().Has(trigger.ReasonDoor) {
		t.Fatal("unpublished door state must hold the sleep lock")
	}

	r.node.Tick(t0.Add(100*time.Millisecond), 100*time.Millisecond)
	if r.node.SleepLock().Has(trigger.ReasonDoor) {
		t.Error("sleep lock should release once the door state got out")
	}
	if got, _ := r.pub.Last(cfg.Door.TransportID); got != "0" {
		t.Errorf("door value = %q, want \"0\"", got)
	}
}

// fakeClock returns times a fixed step apart per call, so elapsed time is
// deterministic without sleeping in the test.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestRunSleepsAndShutsDown(t *testing.T) {
	cfg := config.Default()
	cfg.Door.Enabled = false
	cfg.Motion.Enabled = false
	cfg.Heartbeat = 0

	r := newRig(t, cfg, map[int][]int{0: {200, 100}})

	clock := &fakeClock{t: time.Now(), step: 3 * time.Second}
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)

	go func() {
		done <- r.node.Run(clock.now, tick, sig)
	}()

	// The pass leaves the node idle and past the minimum-awake window, so
	// Run enters the suspension; the injected edge wakes it. Run reads the
	// clock itself, the tick value is unused.
	tick <- time.Time{}
	r.reader.EventCh <- gpio.WakeEvent{Source: gpio.SourceDoor}

	sig <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := r.tracker.Snapshot().Wakes; got != 1 {
		t.Errorf("Wakes = %d, want 1", got)
	}
	var shutdown bool
	for _, ev := range r.pub.SystemEvents {
		if ev.Event == "SHUTDOWN" && ev.Reason == "SIGTERM" {
			shutdown = true
		}
	}
	if !shutdown {
		t.Error("shutdown event not published")
	}
}
