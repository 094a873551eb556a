// Package node wires the sensors, arbiters, and transport into the
// cooperative run-to-completion loop. One logical tick checks and acts on
// every enabled component in a fixed order; there is no preemption within
// a tick, so component state needs no locking.
package node

import (
	"log"
	"strconv"
	"time"

	"github.com/dhoward/airnode/internal/calib"
	"github.com/dhoward/airnode/internal/config"
	"github.com/dhoward/airnode/internal/dutycycle"
	"github.com/dhoward/airnode/internal/gascurve"
	"github.com/dhoward/airnode/internal/gpio"
	"github.com/dhoward/airnode/internal/schedule"
	"github.com/dhoward/airnode/internal/status"
	"github.com/dhoward/airnode/internal/transport"
	"github.com/dhoward/airnode/internal/trigger"
)

// Sampler is the analog sampling capability the node needs.
type Sampler interface {
	Sample(channel int) (int, error)
}

// Deps are the node's constructed collaborators. Publisher may be wrapped
// in a retrier; System and Receiver point at the bare transport when it
// offers those capabilities.
type Deps struct {
	Sampler    Sampler
	Calibrator *calib.Calibrator
	Reader     gpio.Reader
	Buzzer     gpio.Buzzer
	Publisher  transport.Publisher
	System     transport.SystemPublisher
	Receiver   transport.Receiver
	Actuator   dutycycle.Actuator
	Tracker    *status.Tracker
}

// gasChannel is the loop state of one continuously-sampled gas channel.
type gasChannel struct {
	cfg       config.GasChannelConfig
	ro        float64
	updater   *schedule.Updater
	lastValue string
	reason    trigger.Reason
}

// binarySensor is the loop state of a door or motion input.
type binarySensor struct {
	cfg       config.BinarySensorConfig
	reason    trigger.Reason
	updater   *schedule.Updater
	lastState bool
	published bool
}

// Node is the arbitration-and-duty-cycle engine.
type Node struct {
	cfg  *config.Config
	deps Deps

	alarm     *trigger.Alarm
	sleepLock trigger.SleepLock
	sleepCtl  *schedule.SleepController

	channels []*gasChannel
	duty     *dutycycle.Controller
	dutyCh   *gasChannel

	door   *binarySensor
	motion *binarySensor

	lastTone trigger.Tone
	commands chan transport.Command
}

// binaryRefreshInterval paces the stale counting of door/motion values; a
// forced refresh goes out after MissCap quiet intervals.
const binaryRefreshInterval = 30 * time.Second

// New builds the node from a validated configuration. The configuration's
// capability set decides which components exist at all.
func New(cfg *config.Config, deps Deps) *Node {
	n := &Node{
		cfg:  cfg,
		deps: deps,
		alarm: trigger.NewAlarm(cfg.Alarm.SuppressWindow,
			cfg.Alarm.TestDuration, cfg.Alarm.ToneInterval),
		sleepCtl: schedule.NewSleepController(cfg.Sleep.MinAwake, cfg.Sleep.MaxSleep),
		commands: make(chan transport.Command, 8),
	}

	for _, g := range cfg.Gas {
		if !g.Enabled {
			continue
		}
		n.channels = append(n.channels, &gasChannel{
			cfg:     g,
			updater: schedule.NewUpdater(g.UpdateInterval, g.MissCap),
			reason:  alarmReason(g.Gas),
		})
	}

	if cfg.Duty.Enabled && deps.Actuator != nil {
		n.duty = dutycycle.New(dutycycle.Config{
			HeatDuration:    cfg.Duty.HeatDuration,
			SettleDuration:  cfg.Duty.SettleDuration,
			HeatLevel:       cfg.Duty.HeatLevel,
			ADCChannel:      cfg.Duty.ADCChannel,
			LoadKOhm:        cfg.Duty.LoadKOhm,
			Sensor:          cfg.Duty.Sensor,
			Gas:             cfg.Duty.Gas,
			DeactivateBelow: cfg.Duty.DeactivateBelow,
		}, deps.Sampler, deps.Actuator)
		n.dutyCh = &gasChannel{
			updater: schedule.NewUpdater(cfg.Duty.HeatDuration, 0),
			reason:  alarmReason(cfg.Duty.Gas),
		}
	}

	if cfg.Door.Enabled {
		n.door = &binarySensor{
			cfg:     cfg.Door,
			reason:  trigger.ReasonDoor,
			updater: schedule.NewUpdater(binaryRefreshInterval, 0),
		}
	}
	if cfg.Motion.Enabled {
		n.motion = &binarySensor{
			cfg:     cfg.Motion,
			reason:  trigger.ReasonMotion,
			updater: schedule.NewUpdater(binaryRefreshInterval, 0),
		}
	}

	if deps.Receiver != nil {
		deps.Receiver.OnCommand(n.enqueueCommand)
	}

	return n
}

// alarmReason maps a gas to its alarm reason bit. Smoke gets its own bit;
// everything else shares the generic gas bit.
func alarmReason(g gascurve.Gas) trigger.Reason {
	if g == gascurve.GasSmoke {
		return trigger.ReasonSmoke
	}
	return trigger.ReasonGas
}

// Startup restores or derives every channel's baseline and arms the duty
// cycle. Blocking calibration is acceptable here; the loop has not started.
func (n *Node) Startup(force bool) error {
	for _, ch := range n.channels {
		ro, err := n.deps.Calibrator.LoadOrCalibrate(calib.Channel{
			Slot:           ch.cfg.Slot,
			ADCChannel:     ch.cfg.ADCChannel,
			LoadKOhm:       ch.cfg.LoadKOhm,
			CleanAirFactor: ch.cfg.CleanAirFactor,
		}, force)
		if err != nil {
			return err
		}
		ch.ro = ro
		log.Printf("channel %s: baseline Ro=%.3f kOhm", ch.cfg.Name, ro)
	}

	if n.duty != nil {
		ro, err := n.deps.Calibrator.LoadOrCalibrate(calib.Channel{
			Slot:           n.cfg.Duty.Slot,
			ADCChannel:     n.cfg.Duty.ADCChannel,
			LoadKOhm:       n.cfg.Duty.LoadKOhm,
			CleanAirFactor: n.cfg.Duty.CleanAirFactor,
		}, force)
		if err != nil {
			return err
		}
		n.dutyCh.ro = ro
		n.duty.SetBaseline(ro)
		n.duty.SetEnabled(true)
		log.Printf("duty channel: baseline Ro=%.3f kOhm", ro)
	}
	return nil
}

// CalibrateDutyLevel runs the actuator sweep and installs the low duty
// level; called at startup when the duty sensor is enabled.
func (n *Node) CalibrateDutyLevel() error {
	if n.duty == nil {
		return nil
	}
	level, err := dutycycle.CalibrateDutyLevel(n.deps.Actuator, n.deps.Sampler, dutycycle.SweepConfig{
		FeedbackChannel: n.cfg.Duty.FeedbackChannel,
		TargetRaw:       n.cfg.Duty.TargetRaw,
	}, nil)
	if err != nil {
		return err
	}
	log.Printf("duty channel: low level %d", level)
	n.duty = dutycycle.New(dutycycle.Config{
		HeatDuration:    n.cfg.Duty.HeatDuration,
		SettleDuration:  n.cfg.Duty.SettleDuration,
		HeatLevel:       n.cfg.Duty.HeatLevel,
		LowLevel:        level,
		ADCChannel:      n.cfg.Duty.ADCChannel,
		LoadKOhm:        n.cfg.Duty.LoadKOhm,
		Sensor:          n.cfg.Duty.Sensor,
		Gas:             n.cfg.Duty.Gas,
		DeactivateBelow: n.cfg.Duty.DeactivateBelow,
	}, n.deps.Sampler, n.deps.Actuator)
	n.duty.SetBaseline(n.dutyCh.ro)
	n.duty.SetEnabled(true)
	return nil
}

// Alarm exposes the alarm arbiter for tests and lifecycle snapshots.
func (n *Node) Alarm() *trigger.Alarm {
	return n.alarm
}

// SleepLock exposes the sleep-lock arbiter.
func (n *Node) SleepLock() *trigger.SleepLock {
	return &n.sleepLock
}

// SleepController exposes the sleep controller.
func (n *Node) SleepController() *schedule.SleepController {
	return n.sleepCtl
}

// enqueueCommand hands a remote command to the loop. Commands are applied
// at the start of the next tick, preserving single-writer state access.
func (n *Node) enqueueCommand(cmd transport.Command) {
	select {
	case n.commands <- cmd:
	default:
		log.Printf("command queue full, dropping %v", cmd.Type)
	}
}

// HandleCommand applies one remote command. Runs on the loop goroutine.
func (n *Node) HandleCommand(cmd transport.Command, now time.Time) {
	switch cmd.Type {
	case transport.CommandSetAlarm:
		if cmd.Value {
			n.alarm.RequestActive(trigger.ReasonRemote, now)
		} else {
			n.alarm.RequestInactive(trigger.ReasonRemote)
		}
	case transport.CommandManualReset:
		n.alarm.ManualReset(now)
	case transport.CommandAlarmTest:
		if !n.alarm.StartTest(now) {
			log.Printf("alarm test refused: reasons active (mask %b)", n.alarm.Mask())
		}
	case transport.CommandCalibrate:
		if err := n.Startup(true); err != nil {
			log.Printf("operator recalibration failed: %v", err)
		}
	}
}

// Tick runs one pass of every component. elapsed is the wall time since
// the previous pass: the poll interval normally, the sleep estimate after
// a suspension.
func (n *Node) Tick(now time.Time, elapsed time.Duration) {
	// Remote commands first, so a set-alarm lands before arbitration.
	for {
		select {
		case cmd := <-n.commands:
			n.HandleCommand(cmd, now)
			continue
		default:
		}
		break
	}

	n.advanceTimers(elapsed)

	if n.duty != nil {
		n.tickDuty(now)
	}
	for _, ch := range n.channels {
		n.tickGasChannel(ch, now)
	}
	if n.door != nil {
		n.tickBinary(n.door, now, true)
	}
	if n.motion != nil {
		n.tickBinary(n.motion, now, false)
	}

	// The alarm must keep the processor awake while it sounds; the tone
	// cadence is driven from this loop.
	if n.alarm.Sounding() {
		n.sleepLock.Lock(trigger.ReasonAlarm, now)
	} else {
		n.sleepLock.Unlock(trigger.ReasonAlarm)
	}

	tone := n.alarm.Tick(now)
	if tone != n.lastTone {
		if err := n.deps.Buzzer.SetTone(tone); err != nil {
			log.Printf("buzzer error: %v", err)
		}
		n.lastTone = tone
	}

	if n.deps.Tracker != nil {
		phase := ""
		if n.duty != nil {
			phase = n.duty.Phase().String()
		}
		n.deps.Tracker.Update(uint32(n.alarm.Mask()), uint32(n.sleepLock.Mask()),
			n.alarm.Sounding(), n.alarm.TestRunning(), phase)
	}
}

// advanceTimers feeds elapsed time to every duration accumulator. After a
// wake this is the estimated sleep time; phase and tone timers never span
// a suspension because their activity holds the sleep lock.
func (n *Node) advanceTimers(elapsed time.Duration) {
	n.sleepCtl.Advance(elapsed)
	for _, ch := range n.channels {
		ch.updater.Advance(elapsed)
	}
	if n.dutyCh != nil {
		n.dutyCh.updater.Advance(elapsed)
	}
	if n.door != nil {
		n.door.updater.Advance(elapsed)
	}
	if n.motion != nil {
		n.motion.updater.Advance(elapsed)
	}
}

// tickDuty advances the phased sensor and handles its readings.
func (n *Node) tickDuty(now time.Time) {
	reading, err := n.duty.Tick(now)

	// A cycle in flight forbids the long suspension: sleeping would
	// stretch a timed phase arbitrarily.
	if n.duty.Busy() {
		n.sleepLock.Lock(trigger.ReasonDutyCycle, now)
	} else {
		n.sleepLock.Unlock(trigger.ReasonDutyCycle)
	}

	if err != nil {
		// A completed cycle can report a reading and a power-down fault
		// together; the reading is still good.
		log.Printf("duty cycle: %v", err)
	}
	if reading == nil {
		return
	}

	value := formatValue(reading.Concentration)
	name := transport.ChannelName(n.cfg.Duty.TransportID)
	n.applyThreshold(n.dutyCh, reading.Concentration, n.cfg.Duty.AlarmThreshold, now)
	n.publishIfDue(n.dutyCh, n.cfg.Duty.TransportID, value, name)

	if n.deps.Tracker != nil {
		n.deps.Tracker.SetChannel(status.ChannelStatus{
			Name:   name,
			Value:  n.dutyCh.lastValue,
			Ro:     n.dutyCh.ro,
			Misses: n.dutyCh.updater.Misses(),
		})
	}
}

// tickGasChannel samples one plain channel when due and handles the value.
func (n *Node) tickGasChannel(ch *gasChannel, now time.Time) {
	if !ch.updater.Due() {
		return
	}

	raw, err := n.deps.Sampler.Sample(ch.cfg.ADCChannel)
	if err != nil {
		// Transient read fault: the updater stays due, so the channel is
		// re-sampled on the very next tick instead of waiting out a full
		// update interval.
		log.Printf("channel %s: read error: %v", ch.cfg.Name, err)
		return
	}
	ch.updater.MarkSampled()
	conc := gascurve.Concentration(raw, ch.cfg.LoadKOhm, ch.ro, ch.cfg.Sensor, ch.cfg.Gas)

	n.applyThreshold(ch, conc, ch.cfg.AlarmThreshold, now)
	n.publishIfDue(ch, ch.cfg.TransportID, formatValue(conc), ch.cfg.Name)

	if n.deps.Tracker != nil {
		n.deps.Tracker.SetChannel(status.ChannelStatus{
			Name:   ch.cfg.Name,
			Value:  ch.lastValue,
			Ro:     ch.ro,
			Misses: ch.updater.Misses(),
		})
	}
}

// applyThreshold drives the channel's alarm reason from the concentration.
func (n *Node) applyThreshold(ch *gasChannel, conc, threshold float64, now time.Time) {
	if threshold <= 0 {
		return
	}
	if conc >= threshold {
		n.alarm.RequestActive(ch.reason, now)
	} else {
		n.alarm.RequestInactive(ch.reason)
	}
}

// publishIfDue applies the changed-or-stale rule and the bounded-retry
// publish. Delivery failure keeps the previous value for the next
// comparison; missed updates are not queued.
func (n *Node) publishIfDue(ch *gasChannel, transportID int, value, name string) {
	changed := value != ch.lastValue
	if !ch.updater.ShouldPublish(changed) {
		return
	}
	if err := n.deps.Publisher.Publish(transportID, value); err != nil {
		log.Printf("channel %s: %v", name, err)
		if n.deps.Tracker != nil {
			n.deps.Tracker.CountDropped()
		}
		return
	}
	ch.lastValue = value
	ch.updater.MarkPublished()
	if n.deps.Tracker != nil {
		n.deps.Tracker.CountPublished()
	}
}

// tickBinary reads the door or motion input and publishes transitions. A
// transition holds the sleep lock with the input's reason bit until it got
// out, so the suspension cannot swallow the publish retry.
func (n *Node) tickBinary(b *binarySensor, now time.Time, isDoor bool) {
	door, motion, err := n.deps.Reader.Read()
	if err != nil {
		log.Printf("input read error: %v", err)
		return
	}
	state := motion
	if isDoor {
		state = door
	}

	changed := state != b.lastState || !b.published
	if changed {
		n.sleepLock.Lock(b.reason, now)
	} else {
		if !b.updater.Due() {
			return
		}
		b.updater.MarkSampled()
		if !b.updater.ShouldPublish(false) {
			return
		}
	}

	if err := n.deps.Publisher.Publish(b.cfg.TransportID, boolValue(state)); err != nil {
		log.Printf("binary publish error: %v", err)
		if n.deps.Tracker != nil {
			n.deps.Tracker.CountDropped()
		}
		return
	}
	b.lastState = state
	b.published = true
	b.updater.MarkPublished()
	n.sleepLock.Unlock(b.reason)
	if n.deps.Tracker != nil {
		n.deps.Tracker.CountPublished()
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
