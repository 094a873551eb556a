package node

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/dhoward/airnode/internal/gpio"
	"github.com/dhoward/airnode/internal/schedule"
	"github.com/dhoward/airnode/internal/status"
	"github.com/dhoward/airnode/internal/transport"
)

// eventSuspender parks the loop until the timer fires or a wake-capable
// input edges. This stands in for the MCU's low-power sleep; the kernel
// keeps the process blocked with nothing scheduled.
type eventSuspender struct {
	events <-chan gpio.WakeEvent
}

func (e *eventSuspender) Suspend(max time.Duration) schedule.WakeReason {
	timer := time.NewTimer(max)
	defer timer.Stop()
	select {
	case ev := <-e.events:
		log.Printf("woken by %v edge", ev.Source)
		return schedule.WakeSignal
	case <-timer.C:
		return schedule.WakeTimeout
	}
}

// Run drives the cooperative loop until a termination signal arrives.
// Every state mutation happens on this goroutine.
func (n *Node) Run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var events <-chan gpio.WakeEvent
	if n.deps.Reader != nil {
		events = n.deps.Reader.Events()
	}
	susp := &eventSuspender{events: events}

	heartbeat := schedule.NewUpdater(n.cfg.Heartbeat, 0)
	heartbeat.MarkSampled() // startup event already went out; first beat after a full interval
	prev := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			n.publishShutdown(now(), signalName(s))
			return nil

		case ev := <-events:
			// An input edged while awake; run a pass immediately so the
			// transition publishes without waiting for the next tick.
			log.Printf("input edge: %v", ev.Source)
			t := now()
			n.Tick(t, t.Sub(prev))
			prev = t

		case <-tick:
			t := now()
			elapsed := t.Sub(prev)
			n.Tick(t, elapsed)
			prev = t

			if n.cfg.Heartbeat > 0 {
				heartbeat.Advance(elapsed)
				if heartbeat.Due() {
					heartbeat.MarkSampled()
					if heartbeat.ShouldPublish(true) {
						n.publishHeartbeat(t)
						heartbeat.MarkPublished()
					}
				}
			}

			if !n.sleepCtl.CanSleep(&n.sleepLock) {
				continue
			}

			reason, estimate := n.sleepCtl.Sleep(susp)
			t = now()
			if n.deps.Tracker != nil {
				n.deps.Tracker.CountWake()
			}
			log.Printf("awake after ~%v (%v)", estimate, reason)

			// The estimate, not the wall clock, advances the duration
			// accumulators. On a timeout wake it is exact; on a signal
			// wake it deliberately understates rather than overstates.
			n.Tick(t, estimate)
			if n.cfg.Heartbeat > 0 {
				heartbeat.Advance(estimate)
			}
			prev = t
		}
	}
}

func (n *Node) publishHeartbeat(t time.Time) {
	if n.deps.System == nil {
		return
	}
	event := transport.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
	if n.deps.Tracker != nil {
		snap := n.deps.Tracker.Snapshot()
		event.Payload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := n.deps.System.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (n *Node) publishShutdown(t time.Time, reason string) {
	if n.deps.System == nil {
		return
	}
	event := transport.SystemEvent{Timestamp: t, Event: "SHUTDOWN", Reason: reason}
	if n.deps.Tracker != nil {
		snap := n.deps.Tracker.Snapshot()
		event.Payload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := n.deps.System.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
