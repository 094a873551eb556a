package schedule

import (
	"time"

	"github.com/dhoward/airnode/internal/trigger"
)

// Sleep defaults.
const (
	DefaultMinAwake = 2 * time.Second
	DefaultMaxSleep = 2 * time.Minute
)

// WakeReason says why a suspension ended.
type WakeReason int

const (
	// WakeTimeout means the full sleep duration elapsed.
	WakeTimeout WakeReason = iota
	// WakeSignal means an edge-triggered input (door, motion) woke the
	// processor early.
	WakeSignal
)

// Suspender performs the long low-power suspension. The real implementation
// blocks on a timer and the wake inputs; tests script the reason.
type Suspender interface {
	Suspend(max time.Duration) WakeReason
}

// SleepController decides when the device may enter the long suspension and
// estimates how long it actually slept.
//
// Real elapsed time is not observable across the suspension boundary on the
// target hardware: a timeout wake slept the full duration, but a signal
// wake could have come at any point. The controller keeps the source's
// documented approximation for the signal case, a quarter of the requested
// duration, rather than guessing a fix.
type SleepController struct {
	minAwake time.Duration
	maxSleep time.Duration
	awake    time.Duration
}

// NewSleepController creates a controller; non-positive values fall back to
// the defaults.
func NewSleepController(minAwake, maxSleep time.Duration) *SleepController {
	if minAwake <= 0 {
		minAwake = DefaultMinAwake
	}
	if maxSleep <= 0 {
		maxSleep = DefaultMaxSleep
	}
	return &SleepController{minAwake: minAwake, maxSleep: maxSleep}
}

// Advance adds awake time since the last wake.
func (s *SleepController) Advance(d time.Duration) {
	s.awake += d
}

// CanSleep reports whether the suspension may begin: the sleep-lock mask
// must be empty and the minimum awake interval elapsed since the last wake.
// A held lock forbids sleep regardless of the awake timer.
func (s *SleepController) CanSleep(lock *trigger.SleepLock) bool {
	if lock.Locked() {
		return false
	}
	return s.awake >= s.minAwake
}

// Sleep runs the suspension and returns the estimated time asleep: the full
// duration on timeout, a quarter of it on a signal wake.
func (s *SleepController) Sleep(susp Suspender) (WakeReason, time.Duration) {
	reason := susp.Suspend(s.maxSleep)
	s.awake = 0
	if reason == WakeTimeout {
		return reason, s.maxSleep
	}
	return reason, s.maxSleep / 4
}

// MaxSleep returns the configured suspension duration.
func (s *SleepController) MaxSleep() time.Duration {
	return s.maxSleep
}

// FakeSuspender scripts wake reasons for tests and records requested
// durations.
type FakeSuspender struct {
	// Reasons are returned in order; the last repeats when exhausted.
	Reasons []WakeReason
	// Requested records the duration passed to each call.
	Requested []time.Duration

	index int
}

// Suspend returns the next scripted wake reason.
func (f *FakeSuspender) Suspend(max time.Duration) WakeReason {
	f.Requested = append(f.Requested, max)
	if len(f.Reasons) == 0 {
		return WakeTimeout
	}
	r := f.Reasons[f.index]
	if f.index < len(f.Reasons)-1 {
		f.index++
	}
	return r
}
