package trigger

import "time"

// Alarm defaults.
const (
	DefaultSuppressWindow = 30 * time.Second
	DefaultTestDuration   = 10 * time.Second
	DefaultToneInterval   = 800 * time.Millisecond
)

// Tone identifies which of the two alarm tones is sounding.
type Tone int

const (
	ToneOff Tone = iota
	ToneLow
	ToneHigh
)

// Alarm arbitrates the audible alarm output. On top of the reason mask it
// supports a manual reset with a retrigger-suppression window, a test mode
// that sounds the alarm with no real reason active, and the two-tone
// cadence driven once per scheduler tick.
type Alarm struct {
	arb Arbiter

	suppressWindow time.Duration
	suppressUntil  time.Time
	suppressMask   Reason

	testDuration time.Duration
	testUntil    time.Time
	testRunning  bool

	toneInterval time.Duration
	tone         Tone
	lastToggle   time.Time
}

// NewAlarm creates an alarm arbiter with the given windows; zero values
// fall back to the defaults.
func NewAlarm(suppressWindow, testDuration, toneInterval time.Duration) *Alarm {
	if suppressWindow <= 0 {
		suppressWindow = DefaultSuppressWindow
	}
	if testDuration <= 0 {
		testDuration = DefaultTestDuration
	}
	if toneInterval <= 0 {
		toneInterval = DefaultToneInterval
	}
	return &Alarm{
		suppressWindow: suppressWindow,
		testDuration:   testDuration,
		toneInterval:   toneInterval,
	}
}

// RequestActive sets a reason, unless that reason is inside the suppression
// window armed by a manual reset. Returns true on the Inactive->Active edge.
func (a *Alarm) RequestActive(r Reason, now time.Time) bool {
	if now.Before(a.suppressUntil) && a.suppressMask&r != 0 {
		return false
	}
	if a.arb.RequestActive(r, now) {
		a.startSounding(now)
		return true
	}
	return false
}

// RequestInactive clears a reason. Returns true on the Active->Inactive
// edge. A running test keeps the sound on even when the mask empties.
func (a *Alarm) RequestInactive(r Reason) bool {
	if a.arb.RequestInactive(r) {
		if a.testRunning {
			return false
		}
		a.stopSounding()
		return true
	}
	return false
}

// ManualReset forces the output Inactive immediately and arms the
// suppression window: the reasons that were active now stay ignored until
// the window elapses. Reasons not involved in this reset pass through
// unhindered, and the suppressed ones re-arm once the window ends.
func (a *Alarm) ManualReset(now time.Time) {
	a.suppressMask = a.arb.Mask()
	a.suppressUntil = now.Add(a.suppressWindow)
	a.arb.RequestInactive(a.suppressMask)
	a.testRunning = false
	a.stopSounding()
}

// StartTest enters test mode: the alarm sounds for the test duration and
// then deactivates on its own. Test mode is only entered when no real
// reason is active; with a live trigger the request is ignored.
func (a *Alarm) StartTest(now time.Time) bool {
	if a.arb.Mask() != 0 || a.testRunning {
		return false
	}
	a.testRunning = true
	a.testUntil = now.Add(a.testDuration)
	a.startSounding(now)
	return true
}

// TestRunning reports whether test mode is active.
func (a *Alarm) TestRunning() bool {
	return a.testRunning
}

// Sounding reports whether the alarm output is audible: mask non-zero or a
// test run in progress.
func (a *Alarm) Sounding() bool {
	return a.arb.Active() || a.testRunning
}

// Mask returns the current reason mask.
func (a *Alarm) Mask() Reason {
	return a.arb.Mask()
}

// Tick drives the time-based behavior once per scheduler tick: expiring the
// test run and alternating the two tones at the configured cadence. It
// returns the tone the output should be driven with; ToneOff when silent.
func (a *Alarm) Tick(now time.Time) Tone {
	if a.testRunning && !now.Before(a.testUntil) {
		a.testRunning = false
		if !a.arb.Active() {
			a.stopSounding()
		}
	}

	if !a.Sounding() {
		return ToneOff
	}

	if now.Sub(a.lastToggle) >= a.toneInterval {
		if a.tone == ToneLow {
			a.tone = ToneHigh
		} else {
			a.tone = ToneLow
		}
		a.lastToggle = now
	}
	return a.tone
}

func (a *Alarm) startSounding(now time.Time) {
	a.tone = ToneLow
	a.lastToggle = now
}

func (a *Alarm) stopSounding() {
	a.tone = ToneOff
}
