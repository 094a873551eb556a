// Package status provides a point-in-time view of node state for the
// lifecycle events published on the system topic (startup, heartbeat,
// shutdown). The loop updates the tracker; formatting is read-only.
package status

import (
	"sync"
	"time"
)

// ChannelStatus is one sensor channel's last known state.
type ChannelStatus struct {
	Name   string
	Value  string
	Ro     float64
	Misses int
}

// Config contains node configuration for display.
type Config struct {
	NodeID     int
	PollMs     int64
	Broker     string
	SerialPort string
}

// Snapshot is a point-in-time view of node state.
// It is a value type - safe to use after the lock is released.
type Snapshot struct {
	StartTime time.Time
	Now       time.Time

	AlarmMask   uint32
	SleepMask   uint32
	Sounding    bool
	TestRunning bool
	DutyPhase   string

	Channels  []ChannelStatus
	Published int
	Dropped   int
	Wakes     int

	Config Config
}

// Uptime returns the duration since the node started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable node state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{snap: Snapshot{StartTime: startTime, Config: cfg}}
}

// Update replaces the arbitration and duty-cycle view.
func (t *Tracker) Update(alarmMask, sleepMask uint32, sounding, testRunning bool, dutyPhase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.AlarmMask = alarmMask
	t.snap.SleepMask = sleepMask
	t.snap.Sounding = sounding
	t.snap.TestRunning = testRunning
	t.snap.DutyPhase = dutyPhase
}

// SetChannel records one channel's last value and baseline.
func (t *Tracker) SetChannel(cs ChannelStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.snap.Channels {
		if t.snap.Channels[i].Name == cs.Name {
			t.snap.Channels[i] = cs
			return
		}
	}
	t.snap.Channels = append(t.snap.Channels, cs)
}

// CountPublished increments the delivered-value counter.
func (t *Tracker) CountPublished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Published++
}

// CountDropped increments the undelivered-value counter.
func (t *Tracker) CountDropped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Dropped++
}

// CountWake increments the suspension wake counter.
func (t *Tracker) CountWake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Wakes++
}

// Snapshot returns a copy of the current state stamped with now.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := t.snap
	snap.Now = time.Now()
	snap.Channels = append([]ChannelStatus(nil), t.snap.Channels...)
	return snap
}
