// Package schedule contains the thin timing glue of the node: per-sensor
// update accumulators deciding when to re-sample and re-publish, and the
// sleep controller gating the long low-power suspension. Pure logic, time
// advances only through explicit Advance calls so the post-wake estimate
// (see SleepController) feeds the same path as ordinary ticks.
package schedule

import "time"

// DefaultMissCap forces a publish after this many unchanged readings, so a
// silent sensor still proves it is alive.
const DefaultMissCap = 10

// Updater gates one sensor's sampling and publishing.
type Updater struct {
	interval time.Duration
	elapsed  time.Duration
	missCap  int
	misses   int
}

// NewUpdater creates an updater that considers the sensor due every
// interval, with a forced publish after missCap unchanged readings
// (missCap <= 0 falls back to the default).
func NewUpdater(interval time.Duration, missCap int) *Updater {
	if missCap <= 0 {
		missCap = DefaultMissCap
	}
	// A fresh updater is immediately due so the first loop pass samples
	// everything once.
	return &Updater{interval: interval, elapsed: interval, missCap: missCap}
}

// Advance adds elapsed time to the accumulator. After a long suspension the
// node calls this with the estimated sleep duration.
func (u *Updater) Advance(d time.Duration) {
	u.elapsed += d
}

// Due reports whether the sensor should be re-sampled this tick.
func (u *Updater) Due() bool {
	return u.elapsed >= u.interval
}

// MarkSampled resets the sampling accumulator.
func (u *Updater) MarkSampled() {
	u.elapsed = 0
}

// ShouldPublish decides whether the new reading goes out: always when the
// value changed, otherwise only once the stale-read counter reaches its
// cap. Unchanged readings count as misses.
func (u *Updater) ShouldPublish(changed bool) bool {
	if changed {
		return true
	}
	u.misses++
	return u.misses >= u.missCap
}

// MarkPublished resets the stale-read counter after a successful publish.
// A failed publish skips this, so the next reading re-attempts.
func (u *Updater) MarkPublished() {
	u.misses = 0
}

// Misses returns the current stale-read count.
func (u *Updater) Misses() int {
	return u.misses
}
