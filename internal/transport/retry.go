package transport

import (
	"fmt"
	"time"
)

// Retry defaults.
const (
	DefaultRetryAttempts = 5
	DefaultRetryDelay    = 200 * time.Millisecond
)

// Retrier wraps a Publisher with a bounded retry loop. Exhaustion is not
// fatal: the caller logs it, keeps the previous published value for the
// next comparison, and the reading goes out again when it next changes or
// the stale counter fires. Missed updates are never queued.
type Retrier struct {
	pub      Publisher
	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
}

// NewRetrier wraps pub. attempts <= 0 and delay <= 0 fall back to the
// defaults; sleep is injectable for tests (nil for time.Sleep).
func NewRetrier(pub Publisher, attempts int, delay time.Duration, sleep func(time.Duration)) *Retrier {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Retrier{pub: pub, attempts: attempts, delay: delay, sleep: sleep}
}

// Publish attempts the underlying publish up to the configured count.
func (r *Retrier) Publish(channelID int, value string) error {
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			r.sleep(r.delay)
		}
		if err = r.pub.Publish(channelID, value); err == nil {
			return nil
		}
	}
	return fmt.Errorf("publish channel %d not delivered after %d attempts: %w", channelID, r.attempts, err)
}

// Close closes the underlying publisher.
func (r *Retrier) Close() error {
	return r.pub.Close()
}
