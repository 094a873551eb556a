package trigger

import "time"

// SleepLock arbitrates the device's permission to enter the long low-power
// suspension. It has no tones or side effects; its only observable output
// is whether sleep is currently forbidden.
type SleepLock struct {
	arb Arbiter
}

// Lock registers a reason the processor must stay awake.
// Returns true if this transition newly forbade sleep.
func (s *SleepLock) Lock(r Reason, now time.Time) bool {
	return s.arb.RequestActive(r, now)
}

// Unlock withdraws a stay-awake reason. Returns true if sleep just became
// permitted. Unlocking a reason that is not held is a no-op.
func (s *SleepLock) Unlock(r Reason) bool {
	return s.arb.RequestInactive(r)
}

// Locked reports whether any reason currently forbids sleep.
func (s *SleepLock) Locked() bool {
	return s.arb.Mask() != 0
}

// Mask returns the current reason mask.
func (s *SleepLock) Mask() Reason {
	return s.arb.Mask()
}

// Has reports whether the given reason currently holds the lock.
func (s *SleepLock) Has(r Reason) bool {
	return s.arb.Has(r)
}
