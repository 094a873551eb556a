// Package trigger contains pure arbitration logic for binary outputs that
// multiple independent conditions may hold active: the audible alarm and the
// sleep permission. This package has NO external dependencies (no GPIO,
// transport, OS, or time.Sleep). Time is always injectable via time.Time
// parameters.
//
// Each independent condition owns one reason bit. The output is active
// exactly while the mask is non-zero, so conditions come and go without
// coordinating with each other.
package trigger

import "time"

// Reason is one flag in a trigger mask identifying an independent cause
// requiring the output to stay active.
type Reason uint32

// Reason bits. Assignments are stable: they appear in logs and in the
// remote protocol.
const (
	ReasonDoor Reason = 1 << iota
	ReasonMotion
	ReasonGas
	ReasonSmoke
	ReasonRemote
	ReasonDutyCycle // phased sensor mid-cycle, must stay awake
	ReasonAlarm     // alarm sounding, loop must keep driving the tones
)

// Arbiter maintains a bitmask of active reasons and reports output edges.
// Setting an already-set reason and clearing an already-clear reason are
// both no-ops at the output level: clearing uses AND-NOT, not XOR, so a
// double clear can never flip a bit back on.
type Arbiter struct {
	mask        Reason
	active      bool
	activatedAt time.Time
}

// RequestActive ORs the reason into the mask. Returns true if this was the
// mask's first active bit, meaning the output just transitioned to Active.
func (a *Arbiter) RequestActive(r Reason, now time.Time) bool {
	a.mask |= r
	if a.mask != 0 && !a.active {
		a.active = true
		a.activatedAt = now
		return true
	}
	return false
}

// RequestInactive removes the reason from the mask. Returns true if the
// mask became zero, meaning the output just transitioned to Inactive.
func (a *Arbiter) RequestInactive(r Reason) bool {
	a.mask &^= r
	if a.mask == 0 && a.active {
		a.active = false
		return true
	}
	return false
}

// Active reports whether the output is currently active.
func (a *Arbiter) Active() bool {
	return a.active
}

// Mask returns the current reason mask.
func (a *Arbiter) Mask() Reason {
	return a.mask
}

// Has reports whether the given reason is currently set.
func (a *Arbiter) Has(r Reason) bool {
	return a.mask&r != 0
}

// ActivatedAt returns when the output last transitioned to Active.
func (a *Arbiter) ActivatedAt() time.Time {
	return a.activatedAt
}
