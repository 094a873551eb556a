// Package gpio provides digital line access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import (
	"time"

	"github.com/dhoward/airnode/internal/trigger"
)

// Reader reads the wake-capable binary inputs.
type Reader interface {
	// Read returns the logical states of the door and motion inputs.
	// Door is true when open, motion is true while presence is detected.
	Read() (door, motion bool, err error)

	// Events delivers edge transitions on the wake inputs; the channel
	// is what interrupts the long low-power suspension.
	Events() <-chan WakeEvent

	// Close releases GPIO resources.
	Close() error
}

// Buzzer drives the alarm sounder. The two tones map to the sounder
// module's two drive lines.
type Buzzer interface {
	// SetTone selects the sounding tone; ToneOff silences the buzzer.
	SetTone(t trigger.Tone) error

	// Close silences the buzzer and releases its lines.
	Close() error
}

// WakeSource identifies which input produced a wake event.
type WakeSource int

const (
	SourceDoor WakeSource = iota
	SourceMotion
)

// WakeEvent is one edge transition on a wake input.
type WakeEvent struct {
	Source WakeSource
	Rising bool
	Time   time.Time
}

// Pin definitions (BCM numbering).
const (
	DefaultPinDoor     = 26
	DefaultPinMotion   = 16
	DefaultPinToneLow  = 5
	DefaultPinToneHigh = 6
)
