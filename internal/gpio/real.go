//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/dhoward/airnode/internal/trigger"
)

// RealReader reads the door and motion inputs using the Linux GPIO
// character device and surfaces their edges as wake events.
type RealReader struct {
	chip      *gpiocdev.Chip
	doorPin   *gpiocdev.Line
	motionPin *gpiocdev.Line
	events    chan WakeEvent
}

// NewRealReader requests the door and motion lines with edge detection.
// The door reed switch is normally closed: raw high means the door is open.
func NewRealReader(pinDoor, pinMotion int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip, events: make(chan WakeEvent, 8)}

	doorLine, err := chip.RequestLine(pinDoor,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handler(SourceDoor)))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request door pin %d: %w", pinDoor, err)
	}
	r.doorPin = doorLine

	motionLine, err := chip.RequestLine(pinMotion,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(r.handler(SourceMotion)))
	if err != nil {
		doorLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request motion pin %d: %w", pinMotion, err)
	}
	r.motionPin = motionLine

	return r, nil
}

func (r *RealReader) handler(src WakeSource) func(gpiocdev.LineEvent) {
	return func(evt gpiocdev.LineEvent) {
		e := WakeEvent{
			Source: src,
			Rising: evt.Type == gpiocdev.LineEventRisingEdge,
			Time:   time.Now(),
		}
		select {
		case r.events <- e:
		default:
			// The loop is behind; dropping an edge is fine, the level
			// read next tick still sees the state.
		}
	}
}

// Read returns the logical door and motion states.
func (r *RealReader) Read() (bool, bool, error) {
	doorRaw, err := r.doorPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read door pin: %w", err)
	}
	motionRaw, err := r.motionPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read motion pin: %w", err)
	}
	// Door: normally-closed reed to ground, high = open.
	return doorRaw != 0, motionRaw != 0, nil
}

// Events returns the wake event channel.
func (r *RealReader) Events() <-chan WakeEvent {
	return r.events
}

// Close releases GPIO resources.
// Reconfigures pins to plain inputs (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error
	for _, line := range []*gpiocdev.Line{r.doorPin, r.motionPin} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealBuzzer drives the two-tone sounder module over two output lines.
type RealBuzzer struct {
	chip     *gpiocdev.Chip
	lowLine  *gpiocdev.Line
	highLine *gpiocdev.Line
}

// NewRealBuzzer requests the sounder's tone lines as outputs, silent.
func NewRealBuzzer(pinToneLow, pinToneHigh int) (*RealBuzzer, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	lowLine, err := chip.RequestLine(pinToneLow, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request tone-low pin %d: %w", pinToneLow, err)
	}
	highLine, err := chip.RequestLine(pinToneHigh, gpiocdev.AsOutput(0))
	if err != nil {
		lowLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request tone-high pin %d: %w", pinToneHigh, err)
	}
	return &RealBuzzer{chip: chip, lowLine: lowLine, highLine: highLine}, nil
}

// SetTone drives the line matching the tone and silences the other.
func (b *RealBuzzer) SetTone(t trigger.Tone) error {
	low, high := 0, 0
	switch t {
	case trigger.ToneLow:
		low = 1
	case trigger.ToneHigh:
		high = 1
	}
	if err := b.lowLine.SetValue(low); err != nil {
		return fmt.Errorf("set tone-low line: %w", err)
	}
	if err := b.highLine.SetValue(high); err != nil {
		return fmt.Errorf("set tone-high line: %w", err)
	}
	return nil
}

// Close silences the buzzer and releases its lines.
func (b *RealBuzzer) Close() error {
	var errs []error
	if err := b.SetTone(trigger.ToneOff); err != nil {
		errs = append(errs, err)
	}
	for _, line := range []*gpiocdev.Line{b.lowLine, b.highLine} {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tone line: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
