package gpio

import (
	"errors"

	"github.com/dhoward/airnode/internal/trigger"
)

// FakeReader is a test double that returns scripted input states.
type FakeReader struct {
	// Samples contains scripted (door, motion) values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// EventCh lets tests inject wake events.
	EventCh chan WakeEvent

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read().
	ReadError error
}

// Sample represents a single reading of the wake inputs.
type Sample struct {
	Door   bool // true = open
	Motion bool // true = presence
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples, EventCh: make(chan WakeEvent, 8)}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.Door, sample.Motion, nil
}

// Events returns the injectable event channel.
func (f *FakeReader) Events() <-chan WakeEvent {
	return f.EventCh
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeBuzzer records the tones it was driven with.
type FakeBuzzer struct {
	// Tones contains every tone passed to SetTone.
	Tones []trigger.Tone

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by SetTone.
	SetError error
}

// SetTone records the tone.
func (f *FakeBuzzer) SetTone(t trigger.Tone) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Tones = append(f.Tones, t)
	return nil
}

// Current returns the last tone set, or ToneOff if none.
func (f *FakeBuzzer) Current() trigger.Tone {
	if len(f.Tones) == 0 {
		return trigger.ToneOff
	}
	return f.Tones[len(f.Tones)-1]
}

// Close marks the buzzer as closed.
func (f *FakeBuzzer) Close() error {
	f.Closed = true
	return nil
}
