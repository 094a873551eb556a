package adc

import "errors"

// FakeReader is a test double that returns scripted ADC codes per channel.
type FakeReader struct {
	// Samples contains scripted codes keyed by channel.
	// Each call to ReadRaw consumes the next code for that channel.
	Samples map[int][]int

	// index tracks current position per channel
	index map[int]int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by ReadRaw.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given per-channel samples.
func NewFakeReader(samples map[int][]int) *FakeReader {
	return &FakeReader{Samples: samples, index: make(map[int]int)}
}

// ReadRaw returns the next scripted code for the channel.
// If the channel's samples are exhausted, returns the last one repeatedly.
func (f *FakeReader) ReadRaw(channel int) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	samples := f.Samples[channel]
	if len(samples) == 0 {
		return 0, errors.New("no samples configured for channel")
	}

	i := f.index[channel]
	code := samples[i]
	if i < len(samples)-1 {
		f.index[channel] = i + 1
	}
	return code, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets every channel to the beginning of its samples.
func (f *FakeReader) Reset() {
	f.index = make(map[int]int)
	f.Closed = false
}
