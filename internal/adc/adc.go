// Package adc provides analog input reading with hardware abstraction.
// The real implementation talks to an ADS1115-style converter over I2C.
// The fake implementation allows testing without hardware.
package adc

import "time"

// Reader reads one raw analog value from a physical input channel.
type Reader interface {
	// ReadRaw returns the current ADC code for the given channel,
	// scaled into the node's 10-bit code space (0..1023).
	ReadRaw(channel int) (int, error)

	// Close releases converter resources.
	Close() error
}

// Default sampling parameters. Five reads 5ms apart keeps one averaged
// sample under 25ms of blocking time on the cooperative loop.
const (
	DefaultSampleCount    = 5
	DefaultSampleInterval = 5 * time.Millisecond
)

// Sampler averages a fixed number of raw reads over fixed delays.
//
// Sampling blocks the calling goroutine for roughly count*interval; the
// node's tick loop is cooperative, so callers budget that time against the
// alarm tone cadence and phase timing. There is no error filtering beyond
// the converter's own: a disconnected input reads a valid but meaningless
// voltage.
type Sampler struct {
	reader   Reader
	count    int
	interval time.Duration
	sleep    func(time.Duration)
}

// NewSampler creates a sampler over the given reader. count <= 0 and
// interval <= 0 fall back to the defaults. The sleep function is injectable
// for tests; pass nil for time.Sleep.
func NewSampler(reader Reader, count int, interval time.Duration, sleep func(time.Duration)) *Sampler {
	if count <= 0 {
		count = DefaultSampleCount
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Sampler{reader: reader, count: count, interval: interval, sleep: sleep}
}

// Sample takes count raw reads spaced by the configured interval and
// returns the truncating integer mean. A read error aborts the sample;
// the caller skips this tick and retries on the next one.
func (s *Sampler) Sample(channel int) (int, error) {
	sum := 0
	for i := 0; i < s.count; i++ {
		if i > 0 {
			s.sleep(s.interval)
		}
		raw, err := s.reader.ReadRaw(channel)
		if err != nil {
			return 0, err
		}
		sum += raw
	}
	return sum / s.count, nil
}

// BlockingTime reports how long one Sample call occupies the loop.
func (s *Sampler) BlockingTime() time.Duration {
	return time.Duration(s.count-1) * s.interval
}
