//go:build !linux

package adc

import "errors"

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(busName string, addr uint16) (*RealReader, error) {
	return nil, errors.New("adc: not supported on this platform (requires Linux)")
}

// ReadRaw is not implemented on non-Linux platforms.
func (r *RealReader) ReadRaw(channel int) (int, error) {
	return 0, errors.New("adc: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
