// Package store provides fixed-offset byte storage for persisted calibration
// records, modeled on an EEPROM: a small addressable image read and written
// in place. The real implementation is file-backed; the fake keeps the image
// in memory for tests.
package store

import "errors"

// DefaultSize is the size of the storage image in bytes. Generous for the
// per-channel record map in the calib package.
const DefaultSize = 512

// ErrOutOfRange indicates a read or write beyond the storage image.
var ErrOutOfRange = errors.New("store: offset out of range")

// Store reads and writes bytes at fixed offsets.
//
// Offsets are part of the node's persistence contract: a record written at
// an offset by one firmware version must be readable at the same offset by
// the next, so callers never compute offsets dynamically.
type Store interface {
	// ReadAt fills p with the bytes at off.
	ReadAt(p []byte, off int64) error

	// WriteAt stores p at off, overwriting in place.
	WriteAt(p []byte, off int64) error

	// Close flushes and releases the backing resource.
	Close() error
}
