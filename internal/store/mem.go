package store

// MemStore is an in-memory Store for tests.
type MemStore struct {
	// Data is the storage image; inspectable by tests.
	Data []byte

	// Closed tracks if Close was called.
	Closed bool

	// ReadError and WriteError, if set, are returned by the
	// corresponding operations.
	ReadError  error
	WriteError error

	// Writes counts WriteAt calls.
	Writes int
}

// NewMemStore creates a zeroed in-memory store of the given size.
func NewMemStore(size int) *MemStore {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemStore{Data: make([]byte, size)}
}

// ReadAt fills p with the bytes at off.
func (s *MemStore) ReadAt(p []byte, off int64) error {
	if s.ReadError != nil {
		return s.ReadError
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.Data)) {
		return ErrOutOfRange
	}
	copy(p, s.Data[off:])
	return nil
}

// WriteAt stores p at off.
func (s *MemStore) WriteAt(p []byte, off int64) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	if off < 0 || off+int64(len(p)) > int64(len(s.Data)) {
		return ErrOutOfRange
	}
	copy(s.Data[off:], p)
	s.Writes++
	return nil
}

// Close marks the store as closed.
func (s *MemStore) Close() error {
	s.Closed = true
	return nil
}
