package store

import (
	"fmt"
	"os"
)

// FileStore is a Store backed by a fixed-size file on disk.
type FileStore struct {
	f    *os.File
	size int64
}

// OpenFile opens (or creates) the storage file at path. A new file is
// extended to size bytes of zeroes, so a fresh node reads all records as
// uninitialized.
func OpenFile(path string, size int64) (*FileStore, error) {
	if size <= 0 {
		size = DefaultSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open store file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat store file: %w", err)
	}
	if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("extend store file: %w", err)
		}
	}
	return &FileStore{f: f, size: size}, nil
}

// ReadAt fills p with the bytes at off.
func (s *FileStore) ReadAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > s.size {
		return ErrOutOfRange
	}
	if _, err := s.f.ReadAt(p, off); err != nil {
		return fmt.Errorf("read store at %d: %w", off, err)
	}
	return nil
}

// WriteAt stores p at off and syncs so a power cut does not lose the record.
func (s *FileStore) WriteAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > s.size {
		return ErrOutOfRange
	}
	if _, err := s.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("write store at %d: %w", off, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	return nil
}

// Close closes the backing file.
func (s *FileStore) Close() error {
	return s.f.Close()
}
