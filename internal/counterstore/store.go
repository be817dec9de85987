// Package counterstore persists the crossing count across power cycles.
//
// The on-disk layout is a fixed 12-byte block: a 4-byte magic tag followed
// by the count as a little-endian uint64. The block is always written as a
// whole via a temp-file-and-rename replace, so a torn write can never pair a
// valid magic with a stale count.
package counterstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"

	"github.com/banshee-data/footfall/internal/fsutil"
)

// Magic tags a block written by this store. A read that does not start with
// it is treated as uninitialised storage, not corruption.
const Magic = "FTFL"

const blockSize = len(Magic) + 8

// Store reads and writes the persisted counter block at a fixed path.
type Store struct {
	fs   fsutil.FileSystem
	path string
}

// New creates a Store backed by the real filesystem.
func New(path string) *Store {
	return NewWithFS(fsutil.OSFileSystem{}, path)
}

// NewWithFS creates a Store on an explicit filesystem, for tests.
func NewWithFS(fsys fsutil.FileSystem, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Load reads the persisted count. Absent, short, or wrong-magic blocks all
// load as zero with no error: first boot and wiped flash look identical to
// the caller. Only a real I/O failure surfaces as an error.
func (s *Store) Load() (uint64, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter block: %w", err)
	}
	if len(data) < blockSize || string(data[:len(Magic)]) != Magic {
		return 0, nil
	}
	return binary.LittleEndian.Uint64(data[len(Magic):blockSize]), nil
}

// Save writes magic and count as one block, replacing the previous block
// atomically.
func (s *Store) Save(count uint64) error {
	block := make([]byte, blockSize)
	copy(block, Magic)
	binary.LittleEndian.PutUint64(block[len(Magic):], count)

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, block, 0644); err != nil {
		return fmt.Errorf("failed to write counter block: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace counter block: %w", err)
	}
	return nil
}

// Reset sets the count to zero and persists immediately.
func (s *Store) Reset() error {
	return s.Save(0)
}
