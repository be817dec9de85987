package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	m := NewMemoryFileSystem()

	if m.Exists("counter.bin") {
		t.Error("Exists reported a file before any write")
	}

	if err := m.WriteFile("counter.bin", []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := m.ReadFile("counter.bin")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 3 || data[0] != 1 {
		t.Errorf("ReadFile returned %v, want [1 2 3]", data)
	}
}

func TestMemoryFileSystemRename(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.WriteFile("counter.bin.tmp", []byte{9}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := m.Rename("counter.bin.tmp", "counter.bin"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if m.Exists("counter.bin.tmp") {
		t.Error("tmp file still exists after rename")
	}
	if !m.Exists("counter.bin") {
		t.Error("target file missing after rename")
	}
	if m.Renames() != 1 {
		t.Errorf("Renames() = %d, want 1", m.Renames())
	}
}

func TestMemoryFileSystemMissingFile(t *testing.T) {
	m := NewMemoryFileSystem()

	if _, err := m.ReadFile("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile missing file: err = %v, want fs.ErrNotExist", err)
	}
	if err := m.Remove("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove missing file: err = %v, want fs.ErrNotExist", err)
	}
	if err := m.Rename("nope", "other"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Rename missing file: err = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystemErrorInjection(t *testing.T) {
	m := NewMemoryFileSystem()
	want := errors.New("disk full")
	m.WriteErr = want

	if err := m.WriteFile("f", nil, 0644); !errors.Is(err, want) {
		t.Errorf("WriteFile err = %v, want %v", err, want)
	}
	// Injected error is one-shot.
	if err := m.WriteFile("f", nil, 0644); err != nil {
		t.Errorf("second WriteFile err = %v, want nil", err)
	}
}

func TestOSFileSystemRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.bin")
	osfs := OSFileSystem{}

	if err := osfs.WriteFile(path, []byte("FTFL"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "FTFL" {
		t.Errorf("ReadFile = %q, want FTFL", data)
	}

	moved := filepath.Join(dir, "counter2.bin")
	if err := osfs.Rename(path, moved); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if osfs.Exists(path) || !osfs.Exists(moved) {
		t.Error("Rename did not move the file")
	}
	if err := osfs.Remove(moved); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(moved); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file still present after Remove: %v", err)
	}
}
