package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const largeArchiveThreshold = 8 * 1024 * 1024

// File is an archive loaded from disk. Close releases the mapping, after which
// Bytes must not be used. Extract copies every domain out of the buffer, so
// the list it returns stays valid.
type File struct {
	data    []byte
	release func() error
}

// Open loads a previously downloaded archive. Large regular files are
// memory-mapped where the platform allows it.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size > largeArchiveThreshold && info.Mode().IsRegular() && size <= int64(^uint(0)>>1) {
		data, release, err := mapFile(file, int(size))
		if err == nil {
			return &File{data: data, release: release}, nil
		}
		// fall back to a plain read if mmap is unavailable
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", path, err)
	}
	return &File{data: data}, nil
}

// Bytes returns the archive contents.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Close releases any memory mapping backing the archive.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	release := f.release
	f.release = nil
	f.data = nil
	if release == nil {
		return nil
	}
	return release()
}

// WriteFile stores a fetched archive, creating parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating archive directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	return nil
}
