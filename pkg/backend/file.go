package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File stores each key as a file inside a directory. Writes go through
// a temp file plus rename so a crash mid-write never leaves a truncated
// entry behind.
type File struct {
	dir string
}

// NewFile creates a file backend rooted at dir, creating the directory
// if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file backend directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backend directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// GetItem reads the file for key. A missing file means the key is absent.
func (f *File) GetItem(key string) (string, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read entry %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem writes value to the file for key atomically.
func (f *File) SetItem(key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write entry %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit entry %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the file for key. Removing an absent key is not an
// error.
func (f *File) RemoveItem(key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove entry %q: %w", key, err)
	}
	return nil
}

// path maps a key to its file, rejecting keys that would escape the
// backend directory.
func (f *File) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid backend key %q: must be a plain file name", key)
	}
	return filepath.Join(f.dir, key), nil
}
