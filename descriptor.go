package daemon

import (
	"errors"
	"io/fs"
	"os"
)

// DescriptorStore writes and removes native service descriptors
type DescriptorStore interface {
	WriteFile(path string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
}

// FileStore stores descriptors on the local filesystem. Writes replace the
// target atomically where the platform allows it.
type FileStore struct{}

// MkdirAll creates a directory and any missing parents
func (FileStore) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Remove deletes a file; a missing file is not an error
func (FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes a directory tree
func (FileStore) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
