//go:build !windows

package daemon

import (
	"io/fs"

	"github.com/google/renameio/v2"
)

// WriteFile atomically replaces path with data
func (FileStore) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
