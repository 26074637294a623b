//go:build windows

package daemon

import (
	"io/fs"
	"os"
)

// WriteFile replaces path with data. renameio does not support Windows.
func (FileStore) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}
