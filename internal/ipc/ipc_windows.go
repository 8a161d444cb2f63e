//go:build windows

package ipc

import (
	"os"
	"path/filepath"
)

// Windows 10 and later support AF_UNIX sockets on the filesystem.
func defaultSocketPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "cliip-show", socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}
