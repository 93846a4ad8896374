//go:build unix

package filesystem

import (
	"os"
	"syscall"
)

// fileKey identifies a file by device and inode.
type fileKey struct {
	dev uint64
	ino uint64
}

// IdentityKey returns the device and inode pair backing info.
func (fs *RealFileSystem) IdentityKey(info os.FileInfo) (any, bool) {
	if info == nil {
		return nil, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true //nolint:unconvert // Dev and Ino widths differ per platform
}
