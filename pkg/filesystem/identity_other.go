//go:build !unix

package filesystem

import "os"

// IdentityKey reports no key; callers fall back to SameFile.
func (fs *RealFileSystem) IdentityKey(_ os.FileInfo) (any, bool) {
	return nil, false
}
