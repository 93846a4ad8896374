// Package filesystem provides an abstraction layer for filesystem operations
// so tree walks and tree operations can run against local disks, remote
// servers, object stores, and in-memory fakes without change.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Exported constants.
const (
	// DirReadBatch is how many entries a local directory handle reads per syscall.
	DirReadBatch = 64
)

// Exported variables.
var (
	// ErrUnsupported is returned by providers for operations their backend cannot perform.
	ErrUnsupported = errors.ErrUnsupported
)

// File is an interface that abstracts file operations.
// This allows us to work with both real files and mock files.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// DirEntry is a child entry yielded by a DirHandle: a name plus a type hint.
type DirEntry = fs.DirEntry

// DirHandle enumerates the children of one open directory, one entry per call.
type DirHandle interface {
	// Next returns the next child entry. It returns io.EOF once the directory
	// is exhausted; any other error means enumeration failed part way.
	Next() (DirEntry, error)

	// Close releases the handle. Calling Close more than once is harmless.
	Close() error
}

// WalkFS is the set of operations a tree walk needs from a provider.
type WalkFS interface {
	// OpenDir opens a directory for enumeration. Symbolic links are followed.
	OpenDir(path string) (DirHandle, error)

	// Stat returns file information, following symbolic links.
	Stat(path string) (os.FileInfo, error)

	// Lstat returns file information without following a final symbolic link.
	Lstat(path string) (os.FileInfo, error)

	// SameFile reports whether both paths name the same underlying file.
	SameFile(path1, path2 string) (bool, error)

	// Join joins path elements using the provider's separator.
	Join(elem ...string) string
}

// IdentityKeyer is implemented by providers that expose a stable unique
// identity (such as device and inode) for the files they describe.
// Keys must be comparable.
type IdentityKeyer interface {
	IdentityKey(info os.FileInfo) (any, bool)
}

// FileSystem is an interface that abstracts filesystem operations.
// This allows for dependency injection and testing with mock implementations.
type FileSystem interface {
	WalkFS

	// Low-level file operations used by tree copy and removal.
	Open(path string) (File, error)
	Create(path string) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	Remove(path string) error
}

// RealFileSystem implements FileSystem using actual os/filepath functions.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem instance.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// Chtimes changes the access and modification times of a file.
func (fs *RealFileSystem) Chtimes(path string, atime, mtime time.Time) error {
	err := os.Chtimes(path, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for %s: %w", path, err)
	}

	return nil
}

// Create creates a file for writing.
func (fs *RealFileSystem) Create(path string) (File, error) {
	file, err := os.Create(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return file, nil
}

// Join joins path elements with the host separator.
func (fs *RealFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Lstat returns file information without following a final symbolic link.
func (fs *RealFileSystem) Lstat(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to lstat %s: %w", path, err)
	}

	return info, nil
}

// MkdirAll creates a directory and all necessary parents.
func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// Open opens a file for reading.
func (fs *RealFileSystem) Open(path string) (File, error) {
	file, err := os.Open(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// OpenDir opens a directory for batched enumeration.
func (fs *RealFileSystem) OpenDir(path string) (DirHandle, error) {
	dir, err := os.Open(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", path, err)
	}

	return &realDirHandle{dir: dir, path: path}, nil
}

// Remove removes a file or empty directory.
func (fs *RealFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// SameFile reports whether both paths resolve to the same file.
func (fs *RealFileSystem) SameFile(path1, path2 string) (bool, error) {
	info1, err := fs.Stat(path1)
	if err != nil {
		return false, err
	}

	info2, err := fs.Stat(path2)
	if err != nil {
		return false, err
	}

	return os.SameFile(info1, info2), nil
}

// Stat returns file information.
func (fs *RealFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info, nil
}

// dirEntryFromInfo adapts file information into a directory entry.
func dirEntryFromInfo(info os.FileInfo) DirEntry {
	return fs.FileInfoToDirEntry(info)
}

// realDirHandle reads a directory in batches of DirReadBatch entries.
type realDirHandle struct {
	dir     *os.File
	path    string
	pending []DirEntry
	err     error
	closed  bool
}

// Close closes the underlying directory file once.
func (h *realDirHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	err := h.dir.Close()
	if err != nil {
		return fmt.Errorf("failed to close directory %s: %w", h.path, err)
	}

	return nil
}

// Next returns the next buffered entry, refilling the buffer when it runs dry.
func (h *realDirHandle) Next() (DirEntry, error) {
	if h.closed {
		return nil, os.ErrClosed
	}

	if len(h.pending) == 0 && h.err == nil {
		h.pending, h.err = h.dir.ReadDir(DirReadBatch)
	}

	if len(h.pending) > 0 {
		entry := h.pending[0]
		h.pending = h.pending[1:]

		return entry, nil
	}

	if errors.Is(h.err, io.EOF) {
		return nil, io.EOF
	}

	return nil, fmt.Errorf("failed to read directory %s: %w", h.path, h.err)
}
