package filesystem

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// BillyFileSystem adapts any go-billy filesystem (in-memory, chrooted,
// overlay) into a FileSystem. Billy only resolves a symbolic link in the
// final path component, so every path is canonicalized first.
type BillyFileSystem struct {
	fs    billy.Filesystem
	links linkReader
}

// NewBillyFileSystem wraps fs.
func NewBillyFileSystem(fs billy.Filesystem) *BillyFileSystem {
	return &BillyFileSystem{
		fs:    fs,
		links: linkReader{lstat: fs.Lstat, readlink: fs.Readlink},
	}
}

// NewMemFileSystem returns an empty in-memory provider.
func NewMemFileSystem() *BillyFileSystem {
	mem := memfs.New()

	// memfs only materializes "/" once something is created under it.
	_ = mem.MkdirAll("/", os.ModeDir|0o755) //nolint:mnd // conventional directory mode

	return NewBillyFileSystem(mem)
}

// Billy returns the wrapped filesystem, for seeding fixtures.
func (b *BillyFileSystem) Billy() billy.Filesystem {
	return b.fs
}

// Chtimes changes file times when the backend supports billy.Change.
func (b *BillyFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	change, ok := b.fs.(billy.Change)
	if !ok {
		return fmt.Errorf("failed to change times for %s: %w", name, ErrUnsupported)
	}

	target, err := b.canonical(name, true)
	if err != nil {
		return err
	}

	err = change.Chtimes(target, atime, mtime)
	if err != nil {
		return fmt.Errorf("failed to change times for %s: %w", name, err)
	}

	return nil
}

// Create creates a file for writing, truncating any existing one.
func (b *BillyFileSystem) Create(name string) (File, error) {
	file, err := b.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	return &billyFile{File: file, stat: func() (os.FileInfo, error) { return b.Stat(name) }}, nil
}

// Join joins path elements with the backend's separator.
func (b *BillyFileSystem) Join(elem ...string) string {
	return b.fs.Join(elem...)
}

// Lstat returns file information without following a final symbolic link.
func (b *BillyFileSystem) Lstat(name string) (os.FileInfo, error) {
	target, err := b.canonical(name, false)
	if err != nil {
		return nil, err
	}

	info, err := b.fs.Lstat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to lstat %s: %w", name, err)
	}

	return info, nil
}

// MkdirAll creates a directory and all necessary parents.
func (b *BillyFileSystem) MkdirAll(name string, perm os.FileMode) error {
	err := b.fs.MkdirAll(name, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", name, err)
	}

	return nil
}

// Open opens a file for reading.
func (b *BillyFileSystem) Open(name string) (File, error) {
	target, err := b.canonical(name, true)
	if err != nil {
		return nil, err
	}

	file, err := b.fs.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	return &billyFile{File: file, stat: func() (os.FileInfo, error) { return b.fs.Stat(target) }}, nil
}

// OpenDir snapshots a directory listing.
func (b *BillyFileSystem) OpenDir(name string) (DirHandle, error) {
	target, err := b.canonical(name, true)
	if err != nil {
		return nil, err
	}

	listing, err := openListing(b.fs, target)
	if err != nil {
		return nil, err
	}

	return listing, nil
}

// Remove removes a file, link or empty directory.
func (b *BillyFileSystem) Remove(name string) error {
	target, err := b.canonical(name, false)
	if err != nil {
		return err
	}

	err = b.fs.Remove(target)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return nil
}

// SameFile compares fully resolved paths.
func (b *BillyFileSystem) SameFile(path1, path2 string) (bool, error) {
	target1, err := b.canonical(path1, true)
	if err != nil {
		return false, err
	}

	target2, err := b.canonical(path2, true)
	if err != nil {
		return false, err
	}

	return target1 == target2, nil
}

// Stat returns file information, following symbolic links.
func (b *BillyFileSystem) Stat(name string) (os.FileInfo, error) {
	target, err := b.canonical(name, true)
	if err != nil {
		return nil, err
	}

	info, err := b.fs.Lstat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	return renamedInfo{FileInfo: info, name: path.Base(name)}, nil
}

func (b *BillyFileSystem) canonical(name string, followLast bool) (string, error) {
	target, err := b.links.resolve(path.Join("/", name), followLast)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	return target, nil
}

// billyFile adds Stat, which billy.File lacks.
type billyFile struct {
	billy.File

	stat func() (os.FileInfo, error)
}

func (f *billyFile) Stat() (os.FileInfo, error) {
	return f.stat()
}

// renamedInfo reports the name a caller asked for rather than the link target's.
type renamedInfo struct {
	os.FileInfo

	name string
}

func (i renamedInfo) Name() string {
	return i.name
}
