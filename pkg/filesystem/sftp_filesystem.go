package filesystem

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	krfs "github.com/kr/fs"
	"github.com/pkg/sftp"
)

// Exported constants.
const (
	// RealPathCacheSize bounds how many canonical paths an SFTP provider remembers.
	RealPathCacheSize = 4096
)

// SFTPFileSystem implements FileSystem over a pool of SFTP sessions.
// Remote servers expose no inode, so identity checks go through the
// server's realpath, which resolves every symbolic link.
type SFTPFileSystem struct {
	pool      *SFTPClientPool
	realPaths *lru.Cache[string, string]
}

// NewSFTPFileSystem builds a provider on an established connection.
// If config is nil, DefaultPoolConfig() is used.
func NewSFTPFileSystem(conn *SFTPConnection, config *PoolConfig) (*SFTPFileSystem, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	pool, err := NewSFTPClientPool(conn.SSHClient(), *config)
	if err != nil {
		return nil, fmt.Errorf("failed to create SFTP client pool: %w", err)
	}

	return newSFTPFileSystem(pool)
}

func newSFTPFileSystem(pool *SFTPClientPool) (*SFTPFileSystem, error) {
	cache, err := lru.New[string, string](RealPathCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create realpath cache: %w", err)
	}

	return &SFTPFileSystem{pool: pool, realPaths: cache}, nil
}

// Chtimes changes the access and modification times of a remote file.
func (fs *SFTPFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return fs.withClient(func(client *sftp.Client) error {
		err := client.Chtimes(name, atime, mtime)
		if err != nil {
			return fmt.Errorf("failed to change times for remote file %s: %w", name, err)
		}

		return nil
	})
}

// Close closes the session pool. The SSH connection belongs to the caller.
func (fs *SFTPFileSystem) Close() error {
	if fs.pool != nil {
		return fs.pool.Close()
	}

	return nil
}

// Create creates a remote file for writing.
func (fs *SFTPFileSystem) Create(name string) (File, error) {
	return fs.openLeased(name, (*sftp.Client).Create)
}

// Join joins remote path elements with slashes.
func (fs *SFTPFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Lstat returns remote file information without following a final link.
func (fs *SFTPFileSystem) Lstat(name string) (os.FileInfo, error) {
	var info os.FileInfo

	err := fs.withClient(func(client *sftp.Client) error {
		var err error

		info, err = client.Lstat(name)
		if err != nil {
			return fmt.Errorf("failed to lstat remote file %s: %w", name, err)
		}

		return nil
	})

	return info, err
}

// MkdirAll creates a remote directory and all necessary parents.
// The server applies its own default permissions.
func (fs *SFTPFileSystem) MkdirAll(name string, _ os.FileMode) error {
	return fs.withClient(func(client *sftp.Client) error {
		err := client.MkdirAll(name)
		if err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", name, err)
		}

		return nil
	})
}

// Open opens a remote file for reading.
func (fs *SFTPFileSystem) Open(name string) (File, error) {
	return fs.openLeased(name, (*sftp.Client).Open)
}

// OpenDir lists a remote directory. The SFTP protocol returns a listing in
// chunks the client reassembles, so the handle serves a snapshot and holds
// no session.
func (fs *SFTPFileSystem) OpenDir(name string) (DirHandle, error) {
	var handle DirHandle

	err := fs.withClient(func(client *sftp.Client) error {
		listing, err := openListing(client, name)
		if err != nil {
			return err
		}

		handle = listing

		return nil
	})

	return handle, err
}

// PoolMaxSize returns the maximum allowed pool size.
func (fs *SFTPFileSystem) PoolMaxSize() int {
	return fs.pool.MaxSize()
}

// PoolMinSize returns the minimum allowed pool size.
func (fs *SFTPFileSystem) PoolMinSize() int {
	return fs.pool.MinSize()
}

// PoolSize returns the current actual number of connections in the pool.
func (fs *SFTPFileSystem) PoolSize() int {
	return fs.pool.Size()
}

// PoolTargetSize returns the current target pool size.
func (fs *SFTPFileSystem) PoolTargetSize() int {
	return fs.pool.TargetSize()
}

// Remove removes a remote file or empty directory.
func (fs *SFTPFileSystem) Remove(name string) error {
	fs.realPaths.Remove(path.Clean(name))

	return fs.withClient(func(client *sftp.Client) error {
		err := client.Remove(name)
		if err != nil {
			return fmt.Errorf("failed to remove remote file %s: %w", name, err)
		}

		return nil
	})
}

// ResizePool sets the target pool size.
func (fs *SFTPFileSystem) ResizePool(targetSize int) {
	fs.pool.Resize(targetSize)
}

// SameFile compares the server's canonical paths for both names.
func (fs *SFTPFileSystem) SameFile(path1, path2 string) (bool, error) {
	real1, err := fs.realPath(path1)
	if err != nil {
		return false, err
	}

	real2, err := fs.realPath(path2)
	if err != nil {
		return false, err
	}

	return real1 == real2, nil
}

// Stat returns file information for a remote file.
func (fs *SFTPFileSystem) Stat(name string) (os.FileInfo, error) {
	var info os.FileInfo

	err := fs.withClient(func(client *sftp.Client) error {
		var err error

		info, err = client.Stat(name)
		if err != nil {
			return fmt.Errorf("failed to stat remote file %s: %w", name, err)
		}

		return nil
	})

	return info, err
}

func (fs *SFTPFileSystem) openLeased(name string, open func(*sftp.Client, string) (*sftp.File, error)) (File, error) {
	client, err := fs.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire SFTP client: %w", err)
	}

	file, err := open(client, name)
	if err != nil {
		fs.pool.Release(client)
		return nil, fmt.Errorf("failed to open remote file %s: %w", name, err)
	}

	leased, err := newLeasedFile(file, client, fs.pool)
	if err != nil {
		_ = file.Close()
		fs.pool.Release(client)

		return nil, err
	}

	return leased, nil
}

func (fs *SFTPFileSystem) realPath(name string) (string, error) {
	key := path.Clean(name)
	if canonical, ok := fs.realPaths.Get(key); ok {
		return canonical, nil
	}

	var canonical string

	err := fs.withClient(func(client *sftp.Client) error {
		var err error

		canonical, err = client.RealPath(key)
		if err != nil {
			return fmt.Errorf("failed to resolve remote path %s: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	fs.realPaths.Add(key, canonical)

	return canonical, nil
}

func (fs *SFTPFileSystem) withClient(fn func(*sftp.Client) error) error {
	client, err := fs.pool.Acquire()
	if err != nil {
		return fmt.Errorf("failed to acquire SFTP client: %w", err)
	}
	defer fs.pool.Release(client)

	return fn(client)
}

// listingDirHandle serves a directory listing read in one go.
type listingDirHandle struct {
	entries []DirEntry
	closed  bool
}

// openListing reads name through the kr/fs listing interface, which both
// *sftp.Client and in-process fakes satisfy.
func openListing(lister krfs.FileSystem, name string) (*listingDirHandle, error) {
	infos, err := lister.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", name, err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, dirEntryFromInfo(info))
	}

	return &listingDirHandle{entries: entries}, nil
}

func (h *listingDirHandle) Close() error {
	h.closed = true
	h.entries = nil

	return nil
}

func (h *listingDirHandle) Next() (DirEntry, error) {
	if h.closed {
		return nil, os.ErrClosed
	}

	if len(h.entries) == 0 {
		return nil, io.EOF
	}

	entry := h.entries[0]
	h.entries = h.entries[1:]

	return entry, nil
}
