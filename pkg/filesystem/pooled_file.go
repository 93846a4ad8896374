package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/pkg/sftp"
)

// Exported variables.
var (
	ErrNilLease = errors.New("leased handle needs a file, a client and a pool")
)

// sftpFile is the part of *sftp.File that callers read and write through.
type sftpFile interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// lease ties a pooled SFTP session to the handle that borrowed it. The
// session goes back to the pool exactly once, however many times the
// handle is closed.
type lease struct {
	client *sftp.Client
	pool   clientPool
	once   sync.Once
}

func (l *lease) release() {
	l.once.Do(func() { l.pool.Release(l.client) })
}

// leasedFile is an open remote file holding a pool session until Close.
type leasedFile struct {
	file  sftpFile
	lease *lease

	mu     sync.Mutex
	closed bool
}

func newLeasedFile(file sftpFile, client *sftp.Client, pool clientPool) (*leasedFile, error) {
	if file == nil || client == nil || pool == nil {
		return nil, ErrNilLease
	}

	return &leasedFile{file: file, lease: &lease{client: client, pool: pool}}, nil
}

// Close closes the remote file and always returns the session to the pool,
// even when the close fails.
func (f *leasedFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	defer f.lease.release()

	return f.file.Close() //nolint:wrapcheck // callers wrap with the path
}

func (f *leasedFile) Read(p []byte) (int, error) {
	if f.isClosed() {
		return 0, fs.ErrClosed
	}

	return f.file.Read(p) //nolint:wrapcheck // io.EOF must pass through unwrapped
}

func (f *leasedFile) Stat() (os.FileInfo, error) {
	if f.isClosed() {
		return nil, fs.ErrClosed
	}

	return f.file.Stat() //nolint:wrapcheck // callers wrap with the path
}

func (f *leasedFile) Write(p []byte) (int, error) {
	if f.isClosed() {
		return 0, fs.ErrClosed
	}

	return f.file.Write(p) //nolint:wrapcheck // callers wrap with the path
}

func (f *leasedFile) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}
