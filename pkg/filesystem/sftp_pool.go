package filesystem

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Exported variables.
var (
	ErrPoolClosed     = errors.New("pool is closed")
	ErrInvalidPoolCfg = errors.New("invalid pool configuration")
)

// PoolConfig bounds how many SFTP sessions a provider keeps open.
type PoolConfig struct {
	InitialSize int `yaml:"initial"`
	MinSize     int `yaml:"min"`
	MaxSize     int `yaml:"max"`
}

// Validate checks 0 < MinSize <= InitialSize <= MaxSize.
func (c PoolConfig) Validate() error {
	switch {
	case c.MinSize <= 0:
		return fmt.Errorf("%w: min size must be positive, got %d", ErrInvalidPoolCfg, c.MinSize)
	case c.InitialSize < c.MinSize:
		return fmt.Errorf("%w: initial size %d below min size %d", ErrInvalidPoolCfg, c.InitialSize, c.MinSize)
	case c.InitialSize > c.MaxSize:
		return fmt.Errorf("%w: initial size %d above max size %d", ErrInvalidPoolCfg, c.InitialSize, c.MaxSize)
	}

	return nil
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		InitialSize: 4, //nolint:mnd // Default pool size
		MinSize:     1,
		MaxSize:     16, //nolint:mnd // Maximum pool connections
	}
}

// clientPool is the slice of SFTPClientPool that leased handles need.
type clientPool interface {
	Acquire() (*sftp.Client, error)
	Release(client *sftp.Client)
}

// SFTPClientPool multiplexes SFTP sessions over one SSH connection.
// The buffered channel is the semaphore: Acquire blocks while every
// session is leased out.
type SFTPClientPool struct {
	newClient   func() (*sftp.Client, error)
	closeClient func(*sftp.Client) error
	idle        chan *sftp.Client
	minSize     int
	maxSize     int
	target      atomic.Int32
	actual      atomic.Int32

	mu     sync.Mutex
	closed bool
}

// NewSFTPClientPool opens cfg.InitialSize sessions on sshClient.
func NewSFTPClientPool(sshClient *ssh.Client, cfg PoolConfig) (*SFTPClientPool, error) {
	return newClientPool(cfg, func() (*sftp.Client, error) {
		// Concurrent writes can leave holes when a transfer fails part way;
		// CopyTree removes partially written files.
		return sftp.NewClient(sshClient, sftp.UseConcurrentWrites(true)) //nolint:wrapcheck // wrapped by callers
	})
}

func newClientPool(cfg PoolConfig, newClient func() (*sftp.Client, error)) (*SFTPClientPool, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	pool := &SFTPClientPool{
		newClient:   newClient,
		closeClient: (*sftp.Client).Close,
		idle:        make(chan *sftp.Client, cfg.MaxSize),
		minSize:     cfg.MinSize,
		maxSize:     cfg.MaxSize,
	}

	for i := range cfg.InitialSize {
		client, err := newClient()
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to open SFTP session %d/%d: %w", i+1, cfg.InitialSize, err)
		}

		pool.idle <- client
		pool.actual.Add(1)
	}

	pool.target.Store(int32(cfg.InitialSize)) //nolint:gosec // bounded by MaxSize

	return pool, nil
}

// Acquire leases a session, blocking until one is idle.
func (p *SFTPClientPool) Acquire() (*sftp.Client, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	client, ok := <-p.idle
	if !ok {
		return nil, ErrPoolClosed
	}

	return client, nil
}

// Close closes every idle session. Sessions still leased are closed as
// they come back. The SSH connection is left open; its owner closes it.
func (p *SFTPClientPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	p.mu.Unlock()

	var errs []error
	for client := range p.idle {
		errs = append(errs, p.closeClient(client))
	}

	p.actual.Store(0)
	p.target.Store(0)

	return errors.Join(errs...)
}

// MaxSize returns the largest size Resize will accept.
func (p *SFTPClientPool) MaxSize() int {
	return p.maxSize
}

// MinSize returns the smallest size Resize will accept.
func (p *SFTPClientPool) MinSize() int {
	return p.minSize
}

// Release hands a leased session back. When the pool is above its target
// size the session is closed instead, which is how the pool shrinks.
func (p *SFTPClientPool) Release(client *sftp.Client) {
	if client == nil {
		return
	}

	for {
		actual := p.actual.Load()
		if actual <= p.target.Load() {
			break
		}

		if p.actual.CompareAndSwap(actual, actual-1) {
			_ = p.closeClient(client)
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = p.closeClient(client)
		return
	}

	select {
	case p.idle <- client:
	default:
		p.actual.Add(-1)
		_ = p.closeClient(client)
	}
}

// Resize moves the target size, clamped to [MinSize, MaxSize]. Growth
// happens now; shrinking happens lazily in Release.
func (p *SFTPClientPool) Resize(targetSize int) {
	clamped := min(max(targetSize, p.minSize), p.maxSize)
	p.target.Store(int32(clamped)) //nolint:gosec // clamped to MaxSize

	for p.actual.Load() < p.target.Load() {
		client, err := p.newClient()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = p.closeClient(client)

			return
		}

		select {
		case p.idle <- client:
			p.actual.Add(1)
			p.mu.Unlock()
		default:
			p.mu.Unlock()
			_ = p.closeClient(client)

			return
		}
	}
}

// Size returns the number of open sessions, leased or idle.
func (p *SFTPClientPool) Size() int {
	return int(p.actual.Load())
}

// TargetSize returns the size the pool is converging on.
func (p *SFTPClientPool) TargetSize() int {
	return int(p.target.Load())
}

func (p *SFTPClientPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}
