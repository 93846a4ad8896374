package filesystem

// ResizablePool is implemented by providers that hold a pool of remote
// sessions (SFTP). A scan resizes the pool to what its walk needs.
type ResizablePool interface {
	// ResizePool sets the target pool size, clamped to [PoolMinSize, PoolMaxSize].
	// Growing happens on demand; idle sessions beyond the target are closed
	// as they are returned.
	ResizePool(targetSize int)

	// PoolSize returns the current number of open sessions.
	PoolSize() int

	// PoolTargetSize returns the current target pool size.
	PoolTargetSize() int

	PoolMinSize() int
	PoolMaxSize() int
}
