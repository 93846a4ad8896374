package filesystem

import (
	"context"
	"fmt"
	"sync"
)

// memoryStore is the tree every mem:// root names. It lives as long as the
// process, so a tree copied to mem:// can be walked by a later call.
//
//nolint:gochecknoglobals // One in-memory store per process
var memoryStore = sync.OnceValue(NewMemFileSystem)

// CreateFileSystem creates a FileSystem for the given root.
// Returns (filesystem, basePath, closer, error).
//   - filesystem: the provider to walk and operate on
//   - basePath: the root as that provider names it (URL prefix stripped)
//   - closer: releases connections; never nil
func CreateFileSystem(ctx context.Context, pathStr string, pool *PoolConfig) (FileSystem, string, func(), error) {
	parsed, err := ParsePath(pathStr)
	if err != nil {
		return nil, "", nil, err
	}

	noop := func() {}

	switch parsed.Backend {
	case BackendMemory:
		return memoryStore(), parsed.Path, noop, nil
	case BackendS3:
		objects, err := NewObjectFileSystem(ctx, S3Config{
			Endpoint: parsed.Host,
			Bucket:   parsed.Bucket,
			Secure:   parsed.Secure,
		})
		if err != nil {
			return nil, "", nil, err
		}

		return objects, parsed.Path, noop, nil
	case BackendSFTP:
		return createSFTPFileSystem(parsed, pool)
	case BackendLocal:
	}

	return NewRealFileSystem(), parsed.LocalPath, noop, nil
}

func createSFTPFileSystem(parsed *ParsedPath, pool *PoolConfig) (FileSystem, string, func(), error) {
	conn, err := Connect(parsed.Host, parsed.Port, parsed.User)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to connect to %s@%s:%d: %w",
			parsed.User, parsed.Host, parsed.Port, err)
	}

	remote, err := NewSFTPFileSystem(conn, pool)
	if err != nil {
		_ = conn.Close()
		return nil, "", nil, err
	}

	closer := func() {
		_ = remote.Close()
		_ = conn.Close()
	}

	return remote, parsed.Path, closer, nil
}

// CreateFileSystemPair creates filesystems for source and destination roots.
// The closer releases both.
func CreateFileSystemPair(ctx context.Context, sourcePath, destPath string, pool *PoolConfig) (
	sourceFS FileSystem,
	destFS FileSystem,
	srcPath string,
	dstPath string,
	closer func(),
	err error,
) {
	sourceFS, srcPath, srcCloser, err := CreateFileSystem(ctx, sourcePath, pool)
	if err != nil {
		return nil, nil, "", "", nil, fmt.Errorf("failed to create source filesystem: %w", err)
	}

	destFS, dstPath, dstCloser, err := CreateFileSystem(ctx, destPath, pool)
	if err != nil {
		srcCloser()
		return nil, nil, "", "", nil, fmt.Errorf("failed to create destination filesystem: %w", err)
	}

	closer = func() {
		srcCloser()
		dstCloser()
	}

	return sourceFS, destFS, srcPath, dstPath, closer, nil
}
