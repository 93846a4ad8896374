package filesystem_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joe/treewalk/pkg/filesystem"
)

func newSeededMem(t *testing.T) *filesystem.BillyFileSystem {
	t.Helper()

	mem := filesystem.NewMemFileSystem()
	bfs := mem.Billy()

	require.NoError(t, util.WriteFile(bfs, "/data/a.txt", []byte("alpha"), 0o644))
	require.NoError(t, util.WriteFile(bfs, "/data/sub/b.txt", []byte("beta"), 0o644))
	require.NoError(t, bfs.Symlink("/data/sub", "/data/alias"))
	require.NoError(t, bfs.Symlink("/data", "/data/sub/up"))

	return mem
}

func TestBillyFileSystem_StatFollowsIntermediateLinks(t *testing.T) {
	t.Parallel()

	mem := newSeededMem(t)

	info, err := mem.Stat("/data/alias/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", info.Name())
	assert.Equal(t, int64(4), info.Size())

	info, err = mem.Stat("/data/alias")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "alias", info.Name())

	info, err = mem.Lstat("/data/alias")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	_, err = mem.Stat("/data/missing")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestBillyFileSystem_OpenDirThroughLinkCycle(t *testing.T) {
	t.Parallel()

	mem := newSeededMem(t)

	handle, err := mem.OpenDir("/data/sub/up/sub/up")
	require.NoError(t, err)

	defer func() {
		_ = handle.Close()
	}()

	var names []string

	for {
		entry, err := handle.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)
		names = append(names, entry.Name())
	}

	assert.ElementsMatch(t, []string{"a.txt", "alias", "sub"}, names)

	same, err := mem.SameFile("/data/sub/up/sub", "/data/alias")
	require.NoError(t, err)
	assert.True(t, same)
}

func TestBillyFileSystem_CreateOpenRemove(t *testing.T) {
	t.Parallel()

	mem := filesystem.NewMemFileSystem()
	require.NoError(t, mem.MkdirAll("/out/nested", 0o755))

	file, err := mem.Create("/out/nested/c.txt")
	require.NoError(t, err)
	_, err = file.Write([]byte("gamma"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	file, err = mem.Open("/out/nested/c.txt")
	require.NoError(t, err)

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "gamma", string(data))

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, file.Close())

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	err = mem.Chtimes("/out/nested/c.txt", mtime, mtime)
	if !errors.Is(err, filesystem.ErrUnsupported) {
		require.NoError(t, err)
	}

	require.NoError(t, mem.Remove("/out/nested/c.txt"))

	_, err = mem.Stat("/out/nested/c.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCreateFileSystem_MemoryRootsShareOneStore(t *testing.T) {
	t.Parallel()

	first, base, closer, err := filesystem.CreateFileSystem(context.Background(), "mem:///shared-store/out", nil)
	require.NoError(t, err)
	closer()
	assert.Equal(t, "/shared-store/out", base)

	require.NoError(t, first.MkdirAll(base, 0o755))

	file, err := first.Create(first.Join(base, "kept.txt"))
	require.NoError(t, err)
	_, err = file.Write([]byte("still here"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	second, _, closer, err := filesystem.CreateFileSystem(context.Background(), "mem:///shared-store", nil)
	require.NoError(t, err)
	defer closer()

	info, err := second.Stat("/shared-store/out/kept.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("still here")), info.Size())
}
