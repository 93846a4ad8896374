package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"
	"time"
)

// MockFileSystem is an in-memory filesystem implementation for testing.
// Paths are slash separated. "/" and "." always exist as directories.
//
// Besides files and directories it models symbolic links, injected failures,
// and directory handle accounting so tests can check that walks release
// every handle they open.
type MockFileSystem struct {
	mu      sync.RWMutex
	files   map[string]*mockFile
	nextIno uint64
	noKeys  bool

	openDirErrs map[string]error
	statErrs    map[string]error
	readDirErrs map[string]readDirFault

	opened int
	closed int
}

type mockKind int

const (
	kindFile mockKind = iota
	kindDir
	kindSymlink
)

// mockFile represents a node in the mock filesystem.
type mockFile struct {
	path    string
	data    []byte
	modTime time.Time
	kind    mockKind
	perm    os.FileMode
	target  string
	ino     uint64
}

// readDirFault makes enumeration fail after a number of entries.
type readDirFault struct {
	after int
	err   error
}

// mockFileInfo implements os.FileInfo for mock files.
type mockFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	mode    os.FileMode
	ino     uint64
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockFileHandle implements the File interface for reading/writing.
type mockFileHandle struct {
	fs     *MockFileSystem
	path   string
	reader *bytes.Reader
	writer *bytes.Buffer
	closed bool
}

func (f *mockFileHandle) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.reader == nil {
		return 0, io.EOF
	}
	return f.reader.Read(p)
}

func (f *mockFileHandle) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.writer == nil {
		f.writer = &bytes.Buffer{}
	}
	return f.writer.Write(p)
}

func (f *mockFileHandle) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true

	// If we were writing, save the data
	if f.writer != nil {
		f.fs.mu.Lock()
		defer f.fs.mu.Unlock()

		if file, exists := f.fs.files[f.path]; exists {
			file.data = f.writer.Bytes()
		} else {
			f.fs.putLocked(f.path, &mockFile{
				data:    f.writer.Bytes(),
				modTime: time.Now(),
				kind:    kindFile,
				perm:    0o644,
			})
		}
	}

	return nil
}

func (f *mockFileHandle) Stat() (os.FileInfo, error) {
	if f.closed {
		return nil, os.ErrClosed
	}

	f.fs.mu.RLock()
	defer f.fs.mu.RUnlock()

	file, exists := f.fs.files[f.path]
	if !exists {
		return nil, os.ErrNotExist
	}

	return file.info(path.Base(f.path)), nil
}

// mockDirHandle replays a snapshot of a directory taken at open time.
type mockDirHandle struct {
	fs      *MockFileSystem
	entries []DirEntry
	fault   *readDirFault
	served  int
	closed  bool
}

func (h *mockDirHandle) Next() (DirEntry, error) {
	if h.closed {
		return nil, os.ErrClosed
	}

	if h.fault != nil && h.served >= h.fault.after {
		return nil, h.fault.err
	}

	if h.served >= len(h.entries) {
		return nil, io.EOF
	}

	entry := h.entries[h.served]
	h.served++

	return entry, nil
}

func (h *mockDirHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	h.fs.mu.Lock()
	h.fs.closed++
	h.fs.mu.Unlock()

	return nil
}

// NewMockFileSystem creates a new in-memory filesystem.
func NewMockFileSystem() *MockFileSystem {
	fs := &MockFileSystem{
		files:       make(map[string]*mockFile),
		openDirErrs: make(map[string]error),
		statErrs:    make(map[string]error),
		readDirErrs: make(map[string]readDirFault),
	}

	root := &mockFile{kind: kindDir, perm: 0o755, modTime: time.Now()}
	fs.putLocked("/", root)
	fs.files["."] = root

	return fs
}

// Chtimes changes the access and modification times of a file.
func (fs *MockFileSystem) Chtimes(name string, _, mtime time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return &os.PathError{Op: "chtimes", Path: name, Err: os.ErrNotExist}
	}

	file.modTime = mtime
	return nil
}

// Create creates a file for writing.
func (fs *MockFileSystem) Create(name string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)

	// Create parent directories if needed
	_ = fs.mkdirAllLocked(path.Dir(name), 0o755)

	fs.putLocked(name, &mockFile{
		data:    []byte{},
		modTime: time.Now(),
		kind:    kindFile,
		perm:    0o644,
	})

	return &mockFileHandle{
		fs:     fs,
		path:   name,
		writer: &bytes.Buffer{},
	}, nil
}

// IdentityKey returns the inode number recorded in mock file information.
func (fs *MockFileSystem) IdentityKey(info os.FileInfo) (any, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	mi, ok := info.(*mockFileInfo)
	if !ok || fs.noKeys {
		return nil, false
	}

	return mi.ino, true
}

// Join joins slash separated path elements.
func (fs *MockFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Lstat returns file information without following a final symbolic link.
func (fs *MockFileSystem) Lstat(name string) (os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if err := fs.statErrs[path.Clean(name)]; err != nil {
		return nil, &os.PathError{Op: "lstat", Path: name, Err: err}
	}

	resolved, err := fs.links().resolve(name, false)
	if err != nil {
		return nil, err
	}

	return fs.files[resolved].info(path.Base(name)), nil
}

// MkdirAll creates a directory and all necessary parents.
func (fs *MockFileSystem) MkdirAll(name string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.mkdirAllLocked(path.Clean(name), perm)
}

// Open opens a file for reading.
func (fs *MockFileSystem) Open(name string) (File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	resolved, err := fs.links().resolve(name, true)
	if err != nil {
		return nil, err
	}

	file := fs.files[resolved]
	if file.kind == kindDir {
		return nil, &os.PathError{Op: "open", Path: name, Err: fmt.Errorf("is a directory")}
	}

	return &mockFileHandle{
		fs:     fs,
		path:   resolved,
		reader: bytes.NewReader(file.data),
	}, nil
}

// OpenDir snapshots the children of a directory, sorted by name.
func (fs *MockFileSystem) OpenDir(name string) (DirHandle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	clean := path.Clean(name)
	if err := fs.openDirErrs[clean]; err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	resolved, err := fs.links().resolve(clean, true)
	if err != nil {
		return nil, err
	}

	if fs.files[resolved].kind != kindDir {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrNotDir}
	}

	handle := &mockDirHandle{fs: fs, entries: fs.childrenLocked(resolved)}
	if fault, ok := fs.readDirErrs[clean]; ok {
		handle.fault = &fault
	}
	fs.opened++

	return handle, nil
}

// Remove removes a file, symbolic link, or empty directory.
func (fs *MockFileSystem) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)

	file, exists := fs.files[name]
	if !exists {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}

	// If it's a directory, check if it's empty
	if file.kind == kindDir && len(fs.childrenLocked(name)) > 0 {
		return &os.PathError{Op: "remove", Path: name, Err: fmt.Errorf("directory not empty")}
	}

	delete(fs.files, name)
	return nil
}

// SameFile reports whether both paths resolve to the same node.
func (fs *MockFileSystem) SameFile(path1, path2 string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	resolved1, err := fs.links().resolve(path1, true)
	if err != nil {
		return false, err
	}

	resolved2, err := fs.links().resolve(path2, true)
	if err != nil {
		return false, err
	}

	return fs.files[resolved1].ino == fs.files[resolved2].ino, nil
}

// Stat returns file information, following symbolic links.
func (fs *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if err := fs.statErrs[path.Clean(name)]; err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}

	resolved, err := fs.links().resolve(name, true)
	if err != nil {
		return nil, err
	}

	return fs.files[resolved].info(path.Base(name)), nil
}

// Helper methods for testing

// AddDir adds a directory to the mock filesystem.
func (fs *MockFileSystem) AddDir(name string, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	_ = fs.mkdirAllLocked(path.Dir(name), 0o755)

	fs.putLocked(name, &mockFile{
		modTime: modTime,
		kind:    kindDir,
		perm:    0o755,
	})
}

// AddFile adds a file to the mock filesystem with the given content and modtime.
func (fs *MockFileSystem) AddFile(name string, content []byte, modTime time.Time) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	_ = fs.mkdirAllLocked(path.Dir(name), 0o755)

	fs.putLocked(name, &mockFile{
		data:    append([]byte(nil), content...),
		modTime: modTime,
		kind:    kindFile,
		perm:    0o644,
	})
}

// AddSymlink adds a symbolic link pointing at target. Relative targets are
// resolved against the link's directory.
func (fs *MockFileSystem) AddSymlink(name, target string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name = path.Clean(name)
	_ = fs.mkdirAllLocked(path.Dir(name), 0o755)

	fs.putLocked(name, &mockFile{
		modTime: time.Now(),
		kind:    kindSymlink,
		perm:    0o777,
		target:  target,
	})
}

// DisableIdentityKeys makes IdentityKey report no key, forcing SameFile fallbacks.
func (fs *MockFileSystem) DisableIdentityKeys() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.noKeys = true
}

// Exists checks if a path exists in the mock filesystem.
func (fs *MockFileSystem) Exists(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, exists := fs.files[path.Clean(name)]
	return exists
}

// FailOpenDir makes OpenDir on name fail with err.
func (fs *MockFileSystem) FailOpenDir(name string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.openDirErrs[path.Clean(name)] = err
}

// FailReadDir makes enumeration of name fail with err after n entries.
func (fs *MockFileSystem) FailReadDir(name string, n int, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.readDirErrs[path.Clean(name)] = readDirFault{after: n, err: err}
}

// FailStat makes Stat and Lstat on name fail with err.
func (fs *MockFileSystem) FailStat(name string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.statErrs[path.Clean(name)] = err
}

// GetFile retrieves a file's content from the mock filesystem.
func (fs *MockFileSystem) GetFile(name string) ([]byte, time.Time, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, exists := fs.files[path.Clean(name)]
	if !exists {
		return nil, time.Time{}, os.ErrNotExist
	}

	if file.kind != kindFile {
		return nil, time.Time{}, fmt.Errorf("not a regular file")
	}

	return append([]byte(nil), file.data...), file.modTime, nil
}

// HandleStats returns how many directory handles were opened and closed.
func (fs *MockFileSystem) HandleStats() (opened, closed int) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.opened, fs.closed
}

// ListFiles returns all paths in the mock filesystem except the roots.
func (fs *MockFileSystem) ListFiles() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		if p == "/" || p == "." {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// childrenLocked lists the direct children of dir as directory entries.
func (fs *MockFileSystem) childrenLocked(dir string) []DirEntry {
	var entries []DirEntry
	for p, file := range fs.files {
		if p == dir || path.Dir(p) != dir {
			continue
		}
		entries = append(entries, dirEntryFromInfo(file.info(path.Base(p))))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries
}

// links returns a resolver reading the map directly; the caller holds the lock.
func (fs *MockFileSystem) links() linkReader {
	return linkReader{
		lstat: func(name string) (os.FileInfo, error) {
			file, ok := fs.files[name]
			if !ok {
				return nil, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
			}
			return file.info(path.Base(name)), nil
		},
		readlink: func(name string) (string, error) {
			file, ok := fs.files[name]
			if !ok || file.kind != kindSymlink {
				return "", &os.PathError{Op: "readlink", Path: name, Err: os.ErrInvalid}
			}
			return file.target, nil
		},
	}
}

// mkdirAllLocked is the internal implementation that assumes the lock is held.
func (fs *MockFileSystem) mkdirAllLocked(name string, perm os.FileMode) error {
	if name == "." || name == "/" {
		return nil
	}

	// Create parent directories first
	if err := fs.mkdirAllLocked(path.Dir(name), perm); err != nil {
		return err
	}

	if existing, exists := fs.files[name]; exists {
		if existing.kind != kindDir {
			return &os.PathError{Op: "mkdir", Path: name, Err: ErrNotDir}
		}
		return nil
	}

	fs.putLocked(name, &mockFile{
		modTime: time.Now(),
		kind:    kindDir,
		perm:    perm,
	})

	return nil
}

// putLocked stores file under name with a fresh inode number.
func (fs *MockFileSystem) putLocked(name string, file *mockFile) {
	fs.nextIno++
	file.path = name
	file.ino = fs.nextIno
	fs.files[name] = file
}

// info builds file information presented under the given name.
func (f *mockFile) info(name string) *mockFileInfo {
	mode := f.perm
	switch f.kind {
	case kindDir:
		mode |= os.ModeDir
	case kindSymlink:
		mode |= os.ModeSymlink
	case kindFile:
	}

	return &mockFileInfo{
		name:    name,
		size:    int64(len(f.data)),
		modTime: f.modTime,
		mode:    mode,
		ino:     f.ino,
	}
}
