package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates a bucket on an S3-compatible endpoint.
type S3Config struct {
	Endpoint string
	Bucket   string
	Secure   bool
}

// objectStore is the set of bucket operations the object provider uses.
type objectStore interface {
	list(ctx context.Context, prefix string) <-chan minio.ObjectInfo
	stat(ctx context.Context, key string) (minio.ObjectInfo, error)
	get(ctx context.Context, key string) (io.ReadCloser, error)
	put(ctx context.Context, key string, r io.Reader, size int64) error
	remove(ctx context.Context, key string) error
}

// ObjectFileSystem presents a bucket as a tree: "/" separates levels and a
// directory exists while any key lives under its prefix. Object stores have
// no links, so Stat and Lstat agree and identity is the key itself.
type ObjectFileSystem struct {
	ctx   context.Context //nolint:containedctx // provider methods mirror os and take no context
	store objectStore
}

// NewObjectFileSystem connects to cfg.Endpoint with credentials taken from
// the AWS_* or MINIO_* environment variables.
func NewObjectFileSystem(ctx context.Context, cfg S3Config) (*ObjectFileSystem, error) {
	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
	})

	client, err := minio.New(cfg.Endpoint, &minio.Options{Creds: creds, Secure: cfg.Secure})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client for %s: %w", cfg.Endpoint, err)
	}

	return newObjectFileSystem(ctx, &minioStore{client: client, bucket: cfg.Bucket}), nil
}

func newObjectFileSystem(ctx context.Context, store objectStore) *ObjectFileSystem {
	return &ObjectFileSystem{ctx: ctx, store: store}
}

// Chtimes is not supported; object timestamps are set by the server.
func (o *ObjectFileSystem) Chtimes(name string, _, _ time.Time) error {
	return fmt.Errorf("failed to change times for %s: %w", name, ErrUnsupported)
}

// Create buffers writes and uploads the object on Close.
func (o *ObjectFileSystem) Create(name string) (File, error) {
	key := objectKey(name)
	if key == "" {
		return nil, fmt.Errorf("failed to create %s: %w", name, fs.ErrInvalid)
	}

	return &objectWriter{fsys: o, key: key}, nil
}

// IdentityKey returns the object key behind info.
func (o *ObjectFileSystem) IdentityKey(info os.FileInfo) (any, bool) {
	oi, ok := info.(*objectInfo)
	if !ok {
		return nil, false
	}

	return oi.key, true
}

// Join joins path elements with slashes.
func (o *ObjectFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Lstat is Stat; object stores have no symbolic links.
func (o *ObjectFileSystem) Lstat(name string) (os.FileInfo, error) {
	return o.Stat(name)
}

// MkdirAll is a no-op: prefixes come into being with their first object.
func (o *ObjectFileSystem) MkdirAll(_ string, _ os.FileMode) error {
	return nil
}

// Open streams an object.
func (o *ObjectFileSystem) Open(name string) (File, error) {
	key := objectKey(name)

	info, err := o.Stat(name)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("failed to open %s: is a directory", name) //nolint:err113 // mirrors EISDIR
	}

	body, err := o.store.get(o.ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, notExist(err))
	}

	return &objectReader{ReadCloser: body, info: info}, nil
}

// OpenDir lists one level below name. The listing streams from the server
// and Close stops it.
func (o *ObjectFileSystem) OpenDir(name string) (DirHandle, error) {
	info, err := o.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", name, err)
	}

	if !info.IsDir() {
		return nil, &fs.PathError{Op: "opendir", Path: name, Err: ErrNotDir}
	}

	prefix := dirPrefix(objectKey(name))
	ctx, cancel := context.WithCancel(o.ctx)

	return &objectDirHandle{
		path:    name,
		prefix:  prefix,
		objects: o.store.list(ctx, prefix),
		cancel:  cancel,
	}, nil
}

// Remove deletes an object, or the marker of an empty prefix.
func (o *ObjectFileSystem) Remove(name string) error {
	info, err := o.Stat(name)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	key := objectKey(name)
	if info.IsDir() {
		key = dirPrefix(key)
	}

	err = o.store.remove(o.ctx, key)
	if err != nil && !errors.Is(notExist(err), fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	return nil
}

// SameFile compares object keys.
func (o *ObjectFileSystem) SameFile(path1, path2 string) (bool, error) {
	return objectKey(path1) == objectKey(path2), nil
}

// Stat reports an object as a file and a non-empty prefix as a directory.
func (o *ObjectFileSystem) Stat(name string) (os.FileInfo, error) {
	key := objectKey(name)
	if key == "" {
		return &objectInfo{name: "/", key: "", dir: true}, nil
	}

	obj, err := o.store.stat(o.ctx, key)
	if err == nil {
		return newObjectInfo(obj), nil
	}

	err = notExist(err)
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(o.ctx)
	defer cancel()

	for child := range o.store.list(ctx, dirPrefix(key)) {
		if child.Err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, child.Err)
		}

		return &objectInfo{name: path.Base(key), key: key, dir: true}, nil
	}

	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// objectKey maps a slash path onto a bucket key: no leading slash, no "." root.
func objectKey(name string) string {
	key := strings.TrimPrefix(path.Clean("/"+name), "/")

	return key
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}

	return key + "/"
}

// notExist maps S3 missing-key responses onto fs.ErrNotExist.
func notExist(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %w", fs.ErrNotExist, err)
	}

	return err
}

// objectDirHandle relays a streaming listing.
type objectDirHandle struct {
	path    string
	prefix  string
	objects <-chan minio.ObjectInfo
	cancel  context.CancelFunc
	once    sync.Once
	closed  bool
}

func (h *objectDirHandle) Close() error {
	h.once.Do(func() {
		h.closed = true
		h.cancel()
	})

	return nil
}

func (h *objectDirHandle) Next() (DirEntry, error) {
	if h.closed {
		return nil, os.ErrClosed
	}

	for obj := range h.objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", h.path, obj.Err)
		}

		// A zero-byte "prefix/" marker stands for the directory itself.
		if obj.Key == h.prefix {
			continue
		}

		return dirEntryFromInfo(newObjectInfo(obj)), nil
	}

	return nil, io.EOF
}

// objectInfo describes an object or a prefix.
type objectInfo struct {
	name    string
	key     string
	size    int64
	modTime time.Time
	dir     bool
}

func newObjectInfo(obj minio.ObjectInfo) *objectInfo {
	key := strings.TrimSuffix(obj.Key, "/")

	return &objectInfo{
		name:    path.Base(key),
		key:     key,
		size:    obj.Size,
		modTime: obj.LastModified,
		dir:     strings.HasSuffix(obj.Key, "/"),
	}
}

func (i *objectInfo) IsDir() bool        { return i.dir }
func (i *objectInfo) ModTime() time.Time { return i.modTime }
func (i *objectInfo) Name() string       { return i.name }
func (i *objectInfo) Size() int64        { return i.size }
func (i *objectInfo) Sys() any           { return nil }

func (i *objectInfo) Mode() os.FileMode {
	if i.dir {
		return os.ModeDir | 0o755 //nolint:mnd // synthesized directory mode
	}

	return 0o644 //nolint:mnd // synthesized file mode
}

// objectReader is an open object body.
type objectReader struct {
	io.ReadCloser

	info os.FileInfo
}

func (r *objectReader) Stat() (os.FileInfo, error) {
	return r.info, nil
}

func (r *objectReader) Write(_ []byte) (int, error) {
	return 0, fmt.Errorf("object opened for reading: %w", ErrUnsupported)
}

// objectWriter collects an object body in memory until Close.
type objectWriter struct {
	fsys   *ObjectFileSystem
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.fsys.store.put(w.fsys.ctx, w.key, &w.buf, int64(w.buf.Len()))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", w.key, err)
	}

	return nil
}

func (w *objectWriter) Read(_ []byte) (int, error) {
	return 0, fmt.Errorf("object opened for writing: %w", ErrUnsupported)
}

func (w *objectWriter) Stat() (os.FileInfo, error) {
	return &objectInfo{name: path.Base(w.key), key: w.key, size: int64(w.buf.Len()), modTime: time.Now()}, nil
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.ErrClosed
	}

	return w.buf.Write(p) //nolint:wrapcheck // bytes.Buffer only fails on OOM
}

// minioStore is objectStore over a real bucket.
type minioStore struct {
	client *minio.Client
	bucket string
}

func (s *minioStore) get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{}) //nolint:wrapcheck // wrapped by provider
}

func (s *minioStore) list(ctx context.Context, prefix string) <-chan minio.ObjectInfo {
	return s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix})
}

func (s *minioStore) put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{})

	return err //nolint:wrapcheck // wrapped by provider
}

func (s *minioStore) remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}) //nolint:wrapcheck // wrapped by provider
}

func (s *minioStore) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	return s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}) //nolint:wrapcheck // wrapped by provider
}
