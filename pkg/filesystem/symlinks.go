package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path"
)

// Exported constants.
const (
	// MaxSymlinkHops bounds symbolic link resolution, matching Linux MAXSYMLINKS.
	MaxSymlinkHops = 40
)

// Exported variables.
var (
	ErrTooManyLinks = errors.New("too many levels of symbolic links")
	ErrNotDir       = errors.New("not a directory")
)

// linkReader exposes just enough of a backend to resolve slash-separated paths.
type linkReader struct {
	lstat    func(name string) (os.FileInfo, error)
	readlink func(name string) (string, error)
}

// resolve rewrites name until none of its components is a symbolic link.
// The final component is left alone when followLast is false.
func (r linkReader) resolve(name string, followLast bool) (string, error) {
	cur := path.Clean(name)

	for range MaxSymlinkHops {
		next, replaced, err := r.step(cur, followLast)
		if err != nil {
			return "", err
		}

		if !replaced {
			return cur, nil
		}

		cur = next
	}

	return "", &fs.PathError{Op: "resolve", Path: name, Err: ErrTooManyLinks}
}

// step replaces the first symbolic link found in cur with its target.
func (r linkReader) step(cur string, followLast bool) (string, bool, error) {
	prefixes := pathPrefixes(cur)
	for i, prefix := range prefixes {
		info, err := r.lstat(prefix)
		if err != nil {
			return "", false, err
		}

		last := i == len(prefixes)-1
		if info.Mode()&os.ModeSymlink != 0 && (!last || followLast) {
			target, err := r.readlink(prefix)
			if err != nil {
				return "", false, err
			}

			if !path.IsAbs(target) {
				target = path.Join(path.Dir(prefix), target)
			}

			return path.Clean(target + cur[len(prefix):]), true, nil
		}

		if !last && !info.IsDir() {
			return "", false, &fs.PathError{Op: "resolve", Path: prefix, Err: ErrNotDir}
		}
	}

	return cur, false, nil
}

// pathPrefixes lists the cumulative prefixes of a clean slash path.
// "/a/b" yields "/a", "/a/b"; "a/b" yields "a", "a/b"; roots yield nothing.
func pathPrefixes(p string) []string {
	if p == "/" || p == "." || p == "" {
		return nil
	}

	var prefixes []string
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			prefixes = append(prefixes, p[:i])
		}
	}

	return append(prefixes, p)
}
