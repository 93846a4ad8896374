// Package fileops implements whole-tree operations (copy, removal, disk
// usage) on top of the walk engine, against any filesystem provider.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joe/treewalk/pkg/filesystem"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
)

// Exported variables.
var (
	ErrCopyCancelled           = errors.New("copy cancelled")
	ErrContentDiffers          = errors.New("copied content differs from source")
	ErrDestinationInsideSource = errors.New("destination is inside the source tree")
)

// CopyStats contains timing information about a copy operation
type CopyStats struct {
	BytesCopied int64
	ReadTime    time.Duration
	WriteTime   time.Duration
}

// add folds one file's stats into a running total.
func (s *CopyStats) add(other CopyStats) {
	s.BytesCopied += other.BytesCopied
	s.ReadTime += other.ReadTime
	s.WriteTime += other.WriteTime
}

// ProgressCallback is called during file operations to report progress
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// FileOps runs tree operations. Source is walked and read; Dest receives
// copies. For single-filesystem operations Dest may be nil.
type FileOps struct {
	SourceFS filesystem.FileSystem
	DestFS   filesystem.FileSystem
	Logger   *slog.Logger
}

// NewFileOps creates a FileOps working within one filesystem.
func NewFileOps(fs filesystem.FileSystem) *FileOps {
	return &FileOps{SourceFS: fs, DestFS: fs}
}

// NewDualFileOps creates a FileOps copying between two filesystems, e.g. local to SFTP.
func NewDualFileOps(sourceFS, destFS filesystem.FileSystem) *FileOps {
	return &FileOps{SourceFS: sourceFS, DestFS: destFS}
}

// CompareFiles reports whether src on the source filesystem and dst on the
// destination filesystem have identical contents.
func (fo *FileOps) CompareFiles(src, dst string) (bool, error) {
	file1, err := fo.SourceFS.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open file %s: %w", src, err)
	}

	defer func() {
		_ = file1.Close()
	}()

	file2, err := fo.destFS().Open(dst)
	if err != nil {
		return false, fmt.Errorf("failed to open file %s: %w", dst, err)
	}

	defer func() {
		_ = file2.Close()
	}()

	identical, err := compareFileContents(file1, file2)
	if err != nil {
		return false, fmt.Errorf("failed to compare %s and %s: %w", src, dst, err)
	}

	return identical, nil
}

// CopyFile copies one file from the source to the destination filesystem,
// preserving its modification time. A cancelled ctx aborts the copy and
// removes the partial destination file.
func (fo *FileOps) CopyFile(ctx context.Context, src, dst string, progress ProgressCallback) (CopyStats, error) {
	var stats CopyStats

	dstFS := fo.destFS()

	sourceFile, err := fo.SourceFS.Open(src)
	if err != nil {
		return stats, fmt.Errorf("failed to open source file %s: %w", src, err)
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return stats, fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	destFile, err := dstFS.Create(dst)
	if err != nil {
		return stats, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	copyCompleted := false

	defer func() {
		_ = destFile.Close()
		if !copyCompleted {
			_ = dstFS.Remove(dst)
		}
	}()

	written, err := copyLoop(ctx, sourceFile, destFile, &stats, sourceInfo.Size(), src, progress)
	if err != nil {
		return stats, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	stats.BytesCopied = written

	// Close before Chtimes; remote and object stores finalize on close.
	err = destFile.Close()
	if err != nil {
		return stats, fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	err = dstFS.Chtimes(dst, sourceInfo.ModTime(), sourceInfo.ModTime())
	if err != nil && !errors.Is(err, filesystem.ErrUnsupported) {
		return stats, fmt.Errorf("failed to preserve modification time for %s: %w", dst, err)
	}

	copyCompleted = true

	return stats, nil
}

func (fo *FileOps) destFS() filesystem.FileSystem {
	if fo.DestFS != nil {
		return fo.DestFS
	}

	return fo.SourceFS
}

func (fo *FileOps) logger() *slog.Logger {
	if fo.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return fo.Logger
}

// checkCancellation maps a done context to ErrCopyCancelled.
func checkCancellation(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCopyCancelled, context.Cause(ctx))
	}

	return nil
}

// compareFileContents performs byte-by-byte comparison of two open files.
func compareFileContents(file1, file2 io.Reader) (bool, error) {
	buf1 := make([]byte, BufferSize)
	buf2 := make([]byte, BufferSize)

	for {
		//nolint:varnamelen // n1/n2 are idiomatic for bytes read
		n1, err1 := io.ReadFull(file1, buf1)
		n2, err2 := io.ReadFull(file2, buf2)

		if n1 != n2 || string(buf1[:n1]) != string(buf2[:n2]) {
			return false, nil
		}

		end1 := errors.Is(err1, io.EOF) || errors.Is(err1, io.ErrUnexpectedEOF)
		end2 := errors.Is(err2, io.EOF) || errors.Is(err2, io.ErrUnexpectedEOF)

		switch {
		case end1 && end2:
			return true, nil
		case err1 != nil && !end1:
			return false, fmt.Errorf("failed to read from first file: %w", err1)
		case err2 != nil && !end2:
			return false, fmt.Errorf("failed to read from second file: %w", err2)
		case end1 != end2:
			return false, nil
		}
	}
}

// copyLoop performs the actual file copy with progress tracking and timing.
func copyLoop(
	ctx context.Context,
	sourceFile, destFile filesystem.File,
	stats *CopyStats,
	sourceSize int64,
	srcPath string,
	progress ProgressCallback,
) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		err := checkCancellation(ctx)
		if err != nil {
			return written, err
		}

		readStart := time.Now()
		nr, err := sourceFile.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		stats.ReadTime += time.Since(readStart)

		if nr > 0 {
			writeStart := time.Now()
			nw, writeErr := destFile.Write(buf[:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			stats.WriteTime += time.Since(writeStart)

			if writeErr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", writeErr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, sourceSize, srcPath)
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}
}
