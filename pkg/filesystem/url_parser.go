package filesystem

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Backend names the provider a root path resolves to.
type Backend int

// Backend values.
const (
	BackendLocal Backend = iota
	BackendSFTP
	BackendS3
	BackendMemory
)

// String returns the URL scheme for the backend, or "local".
func (b Backend) String() string {
	switch b {
	case BackendSFTP:
		return "sftp"
	case BackendS3:
		return "s3"
	case BackendMemory:
		return "mem"
	default:
		return "local"
	}
}

// Exported variables.
var (
	ErrInvalidURL = errors.New("invalid root URL")
)

// ParsedPath describes where a root lives and the path within that provider.
type ParsedPath struct {
	Backend  Backend
	IsRemote bool

	// For local paths
	LocalPath string

	// For SFTP and S3 roots
	Host   string
	Port   int
	User   string
	Bucket string
	Secure bool
	Path   string
}

// ParsePath classifies a root:
//   - sftp://user@host[:port]/path  (port defaults to 22; "//path" is absolute)
//   - s3://endpoint/bucket/prefix   (TLS; use s3+http:// for plain HTTP)
//   - mem:///path                   (the process's in-memory tree, empty at start)
//   - anything else is a local path
func ParsePath(path string) (*ParsedPath, error) {
	switch {
	case strings.HasPrefix(path, "sftp://"):
		return parseSFTPURL(path)
	case strings.HasPrefix(path, "s3://"), strings.HasPrefix(path, "s3+http://"):
		return parseS3URL(path)
	case strings.HasPrefix(path, "mem://"):
		memPath := "/" + strings.TrimLeft(strings.TrimPrefix(path, "mem://"), "/")

		return &ParsedPath{Backend: BackendMemory, Path: memPath}, nil
	}

	return &ParsedPath{Backend: BackendLocal, LocalPath: path}, nil
}

// parseS3URL splits s3://endpoint/bucket/prefix.
func parseS3URL(s3URL string) (*ParsedPath, error) {
	u, err := url.Parse(s3URL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("%w: S3 URL must include an endpoint (s3://endpoint/bucket)", ErrInvalidURL)
	}

	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: S3 URL must include a bucket (s3://endpoint/bucket)", ErrInvalidURL)
	}

	return &ParsedPath{
		Backend:  BackendS3,
		IsRemote: true,
		Host:     u.Host,
		Bucket:   bucket,
		Secure:   u.Scheme == "s3",
		Path:     "/" + strings.Trim(prefix, "/"),
	}, nil
}

// parseSFTPURL parses an SFTP URL into its components.
func parseSFTPURL(sftpURL string) (*ParsedPath, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: SFTP URL must include username (sftp://user@host/path)", ErrInvalidURL)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: SFTP URL must include host", ErrInvalidURL)
	}

	port := 22
	if portStr := u.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port number: %w", ErrInvalidURL, err)
		}
	}

	// sftp://user@host/path is relative to the login directory,
	// sftp://user@host//path is absolute, and a bare host is the login directory.
	remotePath := u.Path

	switch {
	case remotePath == "" || remotePath == "/":
		remotePath = "."
	case strings.HasPrefix(remotePath, "//"):
		remotePath = remotePath[1:]
	default:
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return &ParsedPath{
		Backend:  BackendSFTP,
		IsRemote: true,
		Host:     host,
		Port:     port,
		User:     u.User.Username(),
		Path:     remotePath,
	}, nil
}
