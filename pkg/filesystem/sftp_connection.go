package filesystem

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Exported variables.
var (
	ErrNoAuthMethods = errors.New("no SSH authentication methods available (tried SSH agent and default keys)")
)

// SFTPConnection owns one SSH connection and the SFTP session opened on it.
type SFTPConnection struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	host       string
	port       int
	user       string

	closeOnce sync.Once
	closeErr  error
}

// Connect dials host:port as user and opens an SFTP session.
// Authentication tries the SSH agent first, then the default key files in ~/.ssh.
// Host keys are checked against ~/.ssh/known_hosts when that file exists.
func Connect(host string, port int, user string) (*SFTPConnection, error) {
	auth := sshAuthMethods()
	if len(auth) == 0 {
		return nil, ErrNoAuthMethods
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback(),
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH connection to %s failed: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("SFTP session on %s failed: %w", addr, err)
	}

	return &SFTPConnection{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		host:       host,
		port:       port,
		user:       user,
	}, nil
}

// Client returns the SFTP session opened by Connect.
func (c *SFTPConnection) Client() *sftp.Client {
	return c.sftpClient
}

// Close ends the SFTP session and then the SSH connection. Later calls
// return the result of the first.
func (c *SFTPConnection) Close() error {
	c.closeOnce.Do(func() {
		var errs []error

		if c.sftpClient != nil {
			errs = append(errs, c.sftpClient.Close())
		}

		if c.sshClient != nil {
			errs = append(errs, c.sshClient.Close())
		}

		c.closeErr = errors.Join(errs...)
	})

	return c.closeErr
}

// SSHClient returns the SSH connection so pools can open more sessions on it.
func (c *SFTPConnection) SSHClient() *ssh.Client {
	return c.sshClient
}

// String renders the connection as user@host:port.
func (c *SFTPConnection) String() string {
	return fmt.Sprintf("%s@%s", c.user, net.JoinHostPort(c.host, strconv.Itoa(c.port)))
}

// hostKeyCallback verifies against known_hosts, or accepts any key when
// the user has no known_hosts file.
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		callback, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
		if err == nil {
			return callback
		}
	}

	slog.Warn("no usable known_hosts file, host keys will not be verified")

	return ssh.InsecureIgnoreHostKey() //nolint:gosec // only when known_hosts is missing
}

// sshAuthMethods collects the agent signer and any unencrypted default keys.
func sshAuthMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return methods
	}

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyData, err := os.ReadFile(filepath.Join(home, ".ssh", name)) // #nosec G304 - fixed key locations
		if err != nil {
			continue
		}

		// Passphrase-protected keys are skipped; the agent covers those.
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			continue
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	return methods
}
