// Package transport uploads deposit artifacts to the catalog over SFTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/ports"
)

const defaultTimeout = 30 * time.Second

// Connection is an open file-transfer session.
type Connection interface {
	// Upload writes src to remotePath and returns the bytes the server
	// acknowledged.
	Upload(remotePath string, src io.Reader) (int64, error)
	Close() error
}

// Connector opens a Connection to endpoint.
type Connector func(ctx context.Context, endpoint domain.Endpoint, credentials domain.Credentials) (Connection, error)

// Options configure host-key trust and timeouts.
type Options struct {
	// InsecureIgnoreHostKey accepts any server key. The legacy catalog drop
	// does not publish a stable key.
	InsecureIgnoreHostKey bool
	// KnownHostsFile is enforced when InsecureIgnoreHostKey is false.
	KnownHostsFile string
	Timeout        time.Duration
}

// SFTPTransporter deposits one file per call.
type SFTPTransporter struct {
	connect Connector
	logger  *slog.Logger
}

var _ ports.Transporter = (*SFTPTransporter)(nil)

// NewSFTPTransporter builds a transporter dialing real SSH servers.
func NewSFTPTransporter(opts Options, logger *slog.Logger) (*SFTPTransporter, error) {
	hostKeys, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return NewWithConnector(func(ctx context.Context, endpoint domain.Endpoint, credentials domain.Credentials) (Connection, error) {
		return dialSFTP(ctx, endpoint, credentials, hostKeys, timeout)
	}, logger), nil
}

// NewWithConnector uses connect instead of dialing SSH.
func NewWithConnector(connect Connector, logger *slog.Logger) *SFTPTransporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SFTPTransporter{connect: connect, logger: logger}
}

// Deposit uploads path to endpoint's folder under its basename. Every failure
// is a *domain.TransportError.
func (t *SFTPTransporter) Deposit(ctx context.Context, path string, credentials domain.Credentials, endpoint domain.Endpoint) error {
	fail := func(err error) error {
		return &domain.TransportError{Endpoint: endpoint.String(), Diagnostic: err.Error(), Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	unlock, err := lockFile(f)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	info, err := f.Stat()
	if err != nil {
		return fail(fmt.Errorf("stat %s: %w", path, err))
	}

	conn, err := t.connect(ctx, endpoint, credentials)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()

	remote := endpoint.RemotePath(filepath.Base(path))
	sent, err := conn.Upload(remote, f)
	if err != nil {
		return fail(fmt.Errorf("upload %s: %w", remote, err))
	}
	if err := verifyTransfer(sent, info.Size()); err != nil {
		return fail(err)
	}

	t.logger.Info("file deposited", "remote", remote, "bytes", sent)
	return nil
}

var errEmptyTransfer = errors.New("server acknowledged zero bytes")

func verifyTransfer(sent, size int64) error {
	if sent == 0 {
		return errEmptyTransfer
	}
	if sent != size {
		return fmt.Errorf("transferred %d of %d bytes", sent, size)
	}
	return nil
}

func hostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if opts.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if opts.KnownHostsFile == "" {
		return nil, fmt.Errorf("known hosts file required when host key checking is enabled")
	}
	callback, err := knownhosts.New(opts.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}
	return callback, nil
}

type sftpConnection struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func dialSFTP(ctx context.Context, endpoint domain.Endpoint, credentials domain.Credentials, hostKeys ssh.HostKeyCallback, timeout time.Duration) (Connection, error) {
	config := &ssh.ClientConfig{
		User: credentials.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(credentials.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = credentials.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	raw, err := dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint.Address(), err)
	}

	conn, chans, reqs, err := ssh.NewClientConn(raw, endpoint.Address(), config)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	client := ssh.NewClient(conn, chans, reqs)

	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("start sftp: %w", err)
	}
	return &sftpConnection{ssh: client, sftp: sc}, nil
}

func (c *sftpConnection) Upload(remotePath string, src io.Reader) (int64, error) {
	return upload(c.sftp, remotePath, src)
}

func (c *sftpConnection) Close() error {
	sftpErr := c.sftp.Close()
	sshErr := c.ssh.Close()
	return errors.Join(sftpErr, sshErr)
}

func upload(client *sftp.Client, remotePath string, src io.Reader) (int64, error) {
	dst, err := client.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("create remote file: %w", err)
	}

	n, err := dst.ReadFrom(src)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close remote file: %w", closeErr)
	}
	return n, err
}
