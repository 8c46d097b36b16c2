package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPConfig configures an SFTPBackend.
type SFTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	KnownHosts string
	Path       string
	BaseURL    string
	Timeout    time.Duration
}

// sftpDialer opens a client and returns a func closing every resource it holds.
type sftpDialer func(ctx context.Context) (*sftp.Client, func() error, error)

// SFTPBackend stores objects in a remote directory reachable over SSH. A
// connection is opened per operation; uploads are infrequent and this keeps
// the backend free of reconnect logic.
type SFTPBackend struct {
	basePath string
	baseURL  string
	dial     sftpDialer
}

// NewSFTPBackend validates cfg and prepares the SSH client configuration.
func NewSFTPBackend(cfg SFTPConfig, logger *slog.Logger) (*SFTPBackend, error) {
	if cfg.Host == "" {
		return nil, errors.New("sftp: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	sshConfig := &ssh.ClientConfig{
		User:    cfg.Username,
		Timeout: cfg.Timeout,
	}

	switch {
	case cfg.KeyFile != "":
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: parse private key: %w", err)
		}
		sshConfig.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	case cfg.Password != "":
		sshConfig.Auth = []ssh.AuthMethod{ssh.Password(cfg.Password)}
	default:
		return nil, errors.New("sftp: no authentication method provided")
	}

	if cfg.KnownHosts != "" {
		callback, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known hosts: %w", err)
		}
		sshConfig.HostKeyCallback = callback
	} else {
		logger.Warn("sftp host key verification disabled; set storage.sftp.known_hosts",
			slog.String("host", cfg.Host))
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via missing known_hosts
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &SFTPBackend{
		basePath: strings.TrimRight(cfg.Path, "/"),
		baseURL:  cfg.BaseURL,
		dial:     sshDialer(addr, sshConfig),
	}, nil
}

// sshDialer connects over TCP honoring ctx, then performs the SSH and SFTP handshakes.
func sshDialer(addr string, config *ssh.ClientConfig) sftpDialer {
	return func(ctx context.Context) (*sftp.Client, func() error, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("sftp: connect: %w", err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("sftp: handshake: %w", err)
		}
		sshClient := ssh.NewClient(sshConn, chans, reqs)

		client, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, nil, fmt.Errorf("sftp: create client: %w", err)
		}
		return client, func() error {
			client.Close()
			return sshClient.Close()
		}, nil
	}
}

// Name implements Backend.
func (b *SFTPBackend) Name() string {
	return "sftp"
}

func (b *SFTPBackend) remotePath(key string) string {
	if b.basePath == "" {
		return key
	}
	return path.Join(b.basePath, key)
}

// Put implements Backend.
func (b *SFTPBackend) Put(ctx context.Context, key, _ string, data []byte) error {
	client, closeFn, err := b.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck // connection teardown

	remote := b.remotePath(key)
	if err := client.MkdirAll(path.Dir(remote)); err != nil {
		return fmt.Errorf("sftp: create directory: %w", err)
	}

	f, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("sftp: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		client.Remove(remote) //nolint:errcheck // best-effort removal of a partial object
		return fmt.Errorf("sftp: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sftp: close file: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *SFTPBackend) Delete(ctx context.Context, key string) error {
	client, closeFn, err := b.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck // connection teardown

	if err := client.Remove(b.remotePath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("sftp: remove file: %w", err)
	}
	return nil
}

// URL implements Backend.
func (b *SFTPBackend) URL(key string) string {
	return joinURL(b.baseURL, key)
}

// KeyFromURL implements Backend.
func (b *SFTPBackend) KeyFromURL(url string) (string, bool) {
	return keyFromURL(b.baseURL, url)
}
