package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDialer opens SFTP sessions over SSH with password authentication.
type SFTPDialer struct {
	addr      string
	sshConfig *ssh.ClientConfig
	cfg       Config
}

func NewSFTPDialer(cfg Config) (*SFTPDialer, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", cfg.KnownHosts, err)
		}
		hostKeyCallback = cb
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort(ProtocolSFTP)
	}

	return &SFTPDialer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		sshConfig: &ssh.ClientConfig{
			User:            cfg.Username,
			Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.Timeout,
		},
		cfg: cfg,
	}, nil
}

func (d *SFTPDialer) Dial(ctx context.Context) (Client, error) {
	dialer := net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, errs.Network("dial", d.addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, d.addr, d.sshConfig)
	if err != nil {
		conn.Close()
		return nil, errs.Network("ssh handshake", d.addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errs.Network("sftp session", d.addr, err)
	}

	return NewSFTPClient(client, sshClient), nil
}

// SFTPClient is a Client backed by an sftp session.
type SFTPClient struct {
	client *sftp.Client
	conn   io.Closer
}

// NewSFTPClient wraps an established sftp session. conn, if not nil, is
// closed after the session.
func NewSFTPClient(client *sftp.Client, conn io.Closer) *SFTPClient {
	return &SFTPClient{client: client, conn: conn}
}

func (c *SFTPClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := c.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, sftpErr(err))
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
			IsFile:  info.Mode().IsRegular(),
		})
	}
	return entries, nil
}

func (c *SFTPClient) Retrieve(ctx context.Context, path string, w io.Writer) error {
	f, err := c.client.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, sftpErr(err))
	}
	defer f.Close()

	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	if _, err := f.WriteTo(w); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("read %s: %w", path, sftpErr(err))
	}
	return nil
}

func (c *SFTPClient) Close() error {
	err := c.client.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func sftpErr(err error) error {
	if errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return err
}
