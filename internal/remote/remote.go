// Package remote talks to the file server logs are harvested from.
package remote

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrConnectionLost means the session to the server is gone and every further
// call on the same Client will fail.
var ErrConnectionLost = errors.New("remote connection lost")

// Entry is one item of a directory listing.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	IsFile  bool // regular file; links and devices are neither
}

// Lister lists a single directory.
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// Client is an open session to the file server.
type Client interface {
	Lister
	// Retrieve streams the file at path into w.
	Retrieve(ctx context.Context, path string, w io.Writer) error
	Close() error
}

// Dialer opens a new Client. Each poll cycle dials its own session.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
}

// Config holds the connection settings shared by the protocols.
type Config struct {
	Protocol   string // "sftp" or "ftp"
	Host       string
	Port       int
	Username   string
	Password   string
	KnownHosts string // sftp only; empty disables host key verification
	Timeout    time.Duration
}

// NewDialer returns the dialer for cfg.Protocol.
func NewDialer(cfg Config) (Dialer, error) {
	switch cfg.Protocol {
	case "", ProtocolSFTP:
		return NewSFTPDialer(cfg)
	case ProtocolFTP:
		return NewFTPDialer(cfg), nil
	default:
		return nil, errors.New("unsupported protocol " + cfg.Protocol)
	}
}

const (
	ProtocolSFTP = "sftp"
	ProtocolFTP  = "ftp"
)

// DefaultPort returns the well-known port of protocol.
func DefaultPort(protocol string) int {
	if protocol == ProtocolFTP {
		return 21
	}
	return 22
}

// contextReader aborts a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
