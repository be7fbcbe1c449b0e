package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/jlaffaye/ftp"
)

// FTPDialer opens plain FTP sessions.
type FTPDialer struct {
	addr string
	cfg  Config
}

func NewFTPDialer(cfg Config) *FTPDialer {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort(ProtocolFTP)
	}
	return &FTPDialer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		cfg:  cfg,
	}
}

func (d *FTPDialer) Dial(ctx context.Context) (Client, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if d.cfg.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(d.cfg.Timeout))
	}

	conn, err := ftp.Dial(d.addr, opts...)
	if err != nil {
		return nil, errs.Network("dial", d.addr, err)
	}
	if err := conn.Login(d.cfg.Username, d.cfg.Password); err != nil {
		conn.Quit()
		return nil, errs.Network("login", d.addr, err)
	}
	return &FTPClient{conn: conn}, nil
}

// FTPClient is a Client backed by an FTP control connection.
type FTPClient struct {
	conn *ftp.ServerConn
}

func (c *FTPClient) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list, err := c.conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, ftpErr(err))
	}

	entries := make([]Entry, 0, len(list))
	for _, e := range list {
		entries = append(entries, ftpEntry(e))
	}
	return entries, nil
}

func (c *FTPClient) Retrieve(ctx context.Context, path string, w io.Writer) error {
	r, err := c.conn.Retr(path)
	if err != nil {
		return fmt.Errorf("retr %s: %w", path, ftpErr(err))
	}

	_, err = io.Copy(w, contextReader{ctx: ctx, r: r})
	// the data connection must be drained and closed before the next command
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("read %s: %w", path, ftpErr(err))
	}
	return nil
}

func (c *FTPClient) Close() error {
	return c.conn.Quit()
}

func ftpEntry(e *ftp.Entry) Entry {
	return Entry{
		Name:    e.Name,
		Size:    int64(e.Size),
		ModTime: e.Time,
		IsDir:   e.Type == ftp.EntryTypeFolder,
		IsFile:  e.Type == ftp.EntryTypeFile,
	}
}

func ftpErr(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		// the server answered, so the session is alive
		return err
	}
	var netErr net.Error
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return err
}
