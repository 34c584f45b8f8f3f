package sqlclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuannm99/flatsql/internal/sql/executor"
	"github.com/tuannm99/flatsql/server/flatsqlwire"
)

// ServerError is an error reported by the server for one request.
type ServerError struct {
	Message string
	Kind    executor.ErrorKind
}

func (e *ServerError) Error() string { return e.Message }

// Busy reports whether the server refused the session because another
// client owns the storage directory.
func (e *ServerError) Busy() bool { return e.Kind == flatsqlwire.ErrorKindBusy }

// Client is a simple synchronous client.
// Exec calls may come from several goroutines; they serialize on the connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// Optional per-request timeout (0 = no timeout).
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	return DialContext(context.Background(), addr, timeout)
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// SetRWTimeout sets a per-Exec read/write deadline.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ExecSQL makes Client usable wherever a local executor is.
func (c *Client) ExecSQL(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) Exec(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("sqlclient: nil client")
	}

	reqID := c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	defer func() {
		// Clear deadline so an idle connection doesn't expire.
		_ = c.conn.SetDeadline(time.Time{})
	}()

	req := flatsqlwire.ExecuteRequest{ID: reqID, SQL: sql}
	if err := flatsqlwire.WriteFrame(c.conn, req); err != nil {
		return nil, err
	}

	var resp flatsqlwire.ExecuteResponse
	if err := flatsqlwire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}

	if resp.ID != reqID {
		return nil, fmt.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, reqID)
	}
	if resp.Error != "" {
		return nil, &ServerError{Message: resp.Error, Kind: resp.ErrorKind}
	}
	return resp.Result, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	// Prefer context deadline if present; otherwise use rwTimeout.
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
