package socket

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/currentframework/bricks/internal/brickserr"
)

// ReadPolicy selects how Connection.BlockingRead treats a read that returns
// fewer bytes than the caller's buffer can hold.
type ReadPolicy int

const (
	// ReturnASAP returns as soon as at least one byte has been read,
	// without waiting to fill the buffer. This is the policy the HTTP
	// parser uses: it wants whatever bytes are already available so it
	// can re-run its state machine over them.
	ReturnASAP ReadPolicy = iota
	// FillFullBuffer loops until the buffer is completely full or the
	// peer closes the connection.
	FillFullBuffer
)

// Connection wraps a *Handle with the blocking read/write helpers the rest
// of this module builds on, translating net.Conn's error values into the
// brickserr taxonomy so callers can branch on failure kind instead of
// string-matching net.OpError.
type Connection struct {
	handle *Handle
}

// NewConnection wraps an already-connected net.Conn.
func NewConnection(c net.Conn) *Connection {
	return &Connection{handle: WrapConn(c)}
}

// Handle returns the underlying socket handle.
func (c *Connection) Handle() *Handle { return c.handle }

// LocalEndpoint returns the local address string ("host:port") of the
// connection, or an error if the handle is no longer valid.
func (c *Connection) LocalEndpoint() (string, error) {
	conn, err := c.handle.Conn()
	if err != nil {
		return "", fmt.Errorf("%w: local endpoint", brickserr.ErrSocketGetSockName)
	}
	return conn.LocalAddr().String(), nil
}

// RemoteEndpoint returns the remote address string ("host:port") of the
// connection, or an error if the handle is no longer valid.
func (c *Connection) RemoteEndpoint() (string, error) {
	conn, err := c.handle.Conn()
	if err != nil {
		return "", err
	}
	return conn.RemoteAddr().String(), nil
}

// BlockingRead reads into buf according to policy. With ReturnASAP it
// returns after the first successful Read call; with FillFullBuffer it loops
// until buf is full or the peer closes the connection.
//
// An orderly close by the peer (net.Conn's io.EOF) before any byte was read
// is reported as io.EOF; after some bytes it ends the read without error. A
// read that returns zero bytes with no error is reported as
// ErrEmptySocketRead. A reset
// mid-message distinguishes EmptyConnectionResetByPeer (zero bytes read so
// far) from ConnectionResetByPeer (some bytes already consumed), since a
// caller mid-way through a request body needs to know whether any of it
// arrived intact.
func (c *Connection) BlockingRead(buf []byte, policy ReadPolicy) (int, error) {
	conn, err := c.handle.Conn()
	if err != nil {
		return 0, err
	}

	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if total == 0 {
					return 0, io.EOF
				}
				return total, nil
			}
			if isResetError(err) {
				if total == 0 {
					return 0, fmt.Errorf("%w", brickserr.ErrEmptyConnectionResetByPeer)
				}
				return total, fmt.Errorf("%w", brickserr.ErrConnectionResetByPeer)
			}
			return total, fmt.Errorf("%w: %v", brickserr.ErrSocketRead, err)
		}
		if n == 0 {
			return total, fmt.Errorf("%w", brickserr.ErrEmptySocketRead)
		}
		if policy == ReturnASAP {
			return total, nil
		}
	}
	return total, nil
}

// BlockingWrite writes all of buf, looping over short writes, and reports
// ErrSocketCouldNotWriteEverything only if the connection is closed before
// every byte is sent.
func (c *Connection) BlockingWrite(buf []byte) error {
	conn, err := c.handle.Conn()
	if err != nil {
		return err
	}

	total := 0
	for total < len(buf) {
		n, err := conn.Write(buf[total:])
		total += n
		if err != nil {
			return fmt.Errorf("%w: wrote %d of %d bytes: %v", brickserr.ErrSocketCouldNotWriteEverything, total, len(buf), err)
		}
	}
	return nil
}

// SetDeadline forwards to the underlying net.Conn, allowing callers to bound
// BlockingRead/BlockingWrite calls without threading a context through every
// layer.
func (c *Connection) SetDeadline(t time.Time) error {
	conn, err := c.handle.Conn()
	if err != nil {
		return err
	}
	return conn.SetDeadline(t)
}

// CloseWrite half-closes the write side of the connection (TCP FIN), while
// leaving the read side open so a final response can still be received.
func (c *Connection) CloseWrite() error {
	conn, err := c.handle.Conn()
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		return tc.CloseWrite()
	}
	return conn.Close()
}

// CloseRead half-closes the read side of the connection.
func (c *Connection) CloseRead() error {
	conn, err := c.handle.Conn()
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		return tc.CloseRead()
	}
	return conn.Close()
}

// Close releases the connection's handle.
func (c *Connection) Close() error {
	return c.handle.Close()
}

// isResetError reports whether err wraps ECONNRESET, matched against the
// string form since net.OpError nests platform-specific syscall.Errno values
// that vary across build tags.
func isResetError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "reset by peer")
}
