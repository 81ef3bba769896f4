// Package httpserver implements the HTTP/1.1 server side: a connection
// wrapper enforcing respond-at-most-once, a prefix/method/arg-count router
// with RAII-style scope registration, and static file serving — all built
// on socket.Connection and httpparser rather than net/http.
package httpserver

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/httpparser"
	"github.com/currentframework/bricks/internal/brickserr"
	"github.com/currentframework/bricks/socket"
)

// Conn wraps one accepted connection together with its parsed request, and
// enforces that exactly one response is sent on it.
type Conn struct {
	connection *socket.Connection
	Request    *httpparser.Request

	responded int32 // atomic: 0 = not yet responded, 1 = responded
	chunkedTx *ChunkedSender
}

// NewConn wraps conn and its already-parsed request.
func NewConn(conn *socket.Connection, req *httpparser.Request) *Conn {
	return &Conn{connection: conn, Request: req}
}

// Connection returns the underlying socket connection.
func (c *Conn) Connection() *socket.Connection { return c.connection }

func (c *Conn) markResponded() error {
	if !atomic.CompareAndSwapInt32(&c.responded, 0, 1) {
		return fmt.Errorf("%w", brickserr.ErrAttemptedToSendHTTPResponseTwice)
	}
	return nil
}

// hasResponded reports whether a response has already been sent on this
// Conn, so the server can tell a handler that returned silently apart from
// one that already wrote its own response.
func (c *Conn) hasResponded() bool {
	return atomic.LoadInt32(&c.responded) == 1
}

// SendHTTPResponse writes a complete fixed-length response: status line,
// Content-Type, Connection: close, Content-Length, user headers, a blank
// line, then body. Exactly one successful call is allowed per Conn.
func (c *Conn) SendHTTPResponse(body []byte, code int, headers *httpmsg.Headers, contentType string) error {
	if err := c.markResponded(); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	var buf []byte
	buf = appendStatusLine(buf, code)
	buf = appendHeaderLine(buf, "Content-Type", contentType)
	buf = appendHeaderLine(buf, "Connection", "close")
	buf = appendHeaderLine(buf, "Content-Length", strconv.Itoa(len(body)))
	if headers != nil {
		headers.Each(func(key, value string) {
			buf = appendHeaderLine(buf, key, value)
		})
	}
	buf = append(buf, '\r', '\n')
	buf = append(buf, body...)

	return c.connection.BlockingWrite(buf)
}

// SendResponse sends resp (a *httpmsg.Response), resolving its body,
// content type, headers, and cookies.
func (c *Conn) SendResponse(resp *httpmsg.Response) error {
	body, err := resp.Bytes()
	if err != nil {
		return fmt.Errorf("httpserver: serialize response body: %w", err)
	}
	headers := resp.Headers().Clone()
	for _, sc := range resp.SetCookies() {
		headers.Add("Set-Cookie", sc.String())
	}
	if resp.CORSEnabled() {
		headers.Set("Access-Control-Allow-Origin", "*")
		headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "*")
	}
	return c.SendHTTPResponse(body, resp.StatusCode(), headers, resp.ContentTypeValue())
}

// ChunkedSender is returned by SendChunkedHTTPResponse; each Send call
// writes one hex-length-prefixed chunk, and Close writes the terminating
// zero-length chunk.
type ChunkedSender struct {
	conn   *socket.Connection
	closed bool
}

// Send writes one chunk: its hex length, CRLF, the bytes, CRLF.
func (s *ChunkedSender) Send(b []byte) error {
	if s.closed {
		return fmt.Errorf("httpserver: chunked sender already closed")
	}
	buf := []byte(fmt.Sprintf("%x\r\n", len(b)))
	buf = append(buf, b...)
	buf = append(buf, '\r', '\n')
	return s.conn.BlockingWrite(buf)
}

// Close writes the terminating "0\r\n\r\n" chunk. It is safe to call
// multiple times; only the first call writes anything.
func (s *ChunkedSender) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.BlockingWrite([]byte("0\r\n\r\n"))
}

// SendChunkedHTTPResponse writes the status line, Connection: keep-alive,
// Transfer-Encoding: chunked, and user headers, then returns a
// ChunkedSender for the body. Exactly one of SendHTTPResponse /
// SendChunkedHTTPResponse is allowed per Conn.
func (c *Conn) SendChunkedHTTPResponse(code int, headers *httpmsg.Headers, contentType string) (*ChunkedSender, error) {
	if err := c.markResponded(); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	var buf []byte
	buf = appendStatusLine(buf, code)
	buf = appendHeaderLine(buf, "Content-Type", contentType)
	buf = appendHeaderLine(buf, "Connection", "keep-alive")
	buf = appendHeaderLine(buf, "Transfer-Encoding", "chunked")
	if headers != nil {
		headers.Each(func(key, value string) {
			buf = appendHeaderLine(buf, key, value)
		})
	}
	buf = append(buf, '\r', '\n')

	if err := c.connection.BlockingWrite(buf); err != nil {
		return nil, err
	}

	sender := &ChunkedSender{conn: c.connection}
	c.chunkedTx = sender
	return sender, nil
}

func appendStatusLine(buf []byte, code int) []byte {
	buf = append(buf, "HTTP/1.1 "...)
	buf = append(buf, strconv.Itoa(code)...)
	buf = append(buf, ' ')
	buf = append(buf, statusText(code)...)
	buf = append(buf, '\r', '\n')
	return buf
}

func appendHeaderLine(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ':', ' ')
	buf = append(buf, value...)
	buf = append(buf, '\r', '\n')
	return buf
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 202:
		return "Accepted"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 411:
		return "Length Required"
	case 413:
		return "Request Entity Too Large"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown Code"
	}
}
