package httpparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/internal/brickserr"
)

// Response is a parsed HTTP response: status line, headers, and body. It
// shares the same growable-buffer, Content-Length/chunked body machinery as
// Request — only the first line's grammar differs.
type Response struct {
	Version    string
	StatusCode int
	StatusText string
	Headers    *httpmsg.Headers
	Body       []byte
}

// ParseResponse reads from r until a complete HTTP/1.1 response has been
// parsed, invoking hooks along the way exactly as ParseRequest does.
func ParseResponse(r Reader, hooks Hooks) (*Response, error) {
	st := &parseState{r: r, buf: make([]byte, 0, initialBufferSize)}

	headerEnd, err := readUntilHeadersComplete(st)
	if err != nil {
		return nil, err
	}

	headBytes := append([]byte(nil), st.buf[:headerEnd]...)
	rest := append([]byte(nil), st.buf[headerEnd+4:]...)
	st.buf = rest
	st.compactCount++

	lines := splitLines(headBytes)
	lines = dropLeadingBlankLines(lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty response", brickserr.ErrHTTPConnectionClosedByPeer)
	}

	version, code, text, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Version:    version,
		StatusCode: code,
		StatusText: text,
		Headers:    httpmsg.NewHeaders(),
	}

	var contentLength = -1
	var chunked bool

	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		key, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		resp.Headers.Add(key, value)
		if hooks.OnHeader != nil {
			hooks.OnHeader(key, value)
		}
		switch strings.ToLower(key) {
		case "content-length":
			if n, err := strconv.Atoi(value); err == nil {
				contentLength = n
			}
		case "transfer-encoding":
			if strings.EqualFold(strings.TrimSpace(value), "chunked") {
				chunked = true
			}
		}
	}

	bodyConsumer := func(b []byte) {
		if hooks.OnChunk != nil {
			hooks.OnChunk(b)
		} else {
			resp.Body = append(resp.Body, b...)
		}
	}

	switch {
	case chunked:
		if err := readChunkedBody(st, bodyConsumer); err != nil {
			return nil, err
		}
	case contentLength >= 0:
		if err := readFixedLengthBody(st, contentLength, bodyConsumer); err != nil {
			return nil, err
		}
	default:
		// No Content-Length and not chunked: for a response (unlike a
		// request) this means "read until the peer closes the
		// connection", since responses are allowed to delimit their
		// body by EOF under HTTP/1.0 semantics.
		drainUntilEOF(st, bodyConsumer)
	}

	return resp, nil
}

func drainUntilEOF(st *parseState, deliver func([]byte)) {
	if len(st.buf) > 0 {
		deliver(st.buf)
		st.buf = st.buf[:0]
	}
	for {
		if err := st.fill(); err != nil {
			return
		}
		if len(st.buf) > 0 {
			deliver(st.buf)
			st.buf = st.buf[:0]
		}
	}
}

func parseStatusLine(line string) (version string, code int, text string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", fmt.Errorf("%w: malformed status line %q", brickserr.ErrHTTPConnectionClosedByPeer, line)
	}
	version = parts[0]
	code, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: malformed status code %q", brickserr.ErrHTTPConnectionClosedByPeer, parts[1])
	}
	if len(parts) == 3 {
		text = parts[2]
	}
	return version, code, text, nil
}
