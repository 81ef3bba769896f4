// Package httpparser implements the wire-level HTTP/1.1 request parser: a
// stream-oriented state machine reading off a growable byte buffer, rather
// than net/http's ReadRequest. It exists as its own package because both
// httpserver and client need to parse HTTP messages read off a raw
// socket.Connection, and neither wants to depend on the other.
package httpparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/internal/brickserr"
)

const (
	initialBufferSize  = 100
	bufferGrowthFactor = 2.0
	maxBodySize        = 16 * 1024 * 1024 // 16 MiB
)

// Reader is the minimal source a Request parses from: one chunk of bytes
// at a time, exactly what socket.Connection.BlockingRead already provides.
// Parsing depends only on this interface so tests can drive it from an
// in-memory byte feed without a real socket.
type Reader interface {
	// Read returns the next chunk of input. It returns (nil, nil) only
	// at true end of stream with no more data coming.
	Read() ([]byte, error)
}

// Hooks receives per-header and per-chunk callbacks as the parser consumes
// input, the integration point streaming consumers (cookie accumulation,
// chunked relays) hook into instead of waiting for the whole message.
type Hooks struct {
	// OnHeader is called once per header line, in wire order, before
	// Content-Length/Transfer-Encoding/Cookie have been special-cased.
	OnHeader func(key, value string)
	// OnChunk is called once per decoded chunked-body chunk (fixed-length
	// bodies are delivered as a single synthetic chunk). The default
	// behavior when OnChunk is nil is to append to Request.Body.
	OnChunk func(b []byte)
}

// Request is the parsed result: method, decoded URL, headers, cookies, and
// body, plus the raw first line fields for diagnostics.
type Request struct {
	Method  string
	RawPath string
	Version string
	URL     *httpmsg.URL
	Headers *httpmsg.Headers
	Cookies *httpmsg.Cookies
	Body    []byte
}

// parseState tracks the growable input buffer across Read calls. buf always
// holds the bytes read so far that have not yet been consumed by the
// caller; compact drops a consumed prefix, and fill grows buf (reallocating
// if its capacity is exhausted) to make room for the next Read.
type parseState struct {
	buf []byte
	r   Reader

	growEvents   int // number of times buf was reallocated to a larger capacity
	compactCount int // number of times a consumed prefix was dropped
}

func (p *parseState) fill() error {
	chunk, err := p.r.Read()
	if err != nil {
		return err
	}
	if len(chunk) == 0 {
		return fmt.Errorf("%w", brickserr.ErrHTTPConnectionClosedByPeer)
	}
	if cap(p.buf)-len(p.buf) < len(chunk) {
		needed := len(p.buf) + len(chunk)
		newCap := cap(p.buf)
		if newCap == 0 {
			newCap = initialBufferSize
		}
		for newCap < needed {
			newCap = int(float64(newCap) * bufferGrowthFactor)
		}
		grown := make([]byte, len(p.buf), newCap)
		copy(grown, p.buf)
		p.buf = grown
		p.growEvents++
	}
	p.buf = append(p.buf, chunk...)
	return nil
}

// compact drops the first n consumed bytes from buf, sliding the remainder
// (if any) down to index 0 in place.
func (p *parseState) compact(n int) {
	remaining := len(p.buf) - n
	copy(p.buf[:remaining], p.buf[n:])
	p.buf = p.buf[:remaining]
	p.compactCount++
}

// ParseRequest reads from r until a complete HTTP/1.1 request has been
// parsed (headers plus, if present, a body), invoking hooks along the way.
func ParseRequest(r Reader, hooks Hooks) (*Request, error) {
	st := &parseState{r: r, buf: make([]byte, 0, initialBufferSize)}

	headerEnd, err := readUntilHeadersComplete(st)
	if err != nil {
		return nil, err
	}

	headBytes := append([]byte(nil), st.buf[:headerEnd]...)
	rest := append([]byte(nil), st.buf[headerEnd+4:]...) // past CRLFCRLF
	st.buf = rest
	st.compactCount++ // dropping the consumed header bytes is itself a compaction

	lines := splitLines(headBytes)
	lines = dropLeadingBlankLines(lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty request", brickserr.ErrHTTPConnectionClosedByPeer)
	}

	method, rawPath, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		RawPath: rawPath,
		Version: version,
		URL:     httpmsg.ParseURL(rawPath),
		Headers: httpmsg.NewHeaders(),
	}

	var contentLength = -1
	var chunked bool
	var cookieHeader string
	var methodOverride string

	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		key, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		req.Headers.Add(key, value)
		if hooks.OnHeader != nil {
			hooks.OnHeader(key, value)
		}
		switch strings.ToLower(key) {
		case "content-length":
			n, err := strconv.Atoi(value)
			if err == nil {
				contentLength = n
			}
		case "transfer-encoding":
			if strings.EqualFold(strings.TrimSpace(value), "chunked") {
				chunked = true
			}
		case "x-http-method-override":
			methodOverride = value
		case "cookie":
			cookieHeader = value
		}
	}
	if methodOverride != "" {
		req.Method = methodOverride
	}
	req.Cookies = httpmsg.ParseCookies(cookieHeader)

	bodyConsumer := func(b []byte) {
		if hooks.OnChunk != nil {
			hooks.OnChunk(b)
		} else {
			req.Body = append(req.Body, b...)
		}
	}

	switch {
	case chunked:
		if err := readChunkedBody(st, bodyConsumer); err != nil {
			return nil, err
		}
	case contentLength >= 0:
		if contentLength > maxBodySize {
			return nil, fmt.Errorf("%w: %d bytes", brickserr.ErrHTTPPayloadTooLarge, contentLength)
		}
		if err := readFixedLengthBody(st, contentLength, bodyConsumer); err != nil {
			return nil, err
		}
	default:
		if method == "POST" || method == "PUT" || method == "PATCH" {
			return nil, fmt.Errorf("%w", brickserr.ErrHTTPRequestBodyLengthNotProvided)
		}
	}

	return req, nil
}

// readUntilHeadersComplete grows st.buf by reading chunks until CRLFCRLF is
// found, returning the index of that CRLFCRLF's first byte.
func readUntilHeadersComplete(st *parseState) (int, error) {
	for {
		if idx := indexCRLFCRLF(st.buf); idx >= 0 {
			return idx, nil
		}
		if err := st.fill(); err != nil {
			return 0, err
		}
	}
}

func indexCRLFCRLF(b []byte) int {
	for i := 0; i+4 <= len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' && b[i+2] == '\r' && b[i+3] == '\n' {
			return i
		}
	}
	return -1
}

func splitLines(b []byte) []string {
	return strings.Split(string(b), "\r\n")
}

func dropLeadingBlankLines(lines []string) []string {
	i := 0
	for i < len(lines) && lines[i] == "" {
		i++
	}
	return lines[i:]
}

func parseRequestLine(line string) (method, path, version string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("%w: malformed request line %q", brickserr.ErrHTTPConnectionClosedByPeer, line)
	}
	method = parts[0]
	path = parts[1]
	if len(parts) >= 3 {
		version = parts[2]
	} else {
		version = "HTTP/1.0"
	}
	return method, path, version, nil
}

func splitHeaderLine(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	key = line[:i]
	value = strings.TrimSpace(line[i+1:])
	return key, value, true
}
