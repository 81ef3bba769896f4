// Package client provides an HTTP client built directly on raw sockets
// (socket.Connection + httpparser), mirroring the transport-level framing
// the server side speaks instead of going through net/http. Every request
// opens and closes a fresh connection; there is no keep-alive pool.
package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/httpparser"
	"github.com/currentframework/bricks/internal/brickserr"
	"github.com/currentframework/bricks/proxy"
	"github.com/currentframework/bricks/socket"
)

const maxRedirects = 10

// Response is the result of a client request: status line, headers, and
// body.
type Response struct {
	StatusCode int
	StatusText string
	Headers    *httpmsg.Headers
	Body       []byte
}

// ReceiveHooks drives the chunked-receiving mode: the caller supplies any
// subset of these, and the client invokes them as data arrives instead of
// buffering the whole response in memory.
type ReceiveHooks struct {
	OnHeader func(key, value string)
	OnChunk  func(b []byte)
	OnDone   func()
	// OnLine, if set, line-buffers OnChunk's output across chunk
	// boundaries and delivers one complete line (without its terminator)
	// at a time. OnChunk is still called with the raw chunk bytes if also
	// set.
	OnLine func(line string)
}

// Client sends requests over fresh raw-socket connections.
type Client struct {
	// AllowRedirects enables following 301/302 responses. Off by default.
	AllowRedirects bool
	// Timeout bounds each connection's total round trip; zero means no
	// read/write deadline, though dialing still times out after 30s.
	Timeout time.Duration
	// Proxies, when set, routes every request through the proxy
	// manager's round-robin rotation instead of dialing the target
	// directly. Each entry is dialed as a plain host:port TCP address;
	// an entry with a scheme or credentials fails to dial.
	Proxies *proxy.ProxyManager
	// Jar, when set, stores and replays cookies across requests made
	// with this client, keyed by the public-suffix-aware rules in
	// golang.org/x/net/publicsuffix.
	Jar *CookieJar

	headers *OrderedHeader
}

// NewClient returns a Client with redirects disabled and no timeout.
func NewClient() *Client {
	return &Client{headers: &OrderedHeader{}}
}

// SetDefaultHeaders installs headers that are applied to every outgoing
// request before request-specific headers, letting callers establish a
// consistent fingerprint (User-Agent, Accept, etc.) once.
func (c *Client) SetDefaultHeaders(h *OrderedHeader) {
	c.headers = h
}

// Get issues a GET request.
func (c *Client) Get(rawURL string, headers *OrderedHeader) (*Response, error) {
	return c.Do("GET", rawURL, nil, headers)
}

// Head issues a HEAD request.
func (c *Client) Head(rawURL string, headers *OrderedHeader) (*Response, error) {
	return c.Do("HEAD", rawURL, nil, headers)
}

// Post issues a POST request with an in-memory body.
func (c *Client) Post(rawURL string, body []byte, headers *OrderedHeader) (*Response, error) {
	return c.Do("POST", rawURL, body, headers)
}

// Put issues a PUT request with an in-memory body.
func (c *Client) Put(rawURL string, body []byte, headers *OrderedHeader) (*Response, error) {
	return c.Do("PUT", rawURL, body, headers)
}

// Patch issues a PATCH request with an in-memory body.
func (c *Client) Patch(rawURL string, body []byte, headers *OrderedHeader) (*Response, error) {
	return c.Do("PATCH", rawURL, body, headers)
}

// Delete issues a DELETE request.
func (c *Client) Delete(rawURL string, headers *OrderedHeader) (*Response, error) {
	return c.Do("DELETE", rawURL, nil, headers)
}

// POSTFromFile issues a POST request whose body is the content of the file
// at path. The whole file is read into memory before sending; it is not
// streamed.
func (c *Client) POSTFromFile(rawURL, path string, headers *OrderedHeader) (*Response, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: read upload file %q: %w", path, err)
	}
	return c.Do("POST", rawURL, body, headers)
}

// SaveResponseToFile issues method against rawURL and writes the response
// body to path once it has been fully received. The returned Response still
// carries the body in memory.
func (c *Client) SaveResponseToFile(method, rawURL string, body []byte, headers *OrderedHeader, path string) (*Response, error) {
	resp, err := c.Do(method, rawURL, body, headers)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, resp.Body, 0o644); err != nil {
		return nil, fmt.Errorf("client: write response file %q: %w", path, err)
	}
	return resp, nil
}

// Do sends method/rawURL/body once, following redirects if AllowRedirects
// is set, and returns the final response.
func (c *Client) Do(method, rawURL string, body []byte, headers *OrderedHeader) (*Response, error) {
	visited := map[string]bool{}
	var visitOrder []string

	for {
		visited[rawURL] = true
		visitOrder = append(visitOrder, rawURL)

		resp, err := c.doOnce(method, rawURL, body, headers)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != 301 && resp.StatusCode != 302 {
			return resp, nil
		}

		location := resp.Headers.Get("Location")
		if location == "" {
			return resp, nil
		}
		if !c.AllowRedirects {
			return nil, fmt.Errorf("%w: %s -> %s", brickserr.ErrHTTPRedirectNotAllowed, rawURL, location)
		}

		next, err := resolveRedirect(rawURL, location)
		if err != nil {
			return nil, err
		}
		if visited[next] || len(visitOrder) >= maxRedirects {
			return nil, fmt.Errorf("%w: %s", brickserr.ErrHTTPRedirectLoop, strings.Join(append(visitOrder, next), " -> "))
		}
		rawURL = next
		method = "GET"
		body = nil
	}
}

func resolveRedirect(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("client: parse base URL %q: %w", base, err)
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("client: parse redirect location %q: %w", location, err)
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

// doOnce performs exactly one request/response round trip over a freshly
// dialed connection; it never follows redirects itself.
func (c *Client) doOnce(method, rawURL string, body []byte, headers *OrderedHeader) (*Response, error) {
	return c.receiveOnce(method, rawURL, body, headers, ReceiveHooks{})
}

// Receive performs one request/response round trip in chunked-receiving
// mode: hooks.OnHeader/OnChunk/OnDone (or OnLine) are invoked as data
// arrives instead of buffering the whole body. It does not follow
// redirects.
func (c *Client) Receive(method, rawURL string, body []byte, headers *OrderedHeader, hooks ReceiveHooks) (*Response, error) {
	return c.receiveOnce(method, rawURL, body, headers, hooks)
}

func (c *Client) receiveOnce(method, rawURL string, body []byte, headers *OrderedHeader, hooks ReceiveHooks) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse URL %q: %w", rawURL, err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	if _, err := net.DefaultResolver.LookupIPAddr(context.Background(), host); err != nil {
		return nil, fmt.Errorf("%w: %s:%s: %v", brickserr.ErrSocketResolveAddress, host, port, err)
	}

	dialTarget := net.JoinHostPort(host, port)
	useProxy := ""
	if c.Proxies != nil {
		useProxy = c.Proxies.GetNextProxy()
	}
	if useProxy != "" {
		dialTarget = useProxy
	}

	netConn, err := net.DialTimeout("tcp", dialTarget, dialTimeout(c.Timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", brickserr.ErrSocketConnect, err)
	}
	defer netConn.Close()

	if c.Timeout > 0 {
		netConn.SetDeadline(time.Now().Add(c.Timeout))
	}

	conn := socket.NewConnection(netConn)

	reqHeaders := &OrderedHeader{}
	if c.headers != nil {
		for _, e := range c.headers.entries {
			reqHeaders.Add(e.key, e.value)
		}
	}
	if headers != nil {
		for _, e := range headers.entries {
			reqHeaders.Set(e.key, e.value)
		}
	}
	if reqHeaders.Get("Host") == "" {
		reqHeaders.Set("Host", u.Host)
	}
	if reqHeaders.Get("Connection") == "" {
		reqHeaders.Set("Connection", "close")
	}
	if len(body) > 0 && reqHeaders.Get("Content-Length") == "" {
		reqHeaders.Set("Content-Length", strconv.Itoa(len(body)))
	}
	if c.Jar != nil {
		if cookieHeader := c.Jar.CookieHeader(u); cookieHeader != "" {
			reqHeaders.Set("Cookie", cookieHeader)
		}
	}

	requestURI := u.RequestURI()
	if useProxy != "" {
		requestURI = u.String()
	}

	var reqBuf []byte
	reqBuf = append(reqBuf, method...)
	reqBuf = append(reqBuf, ' ')
	reqBuf = append(reqBuf, requestURI...)
	reqBuf = append(reqBuf, " HTTP/1.1\r\n"...)
	for _, e := range reqHeaders.entries {
		reqBuf = append(reqBuf, e.key...)
		reqBuf = append(reqBuf, ':', ' ')
		reqBuf = append(reqBuf, e.value...)
		reqBuf = append(reqBuf, '\r', '\n')
	}
	reqBuf = append(reqBuf, '\r', '\n')
	reqBuf = append(reqBuf, body...)

	if err := conn.BlockingWrite(reqBuf); err != nil {
		return nil, err
	}

	return parseResponse(conn, hooks, c.Jar, u)
}

func dialTimeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 30 * time.Second
}

// respReader adapts socket.Connection to httpparser.Reader for reading a
// response.
type respReader struct {
	conn *socket.Connection
}

func (r *respReader) Read() ([]byte, error) {
	buf := make([]byte, 64*1024)
	n, err := r.conn.BlockingRead(buf, socket.ReturnASAP)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func parseResponse(conn *socket.Connection, hooks ReceiveHooks, jar *CookieJar, reqURL *url.URL) (*Response, error) {
	var lineBuf []byte
	chunkHook := hooks.OnChunk
	if hooks.OnLine != nil {
		chunkHook = func(b []byte) {
			if hooks.OnChunk != nil {
				hooks.OnChunk(b)
			}
			lineBuf = append(lineBuf, b...)
			for {
				idx := indexNewline(lineBuf)
				if idx < 0 {
					break
				}
				hooks.OnLine(string(lineBuf[:idx]))
				lineBuf = lineBuf[idx+1:]
			}
		}
	}

	parsed, err := httpparser.ParseResponse(&respReader{conn: conn}, httpparser.Hooks{
		OnHeader: hooks.OnHeader,
		OnChunk:  chunkHook,
	})
	if err != nil {
		return nil, err
	}

	if hooks.OnDone != nil {
		hooks.OnDone()
	}

	resp := &Response{
		StatusCode: parsed.StatusCode,
		StatusText: parsed.StatusText,
		Headers:    parsed.Headers,
		Body:       parsed.Body,
	}

	if jar != nil {
		jar.StoreFromHeaders(reqURL, resp.Headers)
	}

	return resp, nil
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
