package httpserver

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/currentframework/bricks/httpparser"
	"github.com/currentframework/bricks/internal/brickserr"
	"github.com/currentframework/bricks/socket"
	"github.com/currentframework/bricks/worker"
)

// Server accepts connections on a reserved or pinned port and dispatches
// each parsed request through a Router. Each accepted connection is handed
// to the bounded worker pool rather than spawned as an unbounded goroutine,
// so a burst of connections cannot outrun the process's ability to serve
// them.
type Server struct {
	router      *Router
	pool        *worker.WorkerPool
	readTimeout time.Duration
	logger      *zap.Logger

	listener *socket.Handle
	port     int
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithReadTimeout bounds how long the server waits for a complete request
// on a freshly accepted connection before giving up. Zero (the default)
// means unbounded, matching the "no request-level timeout" default.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.readTimeout = d }
}

// WithLogger attaches a zap logger the server uses for accept/dispatch
// diagnostics. A nil logger, like the default, means no logging.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a Server dispatching onto router, handling up to
// workerCount connections concurrently.
func NewServer(router *Router, workerCount int, opts ...ServerOption) *Server {
	s := &Server{
		router: router,
		pool:   worker.NewWorkerPool(workerCount),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenOnReservedPort acquires an unused port from the package's scavenged
// range and starts accepting. It returns the bound port.
func (s *Server) ListenOnReservedPort() (int, error) {
	h, port, err := socket.Reserve()
	if err != nil {
		return 0, err
	}
	s.listener = h
	s.port = port
	s.pool.Start()
	go s.acceptLoop()
	return port, nil
}

// ListenOnPort binds exactly the requested port and starts accepting.
func (s *Server) ListenOnPort(port int) error {
	h, err := socket.Acquire(port)
	if err != nil {
		return err
	}
	s.listener = h
	s.port = port
	s.pool.Start()
	go s.acceptLoop()
	return nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int { return s.port }

// Close stops accepting new connections and drains the worker pool.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.pool.Stop()
	return err
}

func (s *Server) acceptLoop() {
	ln, err := s.listener.Listener()
	if err != nil {
		return
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.pool.Submit(func() {
			s.handleConnection(conn)
		})
	}
}

func (s *Server) handleConnection(netConn net.Conn) {
	defer netConn.Close()

	if s.readTimeout > 0 {
		netConn.SetDeadline(time.Now().Add(s.readTimeout))
	}

	sockConn := socket.NewConnection(netConn)
	reader := &connReader{conn: sockConn}

	req, err := httpparser.ParseRequest(reader, httpparser.Hooks{})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.logger.Debug("request parse failed", zap.Error(err))
		writeParseErrorResponse(sockConn, err)
		return
	}

	c := NewConn(sockConn, req)
	result := s.router.Dispatch(c, req.URL.Path, req.Method)
	if !result.Handled {
		body := []byte("not found")
		if result.StatusCode == 405 {
			body = []byte("method not allowed")
		}
		c.SendHTTPResponse(body, result.StatusCode, nil, "text/plain")
		return
	}
	if !c.hasResponded() {
		s.logger.Warn("handler returned without sending a response", zap.String("path", req.URL.Path))
		c.SendHTTPResponse([]byte(internalServerErrorBody), 500, nil, "text/html")
	}
}

const (
	internalServerErrorBody = "<h1>INTERNAL SERVER ERROR</h1>\n"
	entityTooLargeBody      = "<h1>ENTITY TOO LARGE</h1>\n"
)

// connReader adapts socket.Connection to httpparser.Reader, pulling up to
// 64 KiB per underlying read, matching ReturnASAP semantics: the parser
// gets whatever arrived, not a padded-out fixed chunk.
type connReader struct {
	conn *socket.Connection
}

func (r *connReader) Read() ([]byte, error) {
	buf := make([]byte, 64*1024)
	n, err := r.conn.BlockingRead(buf, socket.ReturnASAP)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func writeParseErrorResponse(conn *socket.Connection, err error) {
	code := 400
	body := []byte(err.Error())
	contentType := "text/plain"
	switch {
	case errors.Is(err, brickserr.ErrHTTPRequestBodyLengthNotProvided):
		code = 411
	case errors.Is(err, brickserr.ErrHTTPPayloadTooLarge):
		code = 413
		body = []byte(entityTooLargeBody)
		contentType = "text/html"
	}
	c := &Conn{connection: conn}
	c.SendHTTPResponse(body, code, nil, contentType)
}
