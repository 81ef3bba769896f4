package httpserver

import (
	"net"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestHandleConnection_SilentHandlerYields500(t *testing.T) {
	rt := NewRouter()
	if _, err := rt.Register("/silent", "GET", func(c *Conn, _ []string) {
		// deliberately does not call any Send* method
	}, 0); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := &Server{router: rt, logger: zap.NewNop()}

	serverSide, clientSide := net.Pipe()
	go s.handleConnection(serverSide)

	clientSide.Write([]byte("GET /silent HTTP/1.1\r\nHost: x\r\n\r\n"))
	buf := make([]byte, 4096)
	n, _ := clientSide.Read(buf)
	got := string(buf[:n])
	clientSide.Close()

	if !strings.HasPrefix(got, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Errorf("expected 500 status line, got %q", got)
	}
	if !strings.HasSuffix(got, "<h1>INTERNAL SERVER ERROR</h1>\n") {
		t.Errorf("expected spec-mandated 500 body, got %q", got)
	}
}

func TestHandleConnection_HandlerThatRespondsIsLeftAlone(t *testing.T) {
	rt := NewRouter()
	if _, err := rt.Register("/ok", "GET", func(c *Conn, _ []string) {
		c.SendHTTPResponse([]byte("fine"), 200, nil, "text/plain")
	}, 0); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s := &Server{router: rt, logger: zap.NewNop()}

	serverSide, clientSide := net.Pipe()
	go s.handleConnection(serverSide)

	clientSide.Write([]byte("GET /ok HTTP/1.1\r\nHost: x\r\n\r\n"))
	buf := make([]byte, 4096)
	n, _ := clientSide.Read(buf)
	got := string(buf[:n])
	clientSide.Close()

	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("expected 200, got %q", got)
	}
	if !strings.HasSuffix(got, "fine") {
		t.Errorf("expected handler's own body preserved, got %q", got)
	}
}

func TestHandleConnection_PayloadTooLargeReturnsSpecBody(t *testing.T) {
	rt := NewRouter()
	s := &Server{router: rt, logger: zap.NewNop()}

	serverSide, clientSide := net.Pipe()
	go s.handleConnection(serverSide)

	req := "POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 20000000\r\n\r\n"
	clientSide.Write([]byte(req))
	buf := make([]byte, 4096)
	n, _ := clientSide.Read(buf)
	got := string(buf[:n])
	clientSide.Close()

	if !strings.HasPrefix(got, "HTTP/1.1 413 Request Entity Too Large\r\n") {
		t.Errorf("expected 413 status line, got %q", got)
	}
	if !strings.HasSuffix(got, "<h1>ENTITY TOO LARGE</h1>\n") {
		t.Errorf("expected spec-mandated 413 body, got %q", got)
	}
}
