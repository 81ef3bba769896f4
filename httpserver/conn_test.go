package httpserver

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/internal/brickserr"
	"github.com/currentframework/bricks/socket"
)

func TestConn_SendHTTPResponse_ContentsAreWellFormed(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	sc := socket.NewConnection(serverSide)
	c := NewConn(sc, nil)

	h := httpmsg.NewHeaders()
	h.Set("X-Custom", "yes")

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := clientSide.Read(buf)
		readDone <- string(buf[:n])
	}()

	if err := c.SendHTTPResponse([]byte("body"), 201, h, "text/plain"); err != nil {
		t.Fatalf("SendHTTPResponse: %v", err)
	}
	got := <-readDone

	if !strings.HasPrefix(got, "HTTP/1.1 201 Created\r\n") {
		t.Errorf("unexpected status line: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 4\r\n") {
		t.Errorf("missing Content-Length: %q", got)
	}
	if !strings.Contains(got, "X-Custom: yes\r\n") {
		t.Errorf("missing custom header: %q", got)
	}
	if !strings.HasSuffix(got, "body") {
		t.Errorf("missing body: %q", got)
	}
}

func TestConn_SendHTTPResponse_TwiceFails(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	sc := socket.NewConnection(serverSide)
	c := NewConn(sc, nil)

	go io.Copy(io.Discard, clientSide)

	if err := c.SendHTTPResponse([]byte("a"), 200, nil, ""); err != nil {
		t.Fatalf("first send: %v", err)
	}
	err := c.SendHTTPResponse([]byte("b"), 200, nil, "")
	if !errors.Is(err, brickserr.ErrAttemptedToSendHTTPResponseTwice) {
		t.Errorf("expected ErrAttemptedToSendHTTPResponseTwice, got %v", err)
	}
}

func TestConn_ChunkedSender_WritesFramedChunks(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	sc := socket.NewConnection(serverSide)
	c := NewConn(sc, nil)

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 8192)
		total := ""
		for {
			n, err := clientSide.Read(buf)
			total += string(buf[:n])
			if err != nil {
				break
			}
			if strings.HasSuffix(total, "0\r\n\r\n") {
				break
			}
		}
		readDone <- total
	}()

	sender, err := c.SendChunkedHTTPResponse(200, nil, "text/plain")
	if err != nil {
		t.Fatalf("SendChunkedHTTPResponse: %v", err)
	}
	if err := sender.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	clientSide.Close()

	got := <-readDone
	if !strings.Contains(got, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("missing Transfer-Encoding header: %q", got)
	}
	if !strings.Contains(got, "5\r\nhello\r\n") {
		t.Errorf("missing chunk frame: %q", got)
	}
	if !strings.HasSuffix(got, "0\r\n\r\n") {
		t.Errorf("missing terminating chunk: %q", got)
	}
}
