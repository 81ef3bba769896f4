package client

import (
	"net"
	"strings"
	"testing"
	"time"
)

// fakeServer starts a bare listener and hands the first accepted connection
// to respond, so tests can drive Client.Do against a real raw-socket peer.
func fakeServer(t *testing.T, respond func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		respond(conn)
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func drainRequest(conn net.Conn) {
	buf := make([]byte, 8192)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	conn.Read(buf)
}

func TestClient_Get_ParsesResponse(t *testing.T) {
	addr := fakeServer(t, func(conn net.Conn) {
		drainRequest(conn)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
	})

	c := NewClient()
	resp, err := c.Get("http://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body: got %q", resp.Body)
	}
}

func TestClient_RedirectDisabledByDefault(t *testing.T) {
	addr := fakeServer(t, func(conn net.Conn) {
		drainRequest(conn)
		conn.Write([]byte("HTTP/1.1 302 Found\r\nLocation: /next\r\nContent-Length: 0\r\n\r\n"))
	})

	c := NewClient()
	_, err := c.Get("http://"+addr+"/", nil)
	if err == nil {
		t.Fatal("expected redirect to fail when AllowRedirects is false")
	}
}

func TestClient_PostIncludesContentLength(t *testing.T) {
	var gotRequest []byte
	addr := fakeServer(t, func(conn net.Conn) {
		buf := make([]byte, 8192)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _ := conn.Read(buf)
		gotRequest = buf[:n]
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	})

	c := NewClient()
	if _, err := c.Post("http://"+addr+"/submit", []byte("payload"), nil); err != nil {
		t.Fatalf("Post: %v", err)
	}

	got := string(gotRequest)
	if !strings.Contains(got, "Content-Length: 7\r\n") {
		t.Errorf("expected Content-Length: 7 in request, got %q", got)
	}
	if !strings.Contains(got, "payload") {
		t.Errorf("expected body in request, got %q", got)
	}
}
