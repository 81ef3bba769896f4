package socket_test

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/currentframework/bricks/socket"
)

func TestConnection_BlockingRead_ReturnASAP(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		c2.Write([]byte("hello"))
	}()

	conn := socket.NewConnection(c1)
	buf := make([]byte, 64)
	n, err := conn.BlockingRead(buf, socket.ReturnASAP)
	if err != nil {
		t.Fatalf("BlockingRead: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("got %q, want %q", buf[:n], "hello")
	}
}

func TestConnection_BlockingRead_FillFullBuffer(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	payload := []byte("0123456789")
	go func() {
		c2.Write(payload[:4])
		c2.Write(payload[4:])
	}()

	conn := socket.NewConnection(c1)
	buf := make([]byte, len(payload))
	n, err := conn.BlockingRead(buf, socket.FillFullBuffer)
	if err != nil {
		t.Fatalf("BlockingRead: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Errorf("got %q, want %q", buf[:n], payload)
	}
}

func TestConnection_BlockingRead_EOFOnCleanClose(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	c2.Close()

	conn := socket.NewConnection(c1)
	buf := make([]byte, 16)
	_, err := conn.BlockingRead(buf, socket.ReturnASAP)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestConnection_BlockingWrite_WritesEverything(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	payload := []byte("the quick brown fox")
	done := make(chan error, 1)
	go func() {
		conn := socket.NewConnection(c1)
		done <- conn.BlockingWrite(payload)
	}()

	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(c2, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("BlockingWrite: %v", err)
	}
	if string(buf) != string(payload) {
		t.Errorf("got %q, want %q", buf, payload)
	}
}

func TestConnection_CloseWriteHalfCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		sc, err := ln.Accept()
		if err != nil {
			return
		}
		defer sc.Close()
		io.Copy(io.Discard, sc)
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := socket.NewConnection(clientConn)
	defer conn.Close()

	if err := conn.CloseWrite(); err != nil {
		t.Fatalf("CloseWrite: %v", err)
	}
	<-serverDone
}
