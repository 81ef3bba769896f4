package httpserver

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/httpparser"
	"github.com/currentframework/bricks/socket"
)

// dispatchWithPath builds a Conn whose Request.URL reflects rawPath (so
// TrailingSlash is populated the way a real parsed request would set it)
// and dispatches rawPath through rt.
func dispatchWithPath(rt *Router, rawPath, method string) (DispatchResult, net.Conn) {
	serverSide, clientSide := net.Pipe()
	sc := socket.NewConnection(serverSide)
	c := NewConn(sc, &httpparser.Request{URL: httpmsg.ParseURL(rawPath)})
	result := rt.Dispatch(c, rawPath, method)
	return result, clientSide
}

func writeTestFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestServeStaticFilesFrom_ServesFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "index.html", "<html>hi</html>")
	writeTestFile(t, dir, "style.css", "body{}")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err != nil {
		t.Fatalf("ServeStaticFilesFrom: %v", err)
	}

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	sc := socket.NewConnection(serverSide)
	c := NewConn(sc, nil)

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := clientSide.Read(buf)
		readDone <- string(buf[:n])
	}()

	result := rt.Dispatch(c, "/static/style.css", "GET")
	if !result.Handled {
		t.Fatal("expected file to be served")
	}
	got := <-readDone
	if !strings.Contains(got, "Content-Type: text/css\r\n") {
		t.Errorf("unexpected content type: %q", got)
	}
	if !strings.HasSuffix(got, "body{}") {
		t.Errorf("unexpected body: %q", got)
	}
}

func TestServeStaticFilesFrom_RejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "archive.zip", "binary")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err == nil {
		t.Error("expected registration to fail for unknown MIME type")
	}
}

func TestServeStaticFilesFrom_RejectsTwoIndexCandidates(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "index.html", "a")
	writeTestFile(t, dir, "index.htm", "b")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err == nil {
		t.Error("expected registration to fail for two index candidates")
	}
}

func TestServeStaticFilesFrom_SkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "index.html", "visible")
	writeTestFile(t, dir, ".secret.unknownext", "hidden")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err != nil {
		t.Fatalf("ServeStaticFilesFrom: %v", err)
	}
}

func TestServeStaticFilesFrom_DirectoryWithoutTrailingSlashRedirects(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeTestFile(t, dir, "index.html", "H1")
	writeTestFile(t, dir, "file.txt", "T")
	writeTestFile(t, dir, filepath.Join("sub", "index.html"), "S")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err != nil {
		t.Fatalf("ServeStaticFilesFrom: %v", err)
	}

	result, clientSide := dispatchWithPath(rt, "/static/sub", "GET")
	if !result.Handled {
		t.Fatal("expected /static/sub to be handled")
	}
	buf := make([]byte, 4096)
	n, _ := clientSide.Read(buf)
	got := string(buf[:n])
	clientSide.Close()

	if !strings.HasPrefix(got, "HTTP/1.1 302 Found\r\n") {
		t.Errorf("expected 302, got status line of %q", got)
	}
	if !strings.Contains(got, "Location: /static/sub/\r\n") {
		t.Errorf("expected redirect Location /static/sub/, got %q", got)
	}
}

func TestServeStaticFilesFrom_DirectoryWithTrailingSlashServesIndex(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "index.html", "H1")

	rt := NewRouter()
	if _, err := rt.ServeStaticFilesFrom("/static", dir, StaticFileOptions{}); err != nil {
		t.Fatalf("ServeStaticFilesFrom: %v", err)
	}

	result, clientSide := dispatchWithPath(rt, "/static/", "GET")
	if !result.Handled {
		t.Fatal("expected /static/ to be handled")
	}
	buf := make([]byte, 4096)
	n, _ := clientSide.Read(buf)
	got := string(buf[:n])
	clientSide.Close()

	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("expected 200, got status line of %q", got)
	}
	if !strings.HasSuffix(got, "H1") {
		t.Errorf("expected index body H1, got %q", got)
	}
}
