package httpserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/currentframework/bricks/httpmsg"
	"github.com/currentframework/bricks/internal/brickserr"
)

// mimeTable is the closed set of extensions this server can serve. An
// extension outside this table fails registration rather than guessing a
// MIME type, so a newly added asset type is a deliberate decision, not a
// silent "whatever os.DetectContentType thinks".
var mimeTable = map[string]string{
	".html":    "text/html",
	".htm":     "text/html",
	".txt":     "text/plain",
	".css":     "text/css",
	".js":      "application/javascript",
	".json":    "application/json; charset=utf-8",
	".js.map":  "application/json; charset=utf-8",
	".css.map": "application/json; charset=utf-8",
	".png":     "image/png",
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".gif":     "image/gif",
	".svg":     "image/svg+xml",
	".ico":     "image/x-icon",
	".woff":    "font/woff",
	".woff2":   "font/woff2",
	".foo":     "text/plain",
}

var defaultIndexNames = []string{"index.html", "index.htm"}

// StaticFileOptions configures ServeStaticFilesFrom.
type StaticFileOptions struct {
	// IndexNames overrides the candidate index filenames searched for in
	// each directory. Defaults to {"index.html", "index.htm"}.
	IndexNames []string
	// PublicPrefix rewrites directory-redirect Location headers, e.g. when
	// the static tree is mounted under "/assets" in the public URL space
	// but registered here with a bare dir path.
	PublicPrefix string
}

type staticFile struct {
	diskPath    string
	contentType string
}

// ServeStaticFilesFrom walks dir at registration time and registers a GET
// (and HEAD) handler under urlPrefix for every file found, failing the
// whole registration if any file's extension is outside the MIME table or
// any directory has more than one index-file candidate. Hidden files and
// directories (name starting with '.') are skipped entirely.
func (rt *Router) ServeStaticFilesFrom(urlPrefix, dir string, opts StaticFileOptions) (*Scope, error) {
	indexNames := opts.IndexNames
	if len(indexNames) == 0 {
		indexNames = defaultIndexNames
	}

	files := make(map[string]staticFile) // URL path (no prefix) -> file
	dirIndex := make(map[string]string)  // directory URL path -> resolved index URL path

	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		ext := extensionOf(name)
		contentType, ok := mimeTable[ext]
		if !ok {
			return fmt.Errorf("%w: %s", brickserr.ErrUnknownMIMEType, p)
		}

		urlPath := "/" + filepath.ToSlash(rel)
		files[urlPath] = staticFile{diskPath: p, contentType: contentType}

		dirURL := "/" + filepath.ToSlash(filepath.Dir(rel))
		if dirURL == "/." {
			dirURL = "/"
		}
		if isIndexName(name, indexNames) {
			if existing, ok := dirIndex[dirURL]; ok {
				return fmt.Errorf("%w: %s and %s", brickserr.ErrMultipleIndexFiles, existing, urlPath)
			}
			dirIndex[dirURL] = urlPath
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publicPrefix := opts.PublicPrefix
	if publicPrefix == "" {
		publicPrefix = urlPrefix
	}

	handler := func(c *Conn, trailing []string) {
		reqPath := "/" + strings.Join(trailing, "/")
		if f, ok := files[reqPath]; ok {
			serveStaticFile(c, f)
			return
		}
		if idx, ok := dirIndex[reqPath]; ok {
			if !c.Request.URL.TrailingSlash {
				redirectTo(c, redirectLocation(publicPrefix, reqPath))
				return
			}
			if f, ok := files[idx]; ok {
				serveStaticFile(c, f)
				return
			}
		}
		c.SendHTTPResponse([]byte("not found"), 404, nil, "text/plain")
	}

	getScope, err := rt.Register(urlPrefix, "GET", handler, countsUpTo(32)...)
	if err != nil {
		return nil, err
	}
	headScope, err := rt.Register(urlPrefix, "HEAD", handler, countsUpTo(32)...)
	if err != nil {
		getScope.Unregister()
		return nil, err
	}
	return getScope.Combine(headScope), nil
}

// redirectLocation builds the Location for a directory-without-trailing-
// slash redirect: publicPrefix+reqPath with exactly one trailing slash,
// never doubled when reqPath is already "/".
func redirectLocation(publicPrefix, reqPath string) string {
	loc := publicPrefix + reqPath
	if !strings.HasSuffix(loc, "/") {
		loc += "/"
	}
	return loc
}

func serveStaticFile(c *Conn, f staticFile) {
	data, err := os.ReadFile(f.diskPath)
	if err != nil {
		c.SendHTTPResponse([]byte("internal server error"), 500, nil, "text/plain")
		return
	}
	c.SendHTTPResponse(data, 200, nil, f.contentType)
}

func redirectTo(c *Conn, location string) {
	h := httpmsg.NewHeaders()
	h.Set("Location", location)
	c.SendHTTPResponse(nil, 302, h, "text/plain")
}

func isIndexName(name string, candidates []string) bool {
	for _, c := range candidates {
		if name == c {
			return true
		}
	}
	return false
}

// compoundExtensions lists multi-dot extensions that must be matched before
// falling back to filepath.Ext, which would otherwise see ".map" in
// "bundle.js.map" and miss the table entry for ".js.map".
var compoundExtensions = []string{".js.map", ".css.map"}

func extensionOf(name string) string {
	for _, ext := range compoundExtensions {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return filepath.Ext(name)
}

func countsUpTo(n int) []int {
	out := make([]int, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, i)
	}
	return out
}
