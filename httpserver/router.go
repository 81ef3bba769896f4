package httpserver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/currentframework/bricks/internal/brickserr"
)

// HandlerFunc handles a dispatched request. trailingSegments holds the path
// segments found after the registered prefix.
type HandlerFunc func(c *Conn, trailingSegments []string)

// argCountMask is a bitmask over trailing-segment counts 0..63 that a
// registered handler accepts; bit i set means "i trailing segments is ok".
type argCountMask uint64

func maskForCounts(counts ...int) argCountMask {
	var m argCountMask
	for _, n := range counts {
		if n >= 0 && n < 64 {
			m |= 1 << uint(n)
		}
	}
	return m
}

func (m argCountMask) admits(n int) bool {
	if n < 0 || n >= 64 {
		return false
	}
	return m&(1<<uint(n)) != 0
}

type route struct {
	prefix  string // path segments joined by '/', no leading/trailing slash
	method  string
	mask    argCountMask
	handler HandlerFunc
}

// Router dispatches incoming requests to registered handlers using
// longest-prefix-first matching gated by a per-route trailing-argument-count
// mask. A single mutex protects the route table; lookups and
// (de)registration both take it briefly.
type Router struct {
	mu     sync.Mutex
	routes []*route
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// Scope is the RAII-style handle returned by Register; Unregister removes
// every route the scope was responsible for. Scopes combine with Combine to
// form multi-route bundles that unregister together.
type Scope struct {
	router *Router
	routes []*route
	once   sync.Once
}

// Unregister removes every route this scope registered. It is safe to call
// more than once; only the first call has an effect.
func (s *Scope) Unregister() {
	s.once.Do(func() {
		s.router.mu.Lock()
		defer s.router.mu.Unlock()
		for _, r := range s.routes {
			s.router.routes = removeRoute(s.router.routes, r)
		}
	})
}

// Combine merges other into s, producing a single scope whose Unregister
// tears down routes from both. other is left with no routes of its own.
func (s *Scope) Combine(other *Scope) *Scope {
	s.routes = append(s.routes, other.routes...)
	other.routes = nil
	return s
}

func removeRoute(routes []*route, target *route) []*route {
	out := routes[:0]
	for _, r := range routes {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}

// Register adds a handler for (path, method) accepting the given set of
// trailing-argument counts (e.g. Register("/users", "GET", handler, 0, 1)
// accepts both "/users" and "/users/42"). path must start with "/" and must
// not end with "/"; both are rejected as registration errors, as is a path
// containing router-reserved characters ('{', '}').
func (rt *Router) Register(path, method string, handler HandlerFunc, argCounts ...int) (*Scope, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q", brickserr.ErrPathDoesNotStartWithSlash, path)
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		return nil, fmt.Errorf("%w: %q", brickserr.ErrPathEndsWithSlash, path)
	}
	if strings.ContainsAny(path, "{}") {
		return nil, fmt.Errorf("%w: %q", brickserr.ErrPathContainsInvalidChars, path)
	}

	prefix := normalizePrefix(path)
	method = strings.ToUpper(method)
	mask := maskForCounts(argCounts...)
	if len(argCounts) == 0 {
		mask = maskForCounts(0)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, r := range rt.routes {
		if r.prefix == prefix && r.method == method && r.mask&mask != 0 {
			return nil, fmt.Errorf("%w: %s %s", brickserr.ErrHandlerAlreadyExists, method, path)
		}
	}
	r := &route{prefix: prefix, method: method, mask: mask, handler: handler}
	rt.routes = append(rt.routes, r)
	return &Scope{router: rt, routes: []*route{r}}, nil
}

// RouteEntry is one read-only row of the route table, for introspection
// callers such as cluster's control plane.
type RouteEntry struct {
	Method string
	Path   string
}

// Routes returns a snapshot of every currently registered route.
func (rt *Router) Routes() []RouteEntry {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]RouteEntry, 0, len(rt.routes))
	for _, r := range rt.routes {
		path := "/" + r.prefix
		out = append(out, RouteEntry{Method: r.method, Path: path})
	}
	return out
}

func normalizePrefix(path string) string {
	segs := splitSegments(path)
	return strings.Join(segs, "/")
}

// splitSegments splits path into non-empty segments, collapsing consecutive
// slashes so "//a//b/" and "/a/b" match the same route.
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DispatchResult is the outcome of Dispatch: either a handler invocation
// happened, or a status code indicating why none did.
type DispatchResult struct {
	Handled    bool
	StatusCode int // set when !Handled: 404 or 405
}

// Dispatch finds the longest registered prefix of segments (walking from
// the full path down to the empty prefix) whose mask admits the number of
// segments left over, and whose method matches. It returns 404 if no prefix
// matched at all, or 405 if a prefix matched but not for this method.
func (rt *Router) Dispatch(c *Conn, path, method string) DispatchResult {
	segs := splitSegments(path)
	method = strings.ToUpper(method)

	rt.mu.Lock()
	routesSnapshot := append([]*route(nil), rt.routes...)
	rt.mu.Unlock()

	prefixFoundAnyMethod := false

	for prefixLen := len(segs); prefixLen >= 0; prefixLen-- {
		prefix := strings.Join(segs[:prefixLen], "/")
		trailingCount := len(segs) - prefixLen

		var methodMatch *route
		for _, r := range routesSnapshot {
			if r.prefix != prefix || !r.mask.admits(trailingCount) {
				continue
			}
			prefixFoundAnyMethod = true
			if r.method == method {
				methodMatch = r
				break
			}
		}
		if methodMatch != nil {
			methodMatch.handler(c, segs[prefixLen:])
			return DispatchResult{Handled: true}
		}
	}

	if prefixFoundAnyMethod {
		return DispatchResult{Handled: false, StatusCode: 405}
	}
	return DispatchResult{Handled: false, StatusCode: 404}
}
