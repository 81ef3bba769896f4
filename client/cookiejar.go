package client

import (
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/currentframework/bricks/httpmsg"
)

// CookieJar stores cookies per effective top-level domain plus one label
// (using golang.org/x/net/publicsuffix, the same rule net/http/cookiejar
// applies), so a cookie set by "a.example.co.uk" is replayed to
// "b.example.co.uk" (both key to "example.co.uk") but one set by "a.co.uk"
// is not replayed to "b.co.uk". Set-Cookie attributes such as Domain and
// Path are ignored.
type CookieJar struct {
	mu      sync.Mutex
	byOwner map[string]map[string]string // effective domain key -> cookie name -> value
}

// NewCookieJar returns an empty CookieJar.
func NewCookieJar() *CookieJar {
	return &CookieJar{byOwner: make(map[string]map[string]string)}
}

func ownerKey(host string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// CookieHeader renders the stored cookies for u's host as a "Cookie"
// request header value, or "" if none are stored.
func (j *CookieJar) CookieHeader(u *url.URL) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	cookies := j.byOwner[ownerKey(u.Hostname())]
	if len(cookies) == 0 {
		return ""
	}
	var parts []string
	for name, value := range cookies {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, "; ")
}

// StoreFromHeaders parses every Set-Cookie header in headers and stores the
// resulting name/value pairs under u's effective owner domain.
func (j *CookieJar) StoreFromHeaders(u *url.URL, headers *httpmsg.Headers) {
	values := headers.Values("Set-Cookie")
	if len(values) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := ownerKey(u.Hostname())
	if j.byOwner[key] == nil {
		j.byOwner[key] = make(map[string]string)
	}
	for _, v := range values {
		name, value, ok := splitSetCookie(v)
		if ok {
			j.byOwner[key][name] = value
		}
	}
}

// splitSetCookie extracts the name=value pair from the start of a
// Set-Cookie header value, ignoring any trailing attributes
// (Path=, Domain=, HttpOnly, etc.).
func splitSetCookie(setCookie string) (name, value string, ok bool) {
	first := setCookie
	if i := strings.IndexByte(setCookie, ';'); i >= 0 {
		first = setCookie[:i]
	}
	first = strings.TrimSpace(first)
	i := strings.IndexByte(first, '=')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(first[:i]), strings.TrimSpace(first[i+1:]), true
}
