// Package httpmsg holds the HTTP value types shared by the parser, the
// server, and the client: ordered headers, decoded URLs, cookies, and the
// fluent Response builder. None of it talks to a socket; it is pure data
// plus the encode/decode rules spec'd for request and response framing.
package httpmsg

import "net/http"

// headerEntry stores one header key/value pair with its original casing,
// the same representation the client package already used for outbound
// request headers; Headers generalizes it to also hold inbound and
// response headers.
type headerEntry struct {
	key   string
	value string
}

// Headers is an ordered, case-insensitive multimap of HTTP header fields.
// Iteration order follows insertion order, which the parser relies on to
// preserve the wire order of request headers for downstream handlers, and
// which response serialization relies on to emit headers in the order a
// handler set them.
type Headers struct {
	entries []headerEntry
}

// NewHeaders returns an empty Headers ready for use.
func NewHeaders() *Headers {
	return &Headers{}
}

// Add appends a key/value pair, preserving any existing entries for the
// same key (case-insensitively).
func (h *Headers) Add(key, value string) *Headers {
	h.entries = append(h.entries, headerEntry{key: key, value: value})
	return h
}

// Set replaces all existing entries for key (case-insensitively) with a
// single entry, preserving the position of the first match or appending if
// key was not present.
func (h *Headers) Set(key, value string) *Headers {
	canon := http.CanonicalHeaderKey(key)
	replaced := false
	out := h.entries[:0]
	for _, e := range h.entries {
		if http.CanonicalHeaderKey(e.key) == canon {
			if !replaced {
				out = append(out, headerEntry{key: key, value: value})
				replaced = true
			}
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, headerEntry{key: key, value: value})
	}
	h.entries = out
	return h
}

// Del removes every entry matching key (case-insensitively).
func (h *Headers) Del(key string) *Headers {
	canon := http.CanonicalHeaderKey(key)
	out := h.entries[:0]
	for _, e := range h.entries {
		if http.CanonicalHeaderKey(e.key) != canon {
			out = append(out, e)
		}
	}
	h.entries = out
	return h
}

// Get returns the first value for key (case-insensitively), or "" if absent.
func (h *Headers) Get(key string) string {
	canon := http.CanonicalHeaderKey(key)
	for _, e := range h.entries {
		if http.CanonicalHeaderKey(e.key) == canon {
			return e.value
		}
	}
	return ""
}

// Values returns every value for key (case-insensitively), in insertion
// order.
func (h *Headers) Values(key string) []string {
	canon := http.CanonicalHeaderKey(key)
	var out []string
	for _, e := range h.entries {
		if http.CanonicalHeaderKey(e.key) == canon {
			out = append(out, e.value)
		}
	}
	return out
}

// Has reports whether key is present (case-insensitively).
func (h *Headers) Has(key string) bool {
	canon := http.CanonicalHeaderKey(key)
	for _, e := range h.entries {
		if http.CanonicalHeaderKey(e.key) == canon {
			return true
		}
	}
	return false
}

// Len returns the number of header entries, counting duplicates.
func (h *Headers) Len() int { return len(h.entries) }

// Each calls fn for every entry in insertion order, in the original key
// casing, so a response writer can reproduce the exact wire order and
// capitalization a handler built.
func (h *Headers) Each(fn func(key, value string)) {
	for _, e := range h.entries {
		fn(e.key, e.value)
	}
}

// Clone returns an independent copy of h.
func (h *Headers) Clone() *Headers {
	c := &Headers{entries: make([]headerEntry, len(h.entries))}
	copy(c.entries, h.entries)
	return c
}
