package httpmsg

import (
	"strconv"
	"strings"
)

// Cookies is an ordered collection of request cookie name/value pairs,
// parsed out of a request's Cookie header.
type Cookies struct {
	keys   []string
	values map[string]string
}

// ParseCookies parses a "Cookie" header value of the form
// "name=value; name=value" into a Cookies collection. A malformed segment
// (no '=') is skipped rather than aborting the whole header.
func ParseCookies(header string) *Cookies {
	c := &Cookies{values: make(map[string]string)}
	if header == "" {
		return c
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.IndexByte(part, '=')
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(part[:i])
		value := strings.TrimSpace(part[i+1:])
		if _, seen := c.values[name]; !seen {
			c.keys = append(c.keys, name)
		}
		c.values[name] = value
	}
	return c
}

// Get returns the value of cookie name, or "" if not present.
func (c *Cookies) Get(name string) string {
	return c.values[name]
}

// Has reports whether cookie name is present.
func (c *Cookies) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Names returns every cookie name, in first-seen order.
func (c *Cookies) Names() []string {
	return c.keys
}

// SetCookie describes one Set-Cookie response header's attributes.
type SetCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   int // seconds; 0 means unset, negative deletes the cookie
	HTTPOnly bool
	Secure   bool
	SameSite string // "", "Strict", "Lax", "None"
}

// String renders sc as a Set-Cookie header value.
func (sc SetCookie) String() string {
	var b strings.Builder
	b.WriteString(sc.Name)
	b.WriteByte('=')
	b.WriteString(sc.Value)
	if sc.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(sc.Path)
	}
	if sc.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(sc.Domain)
	}
	if sc.MaxAge != 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(sc.MaxAge))
	}
	if sc.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if sc.Secure {
		b.WriteString("; Secure")
	}
	if sc.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(sc.SameSite)
	}
	return b.String()
}
