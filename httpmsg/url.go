package httpmsg

import "strings"

// QueryParams is an ordered map of decoded query-string key/value pairs.
// Ordering mirrors the order keys appeared in the query string, since
// route handlers that iterate params expect wire order, not sorted order.
type QueryParams struct {
	keys   []string
	values map[string][]string
}

// URL is the decomposed request target: the path and its decoded query
// string. Percent-decoding is applied to both; a malformed escape (a '%'
// not followed by two hex digits) is preserved byte-for-byte rather than
// rejecting the request, matching the parser's tolerant-decode rule.
type URL struct {
	Path  string
	Query *QueryParams
	// TrailingSlash records whether the raw request-line path ended in '/'
	// (false for the bare root path "/" itself). Route handlers use this to
	// distinguish "/static/sub" from "/static/sub/" after the router has
	// already collapsed both down to the same trailing segments.
	TrailingSlash bool
}

// ParseURL splits raw (the request-line target, e.g. "/a/b?x=1&y=2") into
// its decoded path and query components.
func ParseURL(raw string) *URL {
	path := raw
	var rawQuery string
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		path = raw[:i]
		rawQuery = raw[i+1:]
	}
	return &URL{
		Path:          percentDecode(path, false),
		Query:         parseQuery(rawQuery),
		TrailingSlash: len(path) > 1 && strings.HasSuffix(path, "/"),
	}
}

func parseQuery(raw string) *QueryParams {
	q := &QueryParams{values: make(map[string][]string)}
	if raw == "" {
		return q
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		var key, value string
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
			value = pair[i+1:]
		} else {
			key = pair
		}
		key = percentDecode(key, true)
		value = percentDecode(value, true)
		if _, seen := q.values[key]; !seen {
			q.keys = append(q.keys, key)
		}
		q.values[key] = append(q.values[key], value)
	}
	return q
}

// Get returns the first decoded value for key, or "" if key is absent.
func (q *QueryParams) Get(key string) string {
	if vs, ok := q.values[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns every decoded value for key, in the order they appeared.
func (q *QueryParams) Values(key string) []string {
	return q.values[key]
}

// Keys returns every distinct query key, in first-seen order.
func (q *QueryParams) Keys() []string {
	return q.keys
}

// percentDecode decodes %HH escapes. When queryMode is true, '+' also
// decodes to a literal space, matching application/x-www-form-urlencoded.
// A '%' not followed by two valid hex digits is copied through unchanged,
// malformed-and-all, rather than raising an error.
func percentDecode(s string, queryMode bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
		case c == '+' && queryMode:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
