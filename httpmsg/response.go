package httpmsg

import "encoding/json"

// Response is the value type handlers build and return: a status code, a
// body (raw bytes or a structured object serialized lazily at send time),
// headers, cookies, and a CORS flag. Every setter returns the receiver so
// calls chain: resp.Code(201).SetHeader("X-Id", id).JSON(payload).
type Response struct {
	code        int
	body        []byte
	structured  any
	hasStruct   bool
	contentType string
	headers     *Headers
	cookies     []SetCookie
	corsEnabled bool
}

// NewResponse returns a Response defaulting to status 200, a text/plain
// content type, and no body.
func NewResponse() *Response {
	return &Response{
		code:        200,
		contentType: "text/plain",
		headers:     NewHeaders(),
	}
}

// Code sets the HTTP status code.
func (r *Response) Code(code int) *Response {
	r.code = code
	return r
}

// StatusCode returns the response's status code.
func (r *Response) StatusCode() int { return r.code }

// SetHeader sets a response header, replacing any existing value(s) for key.
func (r *Response) SetHeader(key, value string) *Response {
	r.headers.Set(key, value)
	return r
}

// SetCookie appends a Set-Cookie directive to the response.
func (r *Response) SetCookie(c SetCookie) *Response {
	r.cookies = append(r.cookies, c)
	return r
}

// EnableCORS sets Access-Control-Allow-Origin: * (and the handful of
// companion headers a preflight expects) on send.
func (r *Response) EnableCORS() *Response {
	r.corsEnabled = true
	return r
}

// DisableCORS turns off CORS headers, reverting to the package's default
// for direct function-call replies.
func (r *Response) DisableCORS() *Response {
	r.corsEnabled = false
	return r
}

// CORSEnabled reports whether CORS headers should be emitted.
func (r *Response) CORSEnabled() bool { return r.corsEnabled }

// Body sets a raw byte-slice body and leaves the content type as-is unless
// ContentType is also called.
func (r *Response) Body(b []byte) *Response {
	r.body = b
	r.hasStruct = false
	return r
}

// Text sets a plain string body.
func (r *Response) Text(s string) *Response {
	return r.Body([]byte(s))
}

// JSON marks v as the response body; it is marshaled lazily when Bytes is
// called, and the content type is set to "application/json; charset=utf-8"
// unless the caller has already overridden it.
func (r *Response) JSON(v any) *Response {
	r.structured = v
	r.hasStruct = true
	if r.contentType == "text/plain" {
		r.contentType = "application/json; charset=utf-8"
	}
	return r
}

// ContentType overrides the response's Content-Type header value.
func (r *Response) ContentType(ct string) *Response {
	r.contentType = ct
	return r
}

// Headers returns the response's header collection for direct inspection.
func (r *Response) Headers() *Headers { return r.headers }

// SetCookies returns every Set-Cookie directive attached to the response.
func (r *Response) SetCookies() []SetCookie { return r.cookies }

// ContentTypeValue returns the resolved Content-Type header value.
func (r *Response) ContentTypeValue() string { return r.contentType }

// Bytes resolves and returns the response body, marshaling a structured
// body via encoding/json on first access.
func (r *Response) Bytes() ([]byte, error) {
	if !r.hasStruct {
		return r.body, nil
	}
	b, err := json.Marshal(r.structured)
	if err != nil {
		return nil, err
	}
	return b, nil
}
