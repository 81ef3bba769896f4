// Package brickserr is the shared error-kind taxonomy used across the
// socket, httpparser, httpserver, client, mmpq, and ripcurrent packages.
//
// The original C++ library throws a distinct exception type per failure
// kind and lets them propagate to the connection boundary, where they are
// caught and translated. Go has no exception hierarchy, so each kind below
// is a sentinel error: callers compare with errors.Is, and call sites wrap
// it with fmt.Errorf("%w: ...") to attach the failing operation's detail.
package brickserr

import "errors"

// Network / socket error kinds.
var (
	ErrSocketCreate                    = errors.New("socket: create failed")
	ErrSocketBind                      = errors.New("socket: bind failed")
	ErrSocketListen                    = errors.New("socket: listen failed")
	ErrSocketAccept                    = errors.New("socket: accept failed")
	ErrSocketConnect                   = errors.New("socket: connect failed")
	ErrSocketResolveAddress            = errors.New("socket: could not resolve address")
	ErrSocketRead                      = errors.New("socket: read failed")
	ErrEmptySocketRead                 = errors.New("socket: read failed with zero bytes transferred")
	ErrSocketWrite                     = errors.New("socket: write failed")
	ErrSocketCouldNotWriteEverything   = errors.New("socket: short write")
	ErrConnectionResetByPeer           = errors.New("socket: connection reset by peer")
	ErrEmptyConnectionResetByPeer      = errors.New("socket: connection reset by peer before any bytes were read")
	ErrInvalidSocket                   = errors.New("socket: invalid (sentinel) socket handle")
	ErrAttemptedToUseMovedAwayHandle   = errors.New("socket: attempted to use a moved-away handle")
	ErrSocketGetSockName               = errors.New("socket: getsockname failed")
	ErrNoFreeLocalPortAvailable        = errors.New("socket: exhausted the local port range without finding a free port")
)

// HTTP protocol error kinds.
var (
	ErrHTTPRequestBodyLengthNotProvided    = errors.New("http: request body length not provided")
	ErrHTTPPayloadTooLarge                 = errors.New("http: request payload too large")
	ErrChunkSizeNotAValidHexValue          = errors.New("http: chunk size is not a valid hex value")
	ErrHTTPConnectionClosedByPeer          = errors.New("http: connection closed by peer mid-message")
	ErrHTTPRedirectNotAllowed              = errors.New("http: redirect received but redirects are disabled")
	ErrHTTPRedirectLoop                    = errors.New("http: redirect loop detected")
	ErrAttemptedToSendHTTPResponseTwice    = errors.New("http: attempted to send a response more than once")
)

// Router error kinds.
var (
	ErrPathDoesNotStartWithSlash  = errors.New("router: path must start with '/'")
	ErrPathEndsWithSlash          = errors.New("router: path must not end with '/'")
	ErrPathContainsInvalidChars   = errors.New("router: path contains characters disallowed by the router")
	ErrHandlerAlreadyExists       = errors.New("router: a handler is already registered for this path, method, and arg count")
	ErrHandlerDoesNotExist        = errors.New("router: no handler is registered for this path, method, and arg count")
)

// Static file serving error kinds.
var (
	ErrUnknownMIMEType       = errors.New("staticfiles: cannot serve a file of unknown MIME type")
	ErrMultipleIndexFiles    = errors.New("staticfiles: more than one candidate index file in a directory")
)

// MMPQ / dataflow error kinds.
var (
	ErrInconsistentTimestamp = errors.New("mmpq: inconsistent timestamp")
	ErrNoEntriesPublishedYet = errors.New("mmpq: no entries have been published yet")
	ErrInvalidIterableRange  = errors.New("mmpq: invalid iterable range")
)
