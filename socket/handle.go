// Package socket wraps raw TCP sockets with the move-once, explicit-lifetime
// semantics of a POSIX file descriptor handle: a Handle is either valid,
// moved-away, or closed, and using it after either of the latter two states
// returns a brickserr sentinel instead of panicking.
//
// Go already garbage-collects file descriptors wrapped by net.Conn, so none
// of this is required for memory safety. It exists because the rest of this
// module (Connection.Close, the half-close helpers, Reserve) is
// grounded on a C++ socket abstraction that makes "was this already taken
// from me" an explicit, checkable question, and callers that migrated from
// that model expect the same question to be answerable here.
package socket

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/currentframework/bricks/internal/brickserr"
)

// state values for Handle.state.
const (
	stateValid int32 = iota
	stateMovedAway
	stateClosed
)

// Handle owns exactly one net.Conn (or net.Listener, for the accept side)
// and tracks whether it has been moved away via Take.
//
// The zero Handle is not usable; construct one with WrapConn or WrapListener.
type Handle struct {
	conn  net.Conn
	ln    net.Listener
	state int32
}

// WrapConn creates a Handle owning an already-connected net.Conn.
func WrapConn(c net.Conn) *Handle {
	return &Handle{conn: c}
}

// WrapListener creates a Handle owning a net.Listener obtained from Reserve
// or Acquire.
func WrapListener(l net.Listener) *Handle {
	return &Handle{ln: l}
}

// Valid reports whether the handle still owns its underlying resource:
// neither moved away nor closed.
func (h *Handle) Valid() bool {
	return atomic.LoadInt32(&h.state) == stateValid
}

// checkAccess mirrors ReadOnlyValidSocketAccessor: it returns
// ErrAttemptedToUseMovedAwayHandle once the handle has been taken, or
// ErrInvalidSocket once it has been closed, and nil while the handle is
// still live.
func (h *Handle) checkAccess() error {
	switch atomic.LoadInt32(&h.state) {
	case stateMovedAway:
		return brickserr.ErrAttemptedToUseMovedAwayHandle
	case stateClosed:
		return brickserr.ErrInvalidSocket
	default:
		return nil
	}
}

// Conn returns the underlying net.Conn, or an error if the handle has been
// moved away or closed, or does not own a connection at all.
func (h *Handle) Conn() (net.Conn, error) {
	if err := h.checkAccess(); err != nil {
		return nil, err
	}
	if h.conn == nil {
		return nil, fmt.Errorf("socket: handle does not own a connection: %w", brickserr.ErrInvalidSocket)
	}
	return h.conn, nil
}

// Listener returns the underlying net.Listener, or an error if the handle
// has been moved away or closed, or does not own a listener at all.
func (h *Handle) Listener() (net.Listener, error) {
	if err := h.checkAccess(); err != nil {
		return nil, err
	}
	if h.ln == nil {
		return nil, fmt.Errorf("socket: handle does not own a listener: %w", brickserr.ErrInvalidSocket)
	}
	return h.ln, nil
}

// Take atomically transitions the handle to the moved-away state and
// returns the underlying net.Conn. A second call to Take, or any call to
// Conn/Listener/Close after Take, observes ErrAttemptedToUseMovedAwayHandle.
//
// This models C++ move construction: ownership of the file descriptor
// transfers to the caller, and the source handle becomes a husk.
func (h *Handle) Take() (net.Conn, error) {
	if !atomic.CompareAndSwapInt32(&h.state, stateValid, stateMovedAway) {
		return nil, h.checkAccess()
	}
	return h.conn, nil
}

// Close releases the underlying resource exactly once. Subsequent calls
// return ErrInvalidSocket rather than the net package's "use of closed
// network connection", keeping error handling uniform across this package.
func (h *Handle) Close() error {
	if !atomic.CompareAndSwapInt32(&h.state, stateValid, stateClosed) {
		return h.checkAccess()
	}
	if h.conn != nil {
		return h.conn.Close()
	}
	if h.ln != nil {
		return h.ln.Close()
	}
	return nil
}
