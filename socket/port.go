package socket

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/currentframework/bricks/internal/brickserr"
)

// Local port range scavenged by Reserve when the caller does not pin a
// specific port. Mirrors the range used for ephemeral service discovery in
// the originating library: high enough to avoid the classic privileged and
// IANA well-known ranges, narrow enough that a scan terminates quickly.
const (
	portRangeMin = 25000
	portRangeMax = 29000
)

// listenConfig enables SO_REUSEADDR on every socket this package binds, so a
// restarted process can rebind a port still draining TIME_WAIT connections
// from its predecessor.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	},
}

var shuffleMu sync.Mutex

// Acquire binds and listens on exactly the requested port. It returns
// ErrSocketBind wrapped with the port and underlying cause if the port is
// already in use or otherwise unavailable.
func Acquire(port int) (*Handle, error) {
	ln, err := listenConfig.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("socket: bind port %d: %w: %v", port, brickserr.ErrSocketBind, err)
	}
	return WrapListener(ln), nil
}

// Reserve finds and binds an unused port in [portRangeMin, portRangeMax] by
// shuffling the range and trying each candidate in turn, the same strategy
// the originating library uses with std::shuffle over a Mersenne Twister:
// a linear scan starting from the same port every time would make
// back-to-back test runs collide on whichever port the previous run left
// draining in TIME_WAIT.
//
// It returns the bound Handle and the port number it landed on, or
// ErrNoFreeLocalPortAvailable if every candidate in the range was taken.
func Reserve() (*Handle, int, error) {
	candidates := make([]int, 0, portRangeMax-portRangeMin+1)
	for p := portRangeMin; p <= portRangeMax; p++ {
		candidates = append(candidates, p)
	}

	shuffleMu.Lock()
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	shuffleMu.Unlock()

	for _, p := range candidates {
		h, err := Acquire(p)
		if err == nil {
			return h, p, nil
		}
	}
	return nil, 0, brickserr.ErrNoFreeLocalPortAvailable
}
