package ripcurrent

import (
	"time"
)

// Context is the handle a block's handler uses to emit, post, schedule, and
// advance HEAD for each U in its declared RHS.
type Context struct {
	block    *Block
	outbound outboundFunc
	head     headFunc
}

// Emit delivers msg downstream with the current time as its timestamp. msg
// must be one of the block's declared RHS types.
func (c *Context) Emit(msg interface{}) error {
	return c.send(msg, now(), false)
}

// Post delivers msg downstream at the explicit timestamp t (microseconds).
// It fails with ErrInconsistentTimestamp if t does not clear the
// downstream edge's HEAD watermark.
func (c *Context) Post(msg interface{}, t int64) error {
	return c.send(msg, t, false)
}

// Schedule inserts msg for speculative future delivery at t, without
// advancing HEAD. The consumer will not observe it until a later Head(t')
// with t' >= t.
func (c *Context) Schedule(msg interface{}, t int64) error {
	return c.send(msg, t, true)
}

// Head advances the downstream edge's HEAD watermark to t, draining any
// scheduled entries that now clear it.
func (c *Context) Head(t int64) error {
	return c.head(t)
}

func (c *Context) send(msg interface{}, t int64, scheduled bool) error {
	if err := validateRHSType(c.block, msg); err != nil {
		return err
	}
	return c.outbound(msg, t, scheduled)
}

func validateRHSType(b *Block, msg interface{}) error {
	t := typeOfValue(msg)
	if !b.rhs.contains(t) {
		return errUnhandledType("emit from "+b.description, t, b.rhs)
	}
	return nil
}

// now yields a strictly-increasing-in-practice timestamp for Emit's
// implicit "now". Nanosecond resolution keeps successive Emit calls from
// the same block from colliding and tripping the downstream edge's
// monotonicity check.
func now() int64 {
	return time.Now().UnixNano()
}
