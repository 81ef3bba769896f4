package ripcurrent

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"
)

// usage bits, matching the original design's BlockUsageBit enum. A block
// whose bitmask is entirely clear when garbage collected is a leak: it was
// declared but never described, run, folded into a larger block, or
// explicitly dismissed.
const (
	usageDescribed uint32 = 1 << iota
	usageHasBeenRun
	usageUsedInLargerBlock
	usageDismissed
)

// sourceLocation traces one file:line at which a block (or one of its
// operands) was defined, for leak diagnostics.
type sourceLocation struct {
	file string
	line int
}

func (s sourceLocation) String() string {
	return fmt.Sprintf("%s:%d", s.file, s.line)
}

// buildFunc wires a block's inbound dispatch to a downstream outbound sink
// and head-advance function, returning the block's own inbound handler (for
// its caller to feed LHS messages into) and a teardown func that must be
// called before the caller's own downstream sink is torn down.
//
// For a leaf block, inbound dispatches directly by runtime type to a user
// handler. For a composite block (Pipe/Plus), build recursively wires its
// operands, optionally through an mmpq.Queue edge.
type buildFunc func(outbound outboundFunc, head headFunc) (inbound inboundFunc, teardown func())

type inboundFunc func(msg interface{}) error
type outboundFunc func(msg interface{}, t int64, scheduled bool) error
type headFunc func(t int64) error

// handlerFunc is a type-erased LHS handler: the concrete func(ctx, T) the
// caller registered via On, wrapped to accept interface{}.
type handlerFunc func(ctx *Context, msg interface{}) error

// Block is a single building block or a composition of blocks: a name, an
// LHS type set, an RHS type set, and the machinery to run it.
type Block struct {
	lhs         TypeSet
	rhs         TypeSet
	description string
	sources     []sourceLocation

	handlers map[reflect.Type]handlerFunc // leaf blocks only
	build    buildFunc

	usage uint32 // atomic bitmask
}

// Define declares a new leaf block named name with the given LHS/RHS type
// sets. Register its per-type handlers with On before composing or running
// it.
func Define(name string, lhs, rhs TypeSet) *Block {
	loc := callerLocation(1)
	b := &Block{
		lhs:         lhs,
		rhs:         rhs,
		description: name,
		sources:     []sourceLocation{loc},
		handlers:    make(map[reflect.Type]handlerFunc),
	}
	b.build = b.buildLeaf
	globalRegistry.add(b)
	runtime.SetFinalizer(b, finalizeBlock)
	return b
}

func callerLocation(skip int) sourceLocation {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return sourceLocation{file: "unknown", line: 0}
	}
	return sourceLocation{file: file, line: line}
}

func finalizeBlock(b *Block) {
	if atomic.LoadUint32(&b.usage) == 0 {
		handleError(fmt.Sprintf("leaked block %q, never described/run/folded/dismissed:\n%s", b.description, b.sourcesText()))
	}
}

func (b *Block) usageBits() uint32 { return atomic.LoadUint32(&b.usage) }

// Leaked reports whether b's usage bitmask is still entirely clear (never
// described, run, folded into a larger block, or explicitly dismissed).
// Exposed for external introspection (e.g. cluster's control plane) as a
// per-block equivalent of the process-wide Leaked function.
func (b *Block) Leaked() bool { return b.usageBits() == 0 }

func (b *Block) markUsage(bit uint32) {
	for {
		old := atomic.LoadUint32(&b.usage)
		if atomic.CompareAndSwapUint32(&b.usage, old, old|bit) {
			return
		}
	}
}

func (b *Block) sourcesText() string {
	lines := make([]string, len(b.sources))
	for i, s := range b.sources {
		lines[i] = "  at " + s.String()
	}
	return strings.Join(lines, "\n")
}

// On registers the handler for LHS type T on a leaf block, wrapping f to
// accept interface{} messages. It panics if b is a composite block (On only
// applies to blocks constructed with Define) or if T is not in b's LHS.
func On[T any](b *Block, f func(ctx *Context, msg T) error) *Block {
	if b.handlers == nil {
		panic("ripcurrent: On called on a composite block; only Define'd leaf blocks accept handlers")
	}
	t := TypeOf[T]()
	if !b.lhs.contains(t) {
		panic(fmt.Sprintf("ripcurrent: On: type %s is not in block %q's declared LHS", t, b.description))
	}
	b.handlers[t] = func(ctx *Context, msg interface{}) error {
		return f(ctx, msg.(T))
	}
	return b
}

// LHS returns the block's declared LHS type set.
func (b *Block) LHS() TypeSet { return b.lhs }

// RHS returns the block's declared RHS type set.
func (b *Block) RHS() TypeSet { return b.rhs }

// Describe returns the source-style composition string for this block
// (e.g. "ValidateOrder | Persist").
func (b *Block) Describe() string {
	b.markUsage(usageDescribed)
	return b.description
}

// DescribeWithTypes returns Describe's string annotated with the concrete
// LHS/RHS type names.
func (b *Block) DescribeWithTypes() string {
	b.markUsage(usageDescribed)
	return fmt.Sprintf("%s : LHS<%s> -> RHS<%s>", b.description, b.lhs.describe(), b.rhs.describe())
}

// Dismiss marks the block as intentionally discarded, suppressing the
// leaked-block diagnostic without running or composing it.
func (b *Block) Dismiss() {
	b.markUsage(usageDismissed)
}

func (b *Block) buildLeaf(outbound outboundFunc, head headFunc) (inboundFunc, func()) {
	inbound := func(msg interface{}) error {
		t := reflect.TypeOf(msg)
		h, ok := b.handlers[t]
		if !ok {
			return errUnhandledType("invoke "+b.description, t, b.lhs)
		}
		ctx := &Context{block: b, outbound: outbound, head: head}
		return h(ctx, msg)
	}
	return inbound, func() {}
}

// Run builds the block's runtime plumbing once (wiring any mmpq edges its
// composition needs) and returns a send func for feeding LHS messages in,
// plus a teardown func the caller must invoke exactly once when done. Run
// is the primitive behind Invoke; use it directly to feed a block multiple
// messages without rebuilding its plumbing between each one.
func (b *Block) Run() (send func(msg interface{}) error, teardown func()) {
	b.markUsage(usageHasBeenRun)
	if rec := currentRecorder(); rec != nil {
		rec.RecordRipCurrentRun()
	}
	return b.build(
		func(interface{}, int64, bool) error {
			return fmt.Errorf("ripcurrent: %q emitted on RHS<%s> with no downstream consumer", b.description, b.rhs.describe())
		},
		func(int64) error { return nil },
	)
}

// Invoke feeds a single msg directly into a leaf or composite block's LHS,
// without going through a scope. It is primarily useful for unit-testing a
// block in isolation with one message; call Run directly to feed several.
func (b *Block) Invoke(msg interface{}) error {
	send, teardown := b.Run()
	defer teardown()
	return send(msg)
}
