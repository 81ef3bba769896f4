package ripcurrent

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/currentframework/bricks/mmpq"
)

// Pipe composes a | b (sequence): legal iff a's RHS and b's LHS describe the
// same set of types. The resulting block has a's LHS and b's RHS. At
// construction time (RipCurrent/Invoke), it wires an mmpq.Queue between
// them: b's consumer is built first, then the queue, then a's producer; on
// teardown a is torn down first (so the queue drains before b is).
func Pipe(a, b *Block) (*Block, error) {
	if !a.rhs.equal(b.lhs) {
		return nil, fmt.Errorf("ripcurrent: %q | %q: LHS<%s> does not match RHS<%s>",
			a.description, b.description, b.lhs.describe(), a.rhs.describe())
	}

	a.markUsage(usageUsedInLargerBlock)
	b.markUsage(usageUsedInLargerBlock)

	combined := &Block{
		lhs:         a.lhs,
		rhs:         b.rhs,
		description: a.description + " | " + b.description,
		sources:     append(append([]sourceLocation{}, a.sources...), b.sources...),
	}
	combined.build = func(outbound outboundFunc, head headFunc) (inboundFunc, func()) {
		bInbound, bTeardown := b.build(outbound, head)

		var queueOpts []mmpq.Option
		if rec := currentRecorder(); rec != nil {
			queueOpts = append(queueOpts, mmpq.WithCounters(rec))
		}
		queue := mmpq.New[queuedMessage](func(m queuedMessage) {
			if err := bInbound(m.msg); err != nil {
				handleError(fmt.Sprintf("%q: delivering to %q failed: %v", combined.description, b.description, err))
			}
		}, queueOpts...)
		edgeName := a.description + "|" + b.description
		mmpq.Register(edgeName, queue)

		aOutbound := func(msg interface{}, t int64, scheduled bool) error {
			qm := queuedMessage{msg: msg}
			if scheduled {
				return queue.Schedule(qm, mmpq.Timestamp(t))
			}
			err := queue.Publish(qm, mmpq.Timestamp(t))
			if err != nil {
				handleError(fmt.Sprintf("%q: %v", combined.description, err))
			}
			return err
		}
		aHead := func(t int64) error {
			if err := queue.UpdateHead(mmpq.Timestamp(t)); err != nil {
				handleError(fmt.Sprintf("%q: %v", combined.description, err))
				return err
			}
			return nil
		}

		aInbound, aTeardown := a.build(aOutbound, aHead)

		teardown := func() {
			aTeardown()
			queue.Shutdown()
			mmpq.Unregister(edgeName, queue)
			bTeardown()
		}
		return aInbound, teardown
	}
	globalRegistry.add(combined)
	runtime.SetFinalizer(combined, finalizeBlock)
	return combined, nil
}

// queuedMessage wraps a type-erased RipCurrent message so it satisfies the
// `any` constraint mmpq.Queue is generic over, matching the original
// design's type-erased movable_message_t travelling through the MMPQ.
type queuedMessage struct {
	msg interface{}
}

// Plus composes a + b (parallel): LHS is the union of both operands' LHS,
// RHS is the union of both operands' RHS. Inbound messages are dispatched to
// a or b by runtime type identity; each side's outbound messages forward
// unchanged to the combined successor.
func Plus(a, b *Block) *Block {
	a.markUsage(usageUsedInLargerBlock)
	b.markUsage(usageUsedInLargerBlock)

	combined := &Block{
		lhs:         a.lhs.union(b.lhs),
		rhs:         a.rhs.union(b.rhs),
		description: a.description + " + " + b.description,
		sources:     append(append([]sourceLocation{}, a.sources...), b.sources...),
	}
	combined.build = func(outbound outboundFunc, head headFunc) (inboundFunc, func()) {
		aInbound, aTeardown := a.build(outbound, head)
		bInbound, bTeardown := b.build(outbound, head)

		inbound := func(msg interface{}) error {
			t := reflect.TypeOf(msg)
			switch {
			case a.lhs.contains(t):
				return aInbound(msg)
			case b.lhs.contains(t):
				return bInbound(msg)
			default:
				return errUnhandledType("dispatch into "+combined.description, t, combined.lhs)
			}
		}
		teardown := func() {
			aTeardown()
			bTeardown()
		}
		return inbound, teardown
	}
	globalRegistry.add(combined)
	runtime.SetFinalizer(combined, finalizeBlock)
	return combined
}
