package ripcurrent

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Scope is the handle returned by an end-to-end block's RipCurrent(). It
// owns the running pipeline's teardown.
type Scope struct {
	block    *Block
	teardown func()

	joined uint32 // atomic bool
	async  uint32 // atomic bool
}

// RipCurrent starts an end-to-end block (LHS and RHS both empty) running
// and returns a Scope owning its lifetime. It fails if b is not end-to-end.
func (b *Block) RipCurrent() (*Scope, error) {
	if len(b.lhs) != 0 || len(b.rhs) != 0 {
		return nil, fmt.Errorf("ripcurrent: RipCurrent: %q is not end-to-end: LHS<%s> RHS<%s>",
			b.description, b.lhs.describe(), b.rhs.describe())
	}

	inbound, teardown := b.build(
		func(interface{}, int64, bool) error {
			return fmt.Errorf("ripcurrent: %q: end-to-end block emitted with no RHS declared", b.description)
		},
		func(int64) error { return nil },
	)
	_ = inbound // an end-to-end block's own LHS is empty; nothing external feeds it

	b.markUsage(usageHasBeenRun)

	scope := &Scope{block: b, teardown: teardown}
	runtime.SetFinalizer(scope, finalizeScope)
	return scope, nil
}

// Join blocks until every block in the scope has drained and torn down. It
// may be called at most once; subsequent calls return an error instead of
// tearing down twice.
func (s *Scope) Join() error {
	if !atomic.CompareAndSwapUint32(&s.joined, 0, 1) {
		return fmt.Errorf("ripcurrent: Join called more than once on scope for %q", s.block.description)
	}
	s.teardown()
	return nil
}

// Async releases the caller from the obligation to call Join: the scope
// tears itself down in its finalizer instead. Prefer Join when the caller
// can block; Async exists for fire-and-forget top-level pipelines.
func (s *Scope) Async() {
	atomic.StoreUint32(&s.async, 1)
}

func finalizeScope(s *Scope) {
	if atomic.LoadUint32(&s.joined) == 1 {
		return
	}
	if atomic.LoadUint32(&s.async) == 1 {
		s.teardown()
		return
	}
	handleError(fmt.Sprintf("ripcurrent: scope for %q destroyed without Join or Async", s.block.description))
}
