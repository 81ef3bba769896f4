// Package mmpq implements the bounded multi-master priority queue edge that
// sits between every pair of RipCurrent blocks: producers Publish/Schedule
// timestamped entries from their own (mutually unsynchronized) context, and
// a single dedicated consumer goroutine delivers them, strictly in
// ascending timestamp order, to the downstream block.
package mmpq

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/currentframework/bricks/internal/brickserr"
)

// Timestamp is microseconds since an edge-local epoch, matching the
// original_source MMPQ's std::chrono::microseconds key.
type Timestamp int64

// Entry is one timestamped message sitting in (or having passed through) a
// Queue.
type Entry[T any] struct {
	Timestamp Timestamp
	Value     T
}

// String renders a log-friendly description without requiring T to
// implement fmt.Stringer itself.
func (e Entry[T]) String() string {
	return fmt.Sprintf("mmpq.Entry{t=%d}", e.Timestamp)
}

// Stats is a point-in-time snapshot of a Queue's counters, suitable for
// exposing through the metrics/dashboard packages.
type Stats struct {
	PublishCalled uint64
	Published     uint64
	NotPublished  uint64
	Processed     uint64
	Pending       int
	Head          Timestamp
	HaveHead      bool
}

// entryHeap is a container/heap min-heap over Entry[T], ordered by
// Timestamp. It is the pending-delivery priority queue.
type entryHeap[T any] []Entry[T]

func (h entryHeap[T]) Len() int            { return len(h) }
func (h entryHeap[T]) Less(i, j int) bool  { return h[i].Timestamp < h[j].Timestamp }
func (h entryHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap[T]) Push(x interface{}) { *h = append(*h, x.(Entry[T])) }
func (h *entryHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is one MMPQ edge carrying messages of type T. Publish, Schedule,
// and UpdateHead may be called concurrently by multiple producers; Queue
// serializes them internally with a mutex. Deliveries run on a single
// goroutine started by New, calling the supplied deliver func exactly once
// per accepted entry, in ascending timestamp order.
type Queue[T any] struct {
	deliver  func(T)
	bound    int
	policy   Policy
	logger   *zap.Logger
	counters Counters

	mu      sync.Mutex
	cond    *sync.Cond
	pending entryHeap[T]
	ready   []Entry[T]

	head     Timestamp
	haveHead bool

	publishCalled uint64
	published     uint64
	notPublished  uint64
	processed     uint64

	shutdownRequested bool
	consumerStopped   chan struct{}
}

// New constructs a Queue and starts its dedicated consumer goroutine, which
// calls deliver for every entry that clears HEAD, in ascending timestamp
// order.
func New[T any](deliver func(T), opts ...Option) *Queue[T] {
	cfg := queueConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &Queue[T]{
		deliver:         deliver,
		bound:           cfg.bound,
		policy:          cfg.policy,
		logger:          cfg.logger,
		counters:        cfg.counters,
		consumerStopped: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.consumeLoop()
	return q
}

// Publish inserts (value, t), failing with ErrInconsistentTimestamp if
// t <= HEAD. On success it behaves as an implicit UpdateHead(t): HEAD
// advances to t and every pending entry with timestamp <= HEAD drains to
// the consumer in ascending order.
func (q *Queue[T]) Publish(value T, t Timestamp) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.publishCalled++
	if q.haveHead && t <= q.head {
		q.notPublished++
		q.cond.Broadcast()
		q.notifyDrop()
		return fmt.Errorf("%w: expected > %d, got %d", brickserr.ErrInconsistentTimestamp, q.head, t)
	}

	if !q.admitLocked(t, value) {
		q.notPublished++
		q.cond.Broadcast()
		q.notifyDrop()
		return nil
	}

	q.published++
	q.head = t
	q.haveHead = true
	q.drainLocked()
	q.cond.Broadcast()
	q.notifyPublish()
	return nil
}

// Schedule inserts (value, t) without touching HEAD. The consumer will not
// see it until a later UpdateHead (or Publish) advances HEAD past t.
// Schedule never fails on timestamp ordering.
func (q *Queue[T]) Schedule(value T, t Timestamp) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.publishCalled++
	if !q.admitLocked(t, value) {
		q.notPublished++
		q.cond.Broadcast()
		q.notifyDrop()
		return nil
	}
	q.published++
	q.cond.Broadcast()
	q.notifyPublish()
	return nil
}

// UpdateHead advances HEAD to t, failing with ErrInconsistentTimestamp if
// t < HEAD. On success every pending entry with timestamp <= HEAD drains to
// the consumer in ascending order.
func (q *Queue[T]) UpdateHead(t Timestamp) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.haveHead && t < q.head {
		return fmt.Errorf("%w: expected >= %d, got %d", brickserr.ErrInconsistentTimestamp, q.head, t)
	}
	q.head = t
	q.haveHead = true
	q.drainLocked()
	q.cond.Broadcast()
	return nil
}

// admitLocked applies the backpressure policy and, if the entry is
// admitted, pushes it onto the pending heap. Caller holds q.mu. Returns
// false only when the queue is full under DropNewest and the entry was
// dropped instead of admitted. Under DropOldest the evicted entry is
// counted as not published.
func (q *Queue[T]) admitLocked(t Timestamp, value T) bool {
	for q.bound > 0 && q.pending.Len() >= q.bound {
		switch q.policy {
		case DropNewest:
			q.logger.Debug("mmpq: dropping newest entry, queue full", zap.Int("bound", q.bound))
			return false
		case DropOldest:
			dropped := heap.Pop(&q.pending).(Entry[T])
			q.notPublished++
			q.notifyDrop()
			q.logger.Debug("mmpq: dropping oldest entry, queue full", zap.Int64("dropped_t", int64(dropped.Timestamp)))
		default: // Block
			q.cond.Wait()
		}
	}
	heap.Push(&q.pending, Entry[T]{Timestamp: t, Value: value})
	return true
}

// drainLocked moves every pending entry with timestamp <= HEAD into the
// ready FIFO, in ascending order, and wakes the consumer. Caller holds
// q.mu.
func (q *Queue[T]) drainLocked() {
	for q.pending.Len() > 0 && q.pending[0].Timestamp <= q.head {
		e := heap.Pop(&q.pending).(Entry[T])
		q.ready = append(q.ready, e)
	}
}

func (q *Queue[T]) consumeLoop() {
	defer close(q.consumerStopped)
	for {
		q.mu.Lock()
		for len(q.ready) == 0 && !q.shutdownRequested {
			q.cond.Wait()
		}
		if len(q.ready) == 0 && q.shutdownRequested {
			q.mu.Unlock()
			return
		}
		e := q.ready[0]
		q.ready = q.ready[1:]
		q.mu.Unlock()

		q.deliver(e.Value)

		q.mu.Lock()
		q.processed++
		q.cond.Broadcast()
		q.mu.Unlock()
		q.notifyDeliver()
	}
}

// notifyPublish/notifyDrop/notifyDeliver forward to the attached Counters
// sink, if any.
func (q *Queue[T]) notifyPublish() {
	if q.counters != nil {
		q.counters.RecordMMPQPublish()
	}
}

func (q *Queue[T]) notifyDrop() {
	if q.counters != nil {
		q.counters.RecordMMPQDrop()
	}
}

func (q *Queue[T]) notifyDeliver() {
	if q.counters != nil {
		q.counters.RecordMMPQDeliver()
	}
}

// Shutdown waits until every accepted or rejected Publish/Schedule call has
// been either processed or counted as dropped (publishCalled ==
// processed+notPublished), then stops the consumer goroutine and returns.
// It is safe to call at most once.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	for q.publishCalled != q.processed+q.notPublished {
		q.cond.Wait()
	}
	q.shutdownRequested = true
	q.cond.Broadcast()
	q.mu.Unlock()

	<-q.consumerStopped
}

// Head returns the current HEAD watermark, or ErrNoEntriesPublishedYet if
// neither Publish nor UpdateHead has run yet.
func (q *Queue[T]) Head() (Timestamp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.haveHead {
		return 0, brickserr.ErrNoEntriesPublishedYet
	}
	return q.head, nil
}

// Range returns a snapshot of undrained pending entries with timestamp in
// [from, to], ascending. It fails with ErrInvalidIterableRange if to < from.
func (q *Queue[T]) Range(from, to Timestamp) ([]Entry[T], error) {
	if to < from {
		return nil, brickserr.ErrInvalidIterableRange
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Entry[T]
	for _, e := range q.pending {
		if e.Timestamp >= from && e.Timestamp <= to {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Stats returns a point-in-time snapshot of the queue's counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		PublishCalled: q.publishCalled,
		Published:     q.published,
		NotPublished:  q.notPublished,
		Processed:     q.processed,
		Pending:       q.pending.Len(),
		Head:          q.head,
		HaveHead:      q.haveHead,
	}
}
