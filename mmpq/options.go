package mmpq

import "go.uber.org/zap"

// Policy selects what Publish/Schedule do once a bounded Queue is full.
type Policy int

const (
	// Block makes Publish/Schedule wait until a slot frees up. The default.
	Block Policy = iota
	// DropOldest evicts the pending entry with the smallest timestamp to
	// make room for the incoming one.
	DropOldest
	// DropNewest rejects the incoming entry, counting it as not published,
	// leaving the queue unchanged.
	DropNewest
)

// Counters receives lifecycle notifications for every Publish/Schedule
// outcome and every delivery, letting a caller (typically *metrics.Metrics)
// track MMPQ activity without this package importing the metrics package.
type Counters interface {
	RecordMMPQPublish()
	RecordMMPQDrop()
	RecordMMPQDeliver()
}

type queueConfig struct {
	bound    int
	policy   Policy
	logger   *zap.Logger
	counters Counters
}

// Option configures a Queue at construction time.
type Option func(*queueConfig)

// WithBound caps the number of undrained entries a Queue holds before its
// Policy applies. Zero (the default) means unbounded.
func WithBound(n int) Option {
	return func(c *queueConfig) { c.bound = n }
}

// WithPolicy sets the backpressure policy applied once WithBound's limit is
// reached. Ignored when the bound is zero.
func WithPolicy(p Policy) Option {
	return func(c *queueConfig) { c.policy = p }
}

// WithLogger attaches a zap.Logger for drop/reject diagnostics. The default
// is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *queueConfig) { c.logger = l }
}

// WithCounters attaches a Counters sink notified of every admitted entry,
// dropped entry, and delivery. The default is no notifications.
func WithCounters(counters Counters) Option {
	return func(c *queueConfig) { c.counters = counters }
}
