package ring

import "sync/atomic"

// Mailbox is a lock-free single-producer/single-consumer queue with
// preallocated slots. The producer fills a slot in place, so the receive path
// never allocates; when full, new items are dropped and counted.
type Mailbox[T any] struct {
	slots   []T
	head    atomic.Uint64 // next slot to consume
	tail    atomic.Uint64 // next slot to fill
	dropped atomic.Uint64
}

// NewMailbox creates a mailbox with capacity slots.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox[T]{slots: make([]T, capacity)}
}

// Reserve returns the next free slot for the producer, or nil when full.
// The slot becomes visible to the consumer only after Commit.
func (m *Mailbox[T]) Reserve() *T {
	t := m.tail.Load()
	if t-m.head.Load() >= uint64(len(m.slots)) {
		m.dropped.Add(1)
		return nil
	}
	return &m.slots[t%uint64(len(m.slots))]
}

// Commit publishes the slot returned by the last Reserve.
func (m *Mailbox[T]) Commit() {
	m.tail.Add(1)
}

// Peek returns the oldest committed slot for the consumer, or nil when empty.
func (m *Mailbox[T]) Peek() *T {
	h := m.head.Load()
	if h == m.tail.Load() {
		return nil
	}
	return &m.slots[h%uint64(len(m.slots))]
}

// Release hands the slot returned by Peek back to the producer.
func (m *Mailbox[T]) Release() {
	m.head.Add(1)
}

// Len is the number of committed, unconsumed slots.
func (m *Mailbox[T]) Len() int {
	return int(m.tail.Load() - m.head.Load())
}

// Dropped is the number of Reserve calls refused because the mailbox was full.
func (m *Mailbox[T]) Dropped() uint64 {
	return m.dropped.Load()
}

// Reset discards unconsumed slots. Only call while the producer is stopped.
func (m *Mailbox[T]) Reset() {
	m.head.Store(m.tail.Load())
}
