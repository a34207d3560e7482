// Package bucket implements the per-slot, reader-writer-locked singly
// linked chain used by rhmap's hash table. Concurrency on an individual
// key-value chain is entirely contained here; the owning map only ever
// reaches into a Bucket through the operations below.
package bucket

import (
	"sync"
	"sync/atomic"
)

type entry[K comparable, V any] struct {
	key   K
	value V
	next  *entry[K, V]
}

// Bucket is a thread-safe unordered chain of key-value pairs guarded by a
// reader-writer lock. New keys are inserted at the head, so PopFront always
// evicts the most recently inserted entry; the two operations are meant to
// be used together as the migration discipline, never independently.
type Bucket[K comparable, V any] struct {
	mu   sync.RWMutex
	head *entry[K, V]
	size atomic.Uint64 // mutated under mu, read lock-free by Size/Empty
}

// New returns an empty Bucket.
func New[K comparable, V any]() *Bucket[K, V] {
	return &Bucket[K, V]{}
}

// Insert adds key-value pair to the chain, overwriting the value if the key
// is already present. It reports whether a new entry was created.
func (b *Bucket[K, V]) Insert(key K, value V) (created bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for e := b.head; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return false
		}
	}
	b.head = &entry[K, V]{key: key, value: value, next: b.head}
	b.size.Add(1)
	return true
}

// Lookup returns the value for key and whether it was found.
func (b *Bucket[K, V]) Lookup(key K) (value V, found bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for e := b.head; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Remove deletes the entry for key, if any, and reports whether it existed.
func (b *Bucket[K, V]) Remove(key K) (removed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var prev *entry[K, V]
	for e := b.head; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				b.head = e.next
			} else {
				prev.next = e.next
			}
			b.size.Add(^uint64(0))
			return true
		}
		prev = e
	}
	return false
}

// PopFront detaches the head entry, if any, handing its key and value back
// to the caller. It is the primitive the migration quantum drains buckets
// with: constant time, no scan required.
func (b *Bucket[K, V]) PopFront() (key K, value V, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	e := b.head
	b.head = e.next
	b.size.Add(^uint64(0))
	return e.key, e.value, true
}

// Clear removes every entry from the chain.
func (b *Bucket[K, V]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = nil
	b.size.Store(0)
}

// Empty reports whether the chain currently holds no entries. Like Size, it
// takes no lock and may be stale the instant it is returned under
// concurrent access.
func (b *Bucket[K, V]) Empty() bool {
	return b.size.Load() == 0
}

// Size returns the number of entries currently reachable from head. It
// takes no lock, reading the atomic count directly.
func (b *Bucket[K, V]) Size() uint64 {
	return b.size.Load()
}

// MigrateTo fully drains the bucket, handing every entry to the bucket
// selected by dest for that entry's key, and reports how many entries moved.
// It takes the bucket's exclusive lock for its entire duration; callers that
// need bounded, per-call migration work should drive PopFront directly the
// way Map's migration quantum does, rather than calling MigrateTo on a wide
// bucket.
func (b *Bucket[K, V]) MigrateTo(dest func(key K) *Bucket[K, V]) (moved uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for e := b.head; e != nil; {
		next := e.next
		dest(e.key).Insert(e.key, e.value)
		moved++
		e = next
	}
	b.head = nil
	b.size.Store(0)
	return moved
}

// Iter is a synchronized forward iterator: it holds the bucket's shared lock
// from creation until it is exhausted or Close is called. It blocks writers
// for its entire lifetime, so callers must not retain one across unrelated
// work.
type Iter[K comparable, V any] struct {
	b    *Bucket[K, V]
	next *entry[K, V]
	done bool
}

// Iterator returns a synchronized iterator over the bucket's current chain.
func (b *Bucket[K, V]) Iterator() *Iter[K, V] {
	b.mu.RLock()
	return &Iter[K, V]{b: b, next: b.head}
}

// Next advances the iterator, returning the next key-value pair, or ok=false
// once the chain is exhausted (at which point the bucket lock is released
// automatically).
func (it *Iter[K, V]) Next() (key K, value V, ok bool) {
	if it.next == nil {
		it.Close()
		var zk K
		var zv V
		return zk, zv, false
	}
	key, value = it.next.key, it.next.value
	it.next = it.next.next
	return key, value, true
}

// Close releases the iterator's hold on the bucket lock early. Safe to call
// more than once and after exhaustion.
func (it *Iter[K, V]) Close() {
	if !it.done {
		it.done = true
		it.b.mu.RUnlock()
	}
}

// UnsyncIter is a lock-free forward iterator. It is only safe to use when
// the caller has already excluded concurrent mutation by some coarser means
// (rhmap's Clone holds the map's exclusive state lock for this reason).
type UnsyncIter[K comparable, V any] struct {
	next *entry[K, V]
}

// UnsyncIterator returns a lock-free iterator over the bucket's current
// chain. See UnsyncIter's documentation for the safety precondition.
func (b *Bucket[K, V]) UnsyncIterator() *UnsyncIter[K, V] {
	return &UnsyncIter[K, V]{next: b.head}
}

// Next advances the iterator, returning ok=false once exhausted.
func (it *UnsyncIter[K, V]) Next() (key K, value V, ok bool) {
	if it.next == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	key, value = it.next.key, it.next.value
	it.next = it.next.next
	return key, value, true
}
