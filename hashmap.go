// Package rhmap implements a concurrent in-memory key-value map with
// incremental (amortized) resizing. Many goroutines may call Insert,
// Lookup, Remove, Size, Empty and Clear concurrently; a resize in progress
// never stops the world, because every mutating call performs only a small,
// bounded share of the rehash work.
package rhmap

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocrmap/rhmap/internal/bucket"
	"github.com/gocrmap/rhmap/internal/rhash"
)

// DefaultBuckets is the initial primary-table size used by New when no
// WithBuckets option is supplied.
const DefaultBuckets = 64

// IncreaseRate is the factor applied to the primary bucket count when a
// resize begins: the secondary table is sized ceil(primaryCount * IncreaseRate).
const IncreaseRate = 2.0

// MaxLoadFactor is the primarySize/primaryCount ratio that, once exceeded by
// an Insert in Normal state, triggers a Resizing episode.
const MaxLoadFactor = 0.75

type state int32

const (
	stateNormal state = iota
	stateResizing
)

// ResizeObserver receives notifications around resize episodes. It exists so
// that instrumentation (rhmetrics.Collector, for instance) can be wired in
// without the core state machine depending on any particular metrics
// backend.
type ResizeObserver interface {
	// ObserveResizeBegin is called once a Resizing episode has started, with
	// the bucket counts of the outgoing primary table and the newly
	// allocated secondary table.
	ObserveResizeBegin(primaryBuckets, secondaryBuckets uint64)
	// ObserveResizeDone is called once a Resizing episode has finished,
	// with its total wall-clock duration.
	ObserveResizeDone(d time.Duration)
}

// Map is a concurrent hash map from K to V with incremental resizing. The
// zero Map is not usable; construct one with New.
type Map[K comparable, V any] struct {
	// stateLock serializes state transitions (ResizingBegin/ResizingDone,
	// Clear) against all other operations. It is always acquired before any
	// bucket lock within a single operation, and a shared hold is always
	// dropped before an exclusive one is acquired -- no upgrade is ever
	// attempted.
	stateLock sync.RWMutex

	primary        []*bucket.Bucket[K, V]
	secondary      []*bucket.Bucket[K, V]
	primaryCount   uint64
	secondaryCount uint64
	primarySize    atomic.Uint64
	secondarySize  atomic.Uint64
	state          state
	moveQuota      uint64
	hasher         func(K) uint64
	observer       ResizeObserver
	resizeStarted  time.Time
}

// Option configures a Map at construction time.
type Option[K comparable, V any] func(*Map[K, V])

// WithBuckets sets the initial primary bucket count. Values <= 0 are
// ignored and DefaultBuckets is used instead.
func WithBuckets[K comparable, V any](n uint64) Option[K, V] {
	return func(m *Map[K, V]) {
		if n > 0 {
			m.primaryCount = n
		}
	}
}

// WithHasher overrides the default key hasher. h must be deterministic and
// safe to call concurrently from multiple goroutines.
func WithHasher[K comparable, V any](h func(K) uint64) Option[K, V] {
	return func(m *Map[K, V]) {
		if h != nil {
			m.hasher = h
		}
	}
}

// WithObserver registers a ResizeObserver to be notified around resize
// episodes.
func WithObserver[K comparable, V any](obs ResizeObserver) Option[K, V] {
	return func(m *Map[K, V]) {
		m.observer = obs
	}
}

// New returns an empty Map in the Normal state with DefaultBuckets primary
// buckets, unless overridden by opts.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		primaryCount: DefaultBuckets,
		hasher:       rhash.Default[K](),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.primary = newBuckets[K, V](m.primaryCount)
	return m
}

func newBuckets[K comparable, V any](n uint64) []*bucket.Bucket[K, V] {
	bs := make([]*bucket.Bucket[K, V], n)
	for i := range bs {
		bs[i] = bucket.New[K, V]()
	}
	return bs
}

// primaryIndex and secondaryIndex may only be called while the caller holds
// stateLock, in either mode: primaryCount/secondaryCount/hasher are only
// ever mutated under an exclusive hold.
func (m *Map[K, V]) primaryIndex(k K) uint64 {
	return rhash.Fold(m.hasher(k)) % m.primaryCount
}

func (m *Map[K, V]) secondaryIndex(k K) uint64 {
	return rhash.Fold(m.hasher(k)) % m.secondaryCount
}

// Insert sets the value for key, creating it if absent. If the resulting
// load factor exceeds MaxLoadFactor, a Resizing episode begins. If a resize
// is already in progress, Insert also performs one migration quantum and, if
// the episode has just finished draining the primary table, ends it.
func (m *Map[K, V]) Insert(key K, value V) {
	m.stateLock.RLock()
	switch m.state {
	case stateNormal:
		idx := m.primaryIndex(key)
		if m.primary[idx].Insert(key, value) {
			m.primarySize.Add(1)
		}
		loadFactor := float64(m.primarySize.Load()) / float64(m.primaryCount)
		needsResize := loadFactor > MaxLoadFactor
		m.stateLock.RUnlock()
		if needsResize {
			m.resizingBegin()
		}

	default: // stateResizing
		pidx := m.primaryIndex(key)
		if m.primary[pidx].Remove(key) {
			// Overwrite-during-resize: a later write must not be shadowed
			// by an older primary-table entry for the same key.
			m.primarySize.Add(^uint64(0))
		}
		sidx := m.secondaryIndex(key)
		if m.secondary[sidx].Insert(key, value) {
			m.secondarySize.Add(1)
		}
		m.migrateQuantum()
		drained := m.primarySize.Load() == 0
		m.stateLock.RUnlock()
		if drained {
			m.resizingDone()
		}
	}
}

// Lookup returns the value stored for key and whether it was found.
func (m *Map[K, V]) Lookup(key K) (value V, found bool) {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()

	pidx := m.primaryIndex(key)
	if v, ok := m.primary[pidx].Lookup(key); ok {
		return v, true
	}
	if m.state == stateResizing {
		sidx := m.secondaryIndex(key)
		return m.secondary[sidx].Lookup(key)
	}
	var zero V
	return zero, false
}

// Remove deletes key, if present, and reports whether it existed. If a
// resize is in progress, Remove also performs one migration quantum and, if
// the episode has just finished draining the primary table, ends it.
func (m *Map[K, V]) Remove(key K) (removed bool) {
	m.stateLock.RLock()

	pidx := m.primaryIndex(key)
	if m.primary[pidx].Remove(key) {
		m.primarySize.Add(^uint64(0))
		removed = true
	}

	if m.state != stateResizing {
		m.stateLock.RUnlock()
		return removed
	}

	if !removed {
		sidx := m.secondaryIndex(key)
		if m.secondary[sidx].Remove(key) {
			m.secondarySize.Add(^uint64(0))
			removed = true
		}
	}
	m.migrateQuantum()
	drained := m.primarySize.Load() == 0
	m.stateLock.RUnlock()
	if drained {
		m.resizingDone()
	}
	return removed
}

// Clear removes every entry from the map, in whichever state it is in.
func (m *Map[K, V]) Clear() {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()

	for _, b := range m.primary {
		b.Clear()
	}
	m.primarySize.Store(0)

	if m.state == stateResizing {
		for _, b := range m.secondary {
			b.Clear()
		}
		m.secondarySize.Store(0)
	}
}

// Size returns the total number of entries across both tables. It takes no
// lock; callers tolerate a value that may already be stale by the time they
// observe it.
func (m *Map[K, V]) Size() uint64 {
	return m.primarySize.Load() + m.secondarySize.Load()
}

// Empty reports whether Size() == 0.
func (m *Map[K, V]) Empty() bool {
	return m.Size() == 0
}

// Stats describes the map's internal shape, useful for diagnostics and
// metrics export.
type Stats struct {
	PrimaryBuckets   uint64
	SecondaryBuckets uint64
	PrimarySize      uint64
	SecondarySize    uint64
	LargestBucket    uint64
	Resizing         bool
}

// Stats takes a consistent-enough snapshot of the map's shape under a shared
// hold of the state lock.
func (m *Map[K, V]) Stats() Stats {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()

	var largest uint64
	for _, b := range m.primary {
		if s := b.Size(); s > largest {
			largest = s
		}
	}
	for _, b := range m.secondary {
		if s := b.Size(); s > largest {
			largest = s
		}
	}

	return Stats{
		PrimaryBuckets:   m.primaryCount,
		SecondaryBuckets: m.secondaryCount,
		PrimarySize:      m.primarySize.Load(),
		SecondarySize:    m.secondarySize.Load(),
		LargestBucket:    largest,
		Resizing:         m.state == stateResizing,
	}
}
