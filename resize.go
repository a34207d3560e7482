package rhmap

import (
	"math"
	"time"

	"github.com/gocrmap/rhmap/rhmaplog"
)

// resizingBegin transitions Normal -> Resizing. It acquires stateLock
// exclusively and re-checks the triggering predicate (load factor above
// MaxLoadFactor) after acquiring it, because another goroutine may already
// have resized by the time this one got the lock. This double-check, paired
// with the equivalent one in resizingDone, prevents a thundering herd of
// redundant resizes around the threshold.
func (m *Map[K, V]) resizingBegin() {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()

	if m.state != stateNormal {
		return
	}
	loadFactor := float64(m.primarySize.Load()) / float64(m.primaryCount)
	if loadFactor <= MaxLoadFactor {
		return
	}

	newCount := uint64(math.Ceil(float64(m.primaryCount) * IncreaseRate))
	m.secondary = newBuckets[K, V](newCount)
	m.secondaryCount = newCount
	m.secondarySize.Store(0)

	quota := uint64(math.Sqrt(float64(m.primaryCount)))
	if quota < 1 {
		quota = 1
	}
	m.moveQuota = quota
	m.state = stateResizing
	m.resizeStarted = time.Now()

	rhmaplog.Infof(1, "rhmap: resizing begin primary=%d secondary=%d quota=%d",
		m.primaryCount, newCount, quota)
	if m.observer != nil {
		m.observer.ObserveResizeBegin(m.primaryCount, newCount)
	}
}

// resizingDone transitions Resizing -> Normal once the primary table has
// drained. It acquires stateLock exclusively and re-checks primarySize == 0
// after acquiring it, for the same thundering-herd reason as resizingBegin.
func (m *Map[K, V]) resizingDone() {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()

	if m.state != stateResizing {
		return
	}
	if m.primarySize.Load() != 0 {
		return
	}

	m.primary = m.secondary
	m.primaryCount = m.secondaryCount
	m.primarySize.Store(m.secondarySize.Load())
	m.secondary = nil
	m.secondaryCount = 0
	m.secondarySize.Store(0)
	m.state = stateNormal

	dur := time.Since(m.resizeStarted)
	rhmaplog.Infof(1, "rhmap: resizing done primary=%d duration=%s", m.primaryCount, dur)
	if m.observer != nil {
		m.observer.ObserveResizeDone(dur)
	}
}

// migrateQuantum performs at most moveQuota entry migrations from primary to
// secondary. It must be called while the caller holds stateLock (in either
// mode) and the map is in the Resizing state.
//
// bucketID is local to this call and need not be persisted between quanta:
// because PopFront always drains a bucket's head, repeated quanta will
// eventually visit and empty every bucket even though each quantum restarts
// its scan at bucket 0.
func (m *Map[K, V]) migrateQuantum() {
	var moved uint64
	var bucketID uint64

	for moved < m.moveQuota && m.primarySize.Load() > 0 && bucketID < m.primaryCount {
		b := m.primary[bucketID]
		for moved < m.moveQuota && !b.Empty() {
			key, value, ok := b.PopFront()
			if !ok {
				break
			}
			m.primarySize.Add(^uint64(0))

			sidx := m.secondaryIndex(key)
			if m.secondary[sidx].Insert(key, value) {
				m.secondarySize.Add(1)
			}
			moved++
		}
		bucketID++
	}
}
