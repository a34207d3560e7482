package rhmap

// Clone returns a snapshot copy of m, consistent as of the instant m's state
// lock is acquired exclusively: no Insert/Remove/resize on m can interleave
// with the copy.
//
// If m is mid-resize, Clone first drains the episode to completion under its
// already-held exclusive lock (rather than copying two tables), so the
// clone is always produced in the Normal state; see DESIGN.md for the
// rationale.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()

	for m.state == stateResizing {
		m.migrateQuantum()
		if m.primarySize.Load() == 0 {
			m.primary = m.secondary
			m.primaryCount = m.secondaryCount
			m.primarySize.Store(m.secondarySize.Load())
			m.secondary = nil
			m.secondaryCount = 0
			m.secondarySize.Store(0)
			m.state = stateNormal
		}
	}

	dst := &Map[K, V]{
		primaryCount: m.primaryCount,
		hasher:       m.hasher,
		moveQuota:    m.moveQuota,
		state:        stateNormal,
	}
	dst.primary = newBuckets[K, V](dst.primaryCount)

	for i, b := range m.primary {
		it := b.UnsyncIterator()
		for {
			key, value, ok := it.Next()
			if !ok {
				break
			}
			if dst.primary[i].Insert(key, value) {
				dst.primarySize.Add(1)
			}
		}
	}
	return dst
}

// Assign overwrites the receiver with a snapshot of src, mirroring
// copy-assignment: after Assign returns, m is a Normal-state clone of src
// and is no longer related to whatever it held before.
//
// Assign is not safe to call concurrently with other operations on m: the
// receiver must not be in concurrent use during the call.
func (m *Map[K, V]) Assign(src *Map[K, V]) {
	clone := src.Clone()

	m.stateLock.Lock()
	defer m.stateLock.Unlock()

	m.primary = clone.primary
	m.secondary = nil
	m.primaryCount = clone.primaryCount
	m.secondaryCount = 0
	m.primarySize.Store(clone.primarySize.Load())
	m.secondarySize.Store(0)
	m.state = stateNormal
	m.hasher = clone.hasher
	m.moveQuota = clone.moveQuota
}
