package rhmap_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/gocrmap/rhmap"
)

// TestParallelInsertDisjointRanges is literal scenario 5: three goroutines
// each insert 200 consecutive keys from disjoint ranges; after they join,
// every one of the 600 keys must be present with its written value.
func TestParallelInsertDisjointRanges(t *testing.T) {
	m := rhmap.New[int, int](rhmap.WithBuckets[int, int](1000))

	var g errgroup.Group
	ranges := [][2]int{{0, 200}, {200, 400}, {400, 600}}
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			for i := r[0]; i < r[1]; i++ {
				m.Insert(i, i*10)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < 600; i++ {
		v, ok := m.Lookup(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, i*10, v)
	}
	assert.Equal(t, uint64(600), m.Size())
}

// TestConcurrentWriteAndRemove is literal scenario 6: one goroutine inserts
// 0..10001 while another repeatedly removes every even key until it has
// removed all 5001 of them; once both finish, every odd key must remain with
// its written value and every even key must be gone.
func TestConcurrentWriteAndRemove(t *testing.T) {
	m := rhmap.New[int, int](rhmap.WithBuckets[int, int](64))

	const dataSize = 10001
	const wantRemoved = (dataSize + 1) / 2 // even keys in [0, dataSize)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < dataSize; i++ {
			m.Insert(i, i*10)
		}
		return nil
	})
	g.Go(func() error {
		var removed int
		for removed < wantRemoved {
			for i := 0; i < dataSize; i += 2 {
				if m.Remove(i) {
					removed++
				}
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	for i := 0; i < dataSize; i++ {
		v, ok := m.Lookup(i)
		if i%2 == 1 {
			require.True(t, ok, "odd key %d must survive", i)
			assert.Equal(t, i*10, v)
		} else {
			assert.False(t, ok, "even key %d must be removed", i)
		}
	}
	assert.Equal(t, uint64(dataSize-wantRemoved), m.Size())
}

// TestConcurrentReadersDuringResize exercises Lookup racing a resize driven
// by concurrent Inserts: every reader must only ever observe either "not yet
// inserted" or the correct, fully-written value -- never a torn read.
func TestConcurrentReadersDuringResize(t *testing.T) {
	m := rhmap.New[int, int](rhmap.WithBuckets[int, int](32))

	const n = 5000
	var wg sync.WaitGroup
	var badReads atomic.Uint64

	ctx, cancel := context.WithCancel(context.Background())
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				k := r
				if v, ok := m.Lookup(k); ok && v != k*10 {
					badReads.Add(1)
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		m.Insert(i, i*10)
	}
	cancel()
	wg.Wait()

	assert.Equal(t, uint64(0), badReads.Load())
}
