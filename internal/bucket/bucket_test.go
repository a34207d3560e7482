package bucket_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrmap/rhmap/internal/bucket"
)

func TestInsertLookupRemove(t *testing.T) {
	b := bucket.New[string, int]()
	assert.True(t, b.Empty())

	assert.True(t, b.Insert("a", 1))
	assert.False(t, b.Insert("a", 2)) // overwrite, not a new entry
	v, ok := b.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, uint64(1), b.Size())

	assert.True(t, b.Insert("b", 3))
	assert.Equal(t, uint64(2), b.Size())

	assert.True(t, b.Remove("a"))
	assert.False(t, b.Remove("a"))
	_, ok = b.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), b.Size())
}

func TestPopFrontIsHeadOfInsertOrder(t *testing.T) {
	b := bucket.New[int, int]()
	b.Insert(1, 10)
	b.Insert(2, 20)
	b.Insert(3, 30)

	// Insert places new keys at head, so PopFront must evict the most
	// recently inserted key first.
	k, v, ok := b.PopFront()
	require.True(t, ok)
	assert.Equal(t, 3, k)
	assert.Equal(t, 30, v)

	k, v, ok = b.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, k)
	assert.Equal(t, 20, v)

	k, v, ok = b.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, k)
	assert.Equal(t, 10, v)

	_, _, ok = b.PopFront()
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	b := bucket.New[int, int]()
	for i := 0; i < 5; i++ {
		b.Insert(i, i)
	}
	b.Clear()
	assert.True(t, b.Empty())
	assert.Equal(t, uint64(0), b.Size())
	_, ok := b.Lookup(0)
	assert.False(t, ok)
}

func TestMigrateTo(t *testing.T) {
	src := bucket.New[int, int]()
	for i := 0; i < 10; i++ {
		src.Insert(i, i*10)
	}

	dests := []*bucket.Bucket[int, int]{bucket.New[int, int](), bucket.New[int, int]()}
	moved := src.MigrateTo(func(k int) *bucket.Bucket[int, int] {
		return dests[k%2]
	})

	assert.Equal(t, uint64(10), moved)
	assert.True(t, src.Empty())
	for i := 0; i < 10; i++ {
		v, ok := dests[i%2].Lookup(i)
		require.True(t, ok)
		assert.Equal(t, i*10, v)
	}
}

func TestSynchronizedIteratorReleasesLockWhenExhausted(t *testing.T) {
	b := bucket.New[int, int]()
	for i := 0; i < 3; i++ {
		b.Insert(i, i)
	}

	it := b.Iterator()
	seen := map[int]int{}
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		seen[k] = v
	}
	assert.Len(t, seen, 3)

	// Once exhausted the iterator released its lock, so further writes
	// must proceed without blocking.
	done := make(chan struct{})
	go func() {
		b.Insert(99, 99)
		close(done)
	}()
	<-done
	v, ok := b.Lookup(99)
	require.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestUnsyncIteratorSnapshotsCurrentChain(t *testing.T) {
	b := bucket.New[string, int]()
	b.Insert("x", 1)
	b.Insert("y", 2)

	it := b.UnsyncIterator()
	var keys []string
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"x", "y"}, keys)
}

func TestConcurrentReadersDoNotRace(t *testing.T) {
	b := bucket.New[int, int]()
	for i := 0; i < 100; i++ {
		b.Insert(i, i)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Lookup(i)
			}
		}()
	}
	wg.Wait()
}
