package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertWithinBudget(t *testing.T) {
	cache := NewCache[string](3, nil)
	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 1))
	require.NoError(t, cache.Insert("C", "valueC", 1))

	assert.Equal(t, 3, cache.GetWeight())
	assert.Equal(t, 3, cache.GetBudget())
	assert.Equal(t, 3, cache.Len())
}

func TestCache_InsertDuplicateRejected(t *testing.T) {
	cache := NewCache[string](2, nil)
	require.NoError(t, cache.Insert("dupe", "valueDupe", 1))
	assert.Equal(t, ErrKeyExists, cache.Insert("dupe", "valueDupe", 1))
	assert.Equal(t, 1, cache.GetWeight())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	cache := NewCache(2, func(key string, _ string) {
		evicted = append(evicted, key)
	})
	require.NoError(t, cache.Insert("evicted", "valueEvicted", 1))
	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 1))

	_, found := cache.Retrieve("evicted")
	assert.False(t, found)
	assert.Equal(t, []string{"evicted"}, evicted)
	assert.Equal(t, 2, cache.GetWeight())

	value, found := cache.Retrieve("A")
	require.True(t, found)
	assert.Equal(t, "valueA", value)
	_, found = cache.Retrieve("B")
	assert.True(t, found)
}

func TestCache_EvictsLeastRecentlyRetrieved(t *testing.T) {
	cache := NewCache[string](2, nil)
	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 1))

	// Accessing "A" makes "B" the least recently used entry
	_, found := cache.Retrieve("A")
	require.True(t, found)

	require.NoError(t, cache.Insert("C", "valueC", 1))

	_, found = cache.Retrieve("B")
	assert.False(t, found)
	_, found = cache.Retrieve("A")
	assert.True(t, found)
}

func TestCache_Delete(t *testing.T) {
	var evicted []string
	cache := NewCache(3, func(key string, _ int) {
		evicted = append(evicted, key)
	})
	require.NoError(t, cache.Insert("A", 1, 1))
	require.NoError(t, cache.Insert("B", 2, 1))
	require.NoError(t, cache.Insert("C", 3, 1))

	value, ok := cache.Delete("B")
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, []string{"B"}, evicted)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 2, cache.GetWeight())

	_, ok = cache.Delete("B")
	assert.False(t, ok)

	// Remaining entries stay linked in order
	require.NoError(t, cache.Insert("D", 4, 2))
	_, found := cache.Retrieve("A")
	assert.False(t, found)
	_, found = cache.Retrieve("C")
	assert.True(t, found)
}

func TestCache_Clear(t *testing.T) {
	var evicted int
	cache := NewCache(5, func(string, string) {
		evicted++
	})
	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 1))
	cache.Clear()

	_, found := cache.Retrieve("A")
	assert.False(t, found)
	assert.Equal(t, 0, cache.GetWeight())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 2, evicted)
}

func TestCache_Concurrent(t *testing.T) {
	cache := NewCache[int](100, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("%d-%d", worker, j)
				_ = cache.Insert(key, j, 1)
				cache.Retrieve(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
	assert.Equal(t, 100, cache.GetWeight())
}
