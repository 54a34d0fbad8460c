package fontcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertAndGet(t *testing.T) {
	t.Parallel()

	c := New()
	assert.False(t, c.Has("Inter"))

	c.Insert("Inter", []byte{1, 2})
	data, ok := c.Get("Inter")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, data)
	assert.Equal(t, 1, c.Len())
}

func TestCache_MergeDelta(t *testing.T) {
	t.Parallel()

	c := New()
	c.Insert("Inter", []byte{1})
	c.Insert("Mono", []byte{2})

	// nil data removes, non-nil replaces or adds.
	c.Merge(map[string][]byte{
		"Inter": nil,
		"Mono":  {3},
		"Serif": {4},
	})

	assert.False(t, c.Has("Inter"))
	data, _ := c.Get("Mono")
	assert.Equal(t, []byte{3}, data)
	assert.True(t, c.Has("Serif"))
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Merge(map[string][]byte{"Inter": {1}})
		}()
		go func() {
			defer wg.Done()
			c.Has("Inter")
			c.Len()
		}()
	}
	wg.Wait()
	assert.True(t, c.Has("Inter"))
}
