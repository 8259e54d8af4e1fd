package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsLeastRecent(t *testing.T) {
	c := New(2)
	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // a is now most recent
	c.Add("c", 3)

	_, okB := c.Get("b")
	v, okA := c.Get("a")
	assert.False(t, okB)
	assert.True(t, okA)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestLRUConcurrentUse(t *testing.T) {
	c := New(8)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(i%10, i)
			c.Get(i % 10)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
