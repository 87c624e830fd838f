package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_BasicGetPut(t *testing.T) {
	// Keyed like the multisig threshold cache: account address -> needs cosigners.
	c := NewLRU[string, bool](10, 5*time.Minute)

	c.Put("GDIST", true)
	c.Put("GSINGLE", false)

	v, ok := c.Get("GDIST")
	require.True(t, ok)
	assert.True(t, v)

	v, ok = c.Get("GSINGLE")
	require.True(t, ok)
	assert.False(t, v)

	_, ok = c.Get("GUNKNOWN")
	assert.False(t, ok)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3, 5*time.Minute)

	c.Put("GDIST1", 1)
	c.Put("GDIST2", 2)
	c.Put("GDIST3", 3)

	// Touch GDIST1 so GDIST2 becomes the eviction candidate.
	c.Get("GDIST1")

	c.Put("GDIST4", 4)

	_, ok := c.Get("GDIST2")
	assert.False(t, ok, "least recently used account should have been evicted")

	v, ok := c.Get("GDIST1")
	assert.True(t, ok, "recently touched account should survive")
	assert.Equal(t, 1, v)

	assert.Equal(t, 3, c.Len())
}

func TestLRU_TTLExpiration(t *testing.T) {
	c := NewLRU[string, bool](10, 5*time.Minute)

	now := time.Now()
	c.nowFn = func() time.Time { return now }

	c.Put("GDIST", true)

	v, ok := c.Get("GDIST")
	assert.True(t, ok)
	assert.True(t, v)

	// Past the TTL a signer-set change must be refetched, not served stale.
	c.nowFn = func() time.Time { return now.Add(6 * time.Minute) }

	_, ok = c.Get("GDIST")
	assert.False(t, ok, "entry should have expired")
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string, int](10, 5*time.Minute)

	c.Put("GDIST", 1)
	c.Put("GDIST", 2)

	v, ok := c.Get("GDIST")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, c.Len())
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string, bool](10, 5*time.Minute)

	c.Put("GDIST", true)

	c.Get("GDIST")    // hit
	c.Get("GDIST")    // hit
	c.Get("GABSENT")  // miss

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}
