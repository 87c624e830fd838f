package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The threshold cache sits on the submission hot path: every multisig check
// hits it first, so Get must stay allocation-free.

func TestAllocRegression_LRU_Get_Hit(t *testing.T) {
	lru := NewLRU[string, bool](1000, 5*time.Minute)
	lru.Put("GDIST", true)

	allocs := testing.AllocsPerRun(100, func() {
		lru.Get("GDIST")
	})
	assert.Equal(t, float64(0), allocs, "cache hit should be zero-alloc")
}

func TestAllocRegression_LRU_Get_Miss(t *testing.T) {
	lru := NewLRU[string, bool](1000, 5*time.Minute)

	allocs := testing.AllocsPerRun(100, func() {
		lru.Get("GABSENT")
	})
	assert.Equal(t, float64(0), allocs, "cache miss should be zero-alloc")
}

func TestAllocRegression_LRU_Put_Existing(t *testing.T) {
	lru := NewLRU[string, bool](1000, 5*time.Minute)
	lru.Put("GDIST", true)

	allocs := testing.AllocsPerRun(100, func() {
		lru.Put("GDIST", false)
	})
	assert.LessOrEqual(t, allocs, float64(1), "refreshing a cached account should not allocate new nodes")
}
