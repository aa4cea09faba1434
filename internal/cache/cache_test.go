package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-vsr-engine/config"
)

func TestKey(t *testing.T) {
	builtAt := time.Unix(1700000000, 42)
	a := Key("reuters", 3, builtAt, []string{"rain", "november"}, 1, 10)
	b := Key("reuters", 3, builtAt, []string{"november", "rain"}, 1, 10)
	assert.Equal(t, a, b, "term order does not matter")
	assert.True(t, strings.HasPrefix(a, "vsr:rank:reuters:3."))
	assert.True(t, strings.HasPrefix(a, indexPattern("reuters")))

	assert.NotEqual(t, a, Key("reuters", 3, builtAt, []string{"november", "rain", "rain"}, 1, 10), "duplicates matter")
	assert.NotEqual(t, a, Key("reuters", 4, builtAt, []string{"november", "rain"}, 1, 10), "generation matters")
	assert.NotEqual(t, a, Key("reuters", 3, builtAt, []string{"november", "rain"}, 2, 10), "page matters")
	assert.NotEqual(t, a, Key("other", 3, builtAt, []string{"november", "rain"}, 1, 10), "index matters")
}

func TestKey_SameGenerationOfAnotherBuild(t *testing.T) {
	// Two replicas both at generation 1 of the same index, built at different times.
	first := Key("reuters", 1, time.Unix(1700000000, 0), []string{"rain"}, 1, 10)
	second := Key("reuters", 1, time.Unix(1700000000, 1), []string{"rain"}, 1, 10)
	assert.NotEqual(t, first, second)
}

func TestMemoryCache_GetOrCompute(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	key := Key("reuters", 1, time.Time{}, []string{"cat"}, 1, 10)

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	value, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("payload"), value)

	value, hit, err = c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("payload"), value)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestMemoryCache_ComputeErrorIsNotCached(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(ctx, "k", func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	_, _, err := c.GetOrCompute(ctx, "k", func() ([]byte, error) { return []byte("v1"), nil })
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	value, hit, err := c.GetOrCompute(ctx, "k", func() ([]byte, error) { return []byte("v2"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("v2"), value)
}

func TestMemoryCache_InvalidateIndex(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	compute := func() ([]byte, error) { return []byte("v"), nil }

	for _, index := range []string{"reuters", "reuters2", "news"} {
		_, _, err := c.GetOrCompute(ctx, Key(index, 1, time.Time{}, []string{"x"}, 1, 10), compute)
		require.NoError(t, err)
	}

	require.NoError(t, c.InvalidateIndex(ctx, "reuters"))
	assert.Equal(t, 2, c.Len(), "only the exact index is dropped")
}

func TestMemoryCache_ConcurrentMissesShareCompute(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, _, err := c.GetOrCompute(ctx, "shared", compute)
			assert.NoError(t, err)
			assert.Equal(t, []byte("v"), value)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	assert.Error(t, err)
}
