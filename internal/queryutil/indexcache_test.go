package queryutil

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCacheEnsureExistsCreatesOnce(t *testing.T) {
	c := NewIndexCache()
	var creates atomic.Int32
	create := func() error {
		creates.Add(1)
		return nil
	}

	require.NoError(t, c.EnsureExists("belief-a1-v1", create, nil))
	require.NoError(t, c.EnsureExists("belief-a1-v1", create, nil))
	assert.Equal(t, int32(1), creates.Load())
	assert.True(t, c.Known("belief-a1-v1"))
}

func TestIndexCacheAlreadyExistsIsIdempotent(t *testing.T) {
	c := NewIndexCache()
	errAlreadyExists := errors.New("index_already_exists")
	err := c.EnsureExists("belief-a1-v1", func() error { return errAlreadyExists }, func(err error) bool {
		return errors.Is(err, errAlreadyExists)
	})
	require.NoError(t, err)
	assert.True(t, c.Known("belief-a1-v1"))
}

func TestIndexCacheConcurrentComputeIfAbsent(t *testing.T) {
	c := NewIndexCache()
	var creates atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.EnsureExists("shared", func() error {
				creates.Add(1)
				return nil
			}, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), creates.Load())
}
