package agent_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/video-summary/backend/internal/agent"
	"github.com/video-summary/backend/internal/testutil"
)

func TestCache_BuildsOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int64
	cache := agent.NewCache(func() (*agent.Agent, error) {
		calls.Add(1)
		return agent.New(testutil.NewTextProvider("ok"), defaultOptions())
	})

	assert.Zero(t, cache.Builds(), "agent must be built lazily")

	var wg sync.WaitGroup
	got := make([]*agent.Agent, 64)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := cache.Get()
			assert.NoError(t, err)
			got[i] = a
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), cache.Builds())
	for _, a := range got {
		assert.Same(t, got[0], a)
	}
}

func TestCache_FailedBuildIsSticky(t *testing.T) {
	boom := errors.New("invalid model")
	cache := agent.NewCache(func() (*agent.Agent, error) {
		return nil, boom
	})

	_, err := cache.Get()
	require.ErrorIs(t, err, boom)
	_, err = cache.Get()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), cache.Builds())
}
