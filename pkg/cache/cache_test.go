package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildToggles(t *testing.T) {
	toggles := NewGuildToggles(true)
	assert.True(t, toggles.Enabled("g1"))

	assert.False(t, toggles.Toggle("g1"))
	assert.False(t, toggles.Enabled("g1"))
	assert.True(t, toggles.Enabled("g2"))
	assert.Equal(t, map[string]bool{"g1": false}, toggles.Overrides())

	toggles.Set("g1", true)
	assert.True(t, toggles.Enabled("g1"))
	assert.Empty(t, toggles.Overrides())
}

func TestGuildTogglesConcurrentFlips(t *testing.T) {
	toggles := NewGuildToggles(true)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			toggles.Toggle("g1")
		}()
	}
	wg.Wait()

	// an even number of flips ends where it started
	assert.True(t, toggles.Enabled("g1"))
}

func TestTTLGetOrLoad(t *testing.T) {
	c := NewTTL[string, []string](10, time.Minute)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"a"}, nil
	}

	v, err := c.GetOrLoad("folder", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v)

	_, err = c.GetOrLoad("folder", load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Remove("folder")
	_, err = c.GetOrLoad("folder", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTTLDoesNotCacheErrors(t *testing.T) {
	c := NewTTL[string, int](10, time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestTTLExpires(t *testing.T) {
	c := NewTTL[string, int](10, 20*time.Millisecond)
	c.Add("k", 1)

	_, ok := c.Get("k")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
