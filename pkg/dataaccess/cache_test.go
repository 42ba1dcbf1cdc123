package dataaccess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache[string, int](time.Minute)
	c.now = func() time.Time { return now }

	_, ok := c.Get("a")
	require.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	// Still live at the boundary, gone after it.
	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	require.True(t, ok)

	now = now.Add(time.Nanosecond)
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestCache_SetRestartsTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache[string, int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(50 * time.Second)
	c.Set("a", 2)

	now = now.Add(50 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestCache_Delete(t *testing.T) {
	c := NewCache[string, int](time.Minute)
	c.Set("a", 1)
	c.Delete("a")

	_, ok := c.Get("a")
	require.False(t, ok)
}
