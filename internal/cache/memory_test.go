package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemorySeenAfterMark(t *testing.T) {
	c := NewMemory(time.Minute)

	require.False(t, c.Seen(context.Background(), "evt_1"))
	c.Mark(context.Background(), "evt_1")
	require.True(t, c.Seen(context.Background(), "evt_1"))
	require.False(t, c.Seen(context.Background(), "evt_2"))
}

func TestMemorySeenDoesNotMark(t *testing.T) {
	c := NewMemory(time.Minute)

	// Checking an id must not record it; only Mark does that.
	require.False(t, c.Seen(context.Background(), "evt_1"))
	require.False(t, c.Seen(context.Background(), "evt_1"))
}

func TestMemoryExpires(t *testing.T) {
	c := NewMemory(time.Nanosecond)

	c.Mark(context.Background(), "evt_1")
	time.Sleep(time.Millisecond)
	require.False(t, c.Seen(context.Background(), "evt_1"))
}
