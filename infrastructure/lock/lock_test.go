package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	token, ok, err := l.Acquire(ctx, "cycle:c1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.Acquire(ctx, "cycle:c1", time.Minute)
	assert.False(t, ok, "second holder must be rejected")

	_, ok, _ = l.Acquire(ctx, "cycle:c2", time.Minute)
	assert.True(t, ok, "other keys are independent")

	require.NoError(t, l.Release(ctx, "cycle:c1", "not-the-token"))
	_, ok, _ = l.Acquire(ctx, "cycle:c1", time.Minute)
	assert.False(t, ok, "release with a foreign token is ignored")

	require.NoError(t, l.Release(ctx, "cycle:c1", token))
	_, ok, _ = l.Acquire(ctx, "cycle:c1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, ok, _ := l.Acquire(ctx, "cycle:c1", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.Acquire(ctx, "cycle:c1", time.Minute)
	assert.True(t, ok)
}
