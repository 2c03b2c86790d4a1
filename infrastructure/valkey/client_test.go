package valkey

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	c := &Client{keyPrefix: normalizePrefix("localseo")}
	assert.Equal(t, "localseo:lock:cycle:c1", c.Key("lock", "cycle", "c1"))
	assert.Equal(t, "localseo", c.Key())

	bare := &Client{}
	assert.Equal(t, "pages:x", bare.Key("pages", "x"))
}

func TestTryLock_Live(t *testing.T) {
	vk, err := NewClient(Config{Address: "localhost:6379", KeyPrefix: "localseo-test", ConnectTimeout: 300 * time.Millisecond})
	if err != nil {
		t.Skip("No valkey")
	}
	defer vk.Close()

	ctx := context.Background()
	key := vk.Key("lock", uuid.NewString())

	ok, err := vk.TryLock(ctx, key, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = vk.TryLock(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// wrong token leaves the lock in place
	require.NoError(t, vk.Unlock(ctx, key, "b"))
	ok, _ = vk.TryLock(ctx, key, "c", time.Minute)
	assert.False(t, ok)

	require.NoError(t, vk.Unlock(ctx, key, "a"))
	ok, err = vk.TryLock(ctx, key, "c", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	_ = vk.Unlock(ctx, key, "c")
}
