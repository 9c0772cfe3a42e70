package redis

import (
	"context"
	"testing"
	"time"

	"ms-invites/internal/models"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}
	return NewRedis(client), mr
}

func TestAcquireAndRelease(t *testing.T) {
	r, _ := setupTestRedis(t)

	ok, err := r.Acquire("event001", models.KindPhysical, "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Release("event001", models.KindPhysical, "owner-1"))

	// Free again after release.
	ok, err = r.Acquire("event001", models.KindPhysical, "owner-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireIsPerEventAndKind(t *testing.T) {
	r, _ := setupTestRedis(t)

	ok, err := r.Acquire("event001", models.KindPhysical, "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// A different kind on the same event has its own lock.
	ok, err = r.Acquire("event001", models.KindDigital, "owner-2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Acquire("event002", models.KindPhysical, "owner-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireContended(t *testing.T) {
	t.Setenv("ALLOC_LOCK_TTL_SECONDS", "60")
	r, _ := setupTestRedis(t)

	ok, err := r.Acquire("event001", models.KindPhysical, "owner-1")
	require.NoError(t, err)
	require.True(t, ok)

	// The retries exhaust while owner-1 holds the lock.
	start := time.Now()
	ok, err = r.Acquire("event001", models.KindPhysical, "owner-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestReleaseOnlyByOwner(t *testing.T) {
	r, mr := setupTestRedis(t)

	ok, err := r.Acquire("event001", models.KindPhysical, "owner-1")
	require.NoError(t, err)
	require.True(t, ok)

	// A stale release from another owner must not free the lock.
	require.NoError(t, r.Release("event001", models.KindPhysical, "owner-2"))

	val, err := mr.Get("alloc_lock:event001:physical")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", val)
}

func TestAcquireAfterTTLExpiry(t *testing.T) {
	t.Setenv("ALLOC_LOCK_TTL_SECONDS", "1")
	r, mr := setupTestRedis(t)

	ok, err := r.Acquire("event001", models.KindPhysical, "crashed-owner")
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed holder can wedge allocations only until the TTL runs out.
	mr.FastForward(2 * time.Second)

	ok, err = r.Acquire("event001", models.KindPhysical, "owner-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPaymentWindowTracking(t *testing.T) {
	r, mr := setupTestRedis(t)

	require.NoError(t, r.TrackPaymentWindow("event001", "F001", 48*time.Hour))

	key := PaymentWindowKeyPrefix + "event001:F001"
	assert.True(t, mr.Exists(key))
	assert.InDelta(t, (48 * time.Hour).Seconds(), mr.TTL(key).Seconds(), 1)

	require.NoError(t, r.ClearPaymentWindow("event001", "F001"))
	assert.False(t, mr.Exists(key))
}
