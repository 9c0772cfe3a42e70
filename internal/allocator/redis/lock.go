package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"ms-invites/internal/models"

	"github.com/go-redis/redis/v8"
)

// Redis serializes allocations across process instances with SetNX locks
// keyed by (event, kind), and tracks payment windows with TTL keys whose
// expiry notifications drive the expired transition.
type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

const (
	lockRetries    = 20
	lockRetryDelay = 50 * time.Millisecond
)

// PaymentWindowKeyPrefix namespaces the TTL keys watched by the expiry
// subscriber in main.
const PaymentWindowKeyPrefix = "invite_ttl:"

func lockKey(eventID string, kind models.InviteKind) string {
	return "alloc_lock:" + eventID + ":" + string(kind)
}

// getLockTTL returns the allocation lock TTL, overridable via env.
func getLockTTL() time.Duration {
	defaultTTL := 10 * time.Second
	ttlStr := os.Getenv("ALLOC_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}
	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		return defaultTTL
	}
	return time.Duration(ttlSec) * time.Second
}

// Acquire takes the (event, kind) allocation lock, retrying briefly so a
// burst of sellers queues instead of failing. The TTL caps how long a crashed
// holder can wedge allocations.
func (r *Redis) Acquire(eventID string, kind models.InviteKind, owner string) (bool, error) {
	ctx := context.Background()
	key := lockKey(eventID, kind)
	ttl := getLockTTL()

	for i := 0; i < lockRetries; i++ {
		ok, err := r.Client.SetNX(ctx, key, owner, ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		time.Sleep(lockRetryDelay)
	}
	return false, nil
}

// Release frees the lock if this owner still holds it.
func (r *Redis) Release(eventID string, kind models.InviteKind, owner string) error {
	ctx := context.Background()
	key := lockKey(eventID, kind)

	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // lock already expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err = r.Client.Del(ctx, key).Result()
	}
	return err
}

// TrackPaymentWindow arms the unpaid-invite timer: when the key expires, the
// keyspace-notification subscriber retires the invite.
func (r *Redis) TrackPaymentWindow(eventID, code string, window time.Duration) error {
	key := fmt.Sprintf("%s%s:%s", PaymentWindowKeyPrefix, eventID, code)
	return r.Client.Set(context.Background(), key, "unpaid", window).Err()
}

// ClearPaymentWindow disarms the timer once the invite is paid or retired.
func (r *Redis) ClearPaymentWindow(eventID, code string) error {
	key := fmt.Sprintf("%s%s:%s", PaymentWindowKeyPrefix, eventID, code)
	return r.Client.Del(context.Background(), key).Err()
}
