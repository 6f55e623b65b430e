package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const runLockKey = "extractor:run-lock"

// releaseScript deletes the lock only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLockRepoImpl is a single-key Redis lock with an expiry, so a crashed
// process cannot hold it forever.
type RunLockRepoImpl struct {
	client *redis.Client
}

// NewRunLockRepo creates a new instance of RunLockRepoImpl.
func NewRunLockRepo(client *redis.Client) *RunLockRepoImpl {
	return &RunLockRepoImpl{client: client}
}

// Acquire sets the lock key with SET NX and an expiry.
func (r *RunLockRepoImpl) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, runLockKey, owner, ttl).Result()
}

func (r *RunLockRepoImpl) Release(ctx context.Context, owner string) error {
	return releaseScript.Run(ctx, r.client, []string{runLockKey}, owner).Err()
}

func (r *RunLockRepoImpl) Holder(ctx context.Context) (string, error) {
	owner, err := r.client.Get(ctx, runLockKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}
