package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a best-effort distributed lock (SET NX PX) that keeps scheduler
// ticks from overlapping across service instances. The TTL bounds how long a
// crashed holder can block the next run.
type RunLock struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRunLock(client *goredis.Client, ttl time.Duration) (*RunLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}

	return &RunLock{client: client, ttl: ttl}, nil
}

// TryAcquire attempts to take the named lock. It returns a release function
// on success and ok=false, without blocking, when another holder owns it.
func (l *RunLock) TryAcquire(ctx context.Context, name string, token string) (release func(context.Context) error, ok bool, err error) {
	if l == nil || l.client == nil {
		return nil, false, fmt.Errorf("run lock is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("lock name is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, false, fmt.Errorf("lock token is required")
	}

	key := "notify:lock:" + name
	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	if !acquired {
		return nil, false, nil
	}

	release = func(releaseCtx context.Context) error {
		// Delete only if we still hold it; an expired lock may belong to
		// someone else by now.
		return releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
