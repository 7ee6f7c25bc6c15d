package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultMaxUpdateRetries = 64

// KEYS[1] record key
// ARGV[1] now (unix ms), ARGV[2] threshold, ARGV[3] lock deadline (unix ms),
// ARGV[4] ttl (ms, 0 keeps the key without expiry)
const incrLockScript = `
local count = 0
local raw = redis.call("GET", KEYS[1])
if raw then
  local n = string.match(raw, '"failed_attempts":(%d+)')
  if n then
    count = tonumber(n)
  end
  local untilMs = string.match(raw, '"locked_until":(%d+)')
  if untilMs and tonumber(untilMs) <= tonumber(ARGV[1]) then
    count = 0
  end
end

count = count + 1
local lockedUntil = "null"
if count >= tonumber(ARGV[2]) then
  lockedUntil = ARGV[3]
end

local body = '{"failed_attempts":' .. count .. ',"locked_until":' .. lockedUntil .. '}'
if tonumber(ARGV[4]) > 0 then
  redis.call("SET", KEYS[1], body, "PX", ARGV[4])
else
  redis.call("SET", KEYS[1], body)
end
return {count, lockedUntil}
`

var incrLockLua = redis.NewScript(incrLockScript)

// Redis is a Store backed by a Redis deployment shared across instances.
type Redis struct {
	client     redis.UniversalClient
	maxRetries int
}

// RedisOption customizes a Redis store.
type RedisOption func(*Redis)

// WithMaxUpdateRetries bounds how many times Update retries after losing an
// optimistic transaction. Values below one are ignored.
func WithMaxUpdateRetries(n int) RedisOption {
	return func(r *Redis) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// NewRedis wraps an existing client. The caller keeps ownership of client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, maxRetries: defaultMaxUpdateRetries}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Update implements Store with WATCH/MULTI. A transaction that fails because
// key changed after WATCH is retried with a fresh read.
func (r *Redis) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	if ttl < 0 {
		ttl = 0
	}

	for i := 0; i < r.maxRetries; i++ {
		var fnErr error

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			found := true
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					return err
				}
				current, found = nil, false
			}

			next, err := fn(current, found)
			if err != nil {
				fnErr = err
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if next == nil {
					pipe.Del(ctx, key)
				} else {
					pipe.Set(ctx, key, next, ttl)
				}
				return nil
			})
			return err
		}, key)

		if fnErr != nil {
			return fnErr
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return fmt.Errorf("%w: key %q after %d attempts", ErrConflict, key, r.maxRetries)
}

// IncrLock implements LockCounter with a Lua script, so concurrent callers
// are serialized by Redis and every increment lands.
func (r *Redis) IncrLock(ctx context.Context, key string, threshold int, nowMs, lockUntilMs int64, ttl time.Duration) (int, int64, error) {
	ttlMs := ttl.Milliseconds()
	if ttlMs < 0 {
		ttlMs = 0
	}

	res, err := incrLockLua.Run(ctx, r.client, []string{key}, nowMs, threshold, lockUntilMs, ttlMs).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected script reply %v", ErrUnavailable, res)
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unexpected count %T", ErrUnavailable, res[0])
	}
	until, _ := res[1].(string)
	if until == "null" {
		return int(count), 0, nil
	}
	lockedUntil, err := strconv.ParseInt(until, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unexpected deadline %q", ErrUnavailable, until)
	}
	return int(count), lockedUntil, nil
}
