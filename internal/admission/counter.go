package admission

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// MemoryCounter 进程内计数，只增不减，重启清零
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (m *MemoryCounter) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func (m *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

const defaultSlotTTL = 48 * time.Hour

// KEYS[1] slot key, ARGV[1] limit, ARGV[2] ttl seconds
var incrWithinScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n >= tonumber(ARGV[1]) then
  return 0
end
redis.call("INCR", KEYS[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return 1
`)

// RedisCounter 多实例共享的时段计数
type RedisCounter struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCounter(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisCounter {
	if prefix == "" {
		prefix = "slot:"
	}
	if ttl <= 0 {
		ttl = defaultSlotTTL
	}
	return &RedisCounter{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisCounter) key(k string) string { return r.prefix + k }

func (r *RedisCounter) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.Get(ctx, r.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, r.key(key))
		p.Expire(ctx, r.key(key), r.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// IncrWithin 未达上限时自增
func (r *RedisCounter) IncrWithin(ctx context.Context, key string, limit int64) (bool, error) {
	res, err := incrWithinScript.Run(ctx, r.rdb, []string{r.key(key)}, limit, int64(r.ttl/time.Second)).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (r *RedisCounter) Decr(ctx context.Context, key string) error {
	return r.rdb.Decr(ctx, r.key(key)).Err()
}
