// Package menucache 在 Redis 中缓存带评分的当前菜单
package menucache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/pkg/logger"
)

const (
	activeMenuKey = "menu:active"
	// 每次失效自增；回填时代数不一致就放弃写入
	activeMenuGenKey = "menu:active:gen"
)

// KEYS[1] menu key, KEYS[2] generation key
// ARGV[1] generation seen before load, ARGV[2] payload, ARGV[3] ttl ms
var fillIfCurrentScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2])
if gen == false then gen = "0" end
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// Loader 从主库读取当前菜单，nil 表示没有菜单
type Loader func(ctx context.Context) (*model.Menu, error)

// Cache 当前菜单的旁路缓存，nil *Cache 每次都回源
type Cache struct {
	rdb redis.UniversalClient
	ttl time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func New(rdb redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// ActiveMenu 命中缓存直接返回，否则回源并写入
// Redis 出错时直接回源；回源期间发生失效则只返回不写入
func (c *Cache) ActiveMenu(ctx context.Context, load Loader) (*model.Menu, error) {
	if c == nil {
		return load(ctx)
	}
	if data, err := c.rdb.Get(ctx, activeMenuKey).Bytes(); err == nil {
		var menu *model.Menu
		if uErr := json.Unmarshal(data, &menu); uErr == nil {
			c.hits.Add(1)
			return menu, nil
		}
	}

	c.misses.Add(1)
	gen, genErr := c.generation(ctx)
	menu, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return menu, nil
	}
	payload, err := json.Marshal(menu)
	if err != nil {
		return menu, nil
	}
	stored, err := fillIfCurrentScript.Run(ctx, c.rdb,
		[]string{activeMenuKey, activeMenuGenKey},
		strconv.FormatInt(gen, 10), payload, c.ttl.Milliseconds()).Int()
	switch {
	case err != nil:
		logger.Warn("cache active menu", zap.Error(err))
	case stored == 0:
		logger.Debug("active menu changed during load, not cached")
	}
	return menu, nil
}

// Invalidate 菜单或评价变更后清除缓存
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, activeMenuGenKey)
		p.Del(ctx, activeMenuKey)
		return nil
	})
	if err != nil {
		logger.Warn("invalidate active menu", zap.Error(err))
	}
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, activeMenuGenKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Counters 启动以来的命中与回源次数
type Counters struct {
	Hits   int64
	Misses int64
}

func (c *Cache) Counters() Counters {
	if c == nil {
		return Counters{}
	}
	return Counters{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
