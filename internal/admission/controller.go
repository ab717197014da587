// Package admission 限制每个取餐时段接受的订单数
package admission

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/pkg/logger"
)

// DefaultCapacity 未配置时的单时段容量
const DefaultCapacity = 20

// ErrSlotFull 时段已满
var ErrSlotFull = errors.New("time slot at capacity")

// Counter 记录每个时段已接受的订单数
type Counter interface {
	Count(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CeilingCounter 只在不超过上限时自增
// 共享存储实现它，多进程也不会超卖
type CeilingCounter interface {
	Counter
	IncrWithin(ctx context.Context, key string, limit int64) (bool, error)
	Decr(ctx context.Context, key string) error
}

// Controller 时段准入控制
type Controller struct {
	window   *schedule.Window
	counter  Counter
	capacity int64
	locks    *keyedMutex
}

func NewController(window *schedule.Window, counter Counter, capacity int) *Controller {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Controller{window: window, counter: counter, capacity: int64(capacity), locks: newKeyedMutex()}
}

func (c *Controller) Capacity() int { return int(c.capacity) }

// SlotKey t 所在时段的计数 key
func (c *Controller) SlotKey(t time.Time) string { return c.window.SlotKey(t) }

// CanSchedule t 所在时段是否还有余量
func (c *Controller) CanSchedule(ctx context.Context, t time.Time) (bool, error) {
	n, err := c.counter.Count(ctx, c.window.SlotKey(t))
	if err != nil {
		return false, errors.Wrap(err, "count slot")
	}
	return n < c.capacity, nil
}

// Reserve 为 t 所在时段占用一个名额
func (c *Controller) Reserve(ctx context.Context, t time.Time) error {
	if _, err := c.counter.Incr(ctx, c.window.SlotKey(t)); err != nil {
		return errors.Wrap(err, "reserve slot")
	}
	return nil
}

// Admit 时段有余量才执行 persist，成功后计数；persist 失败不计数
//
// CeilingCounter 先原子占位，persist 失败再归还；
// 其余计数器在单时段锁内完成检查、写入、计数，仅保证单进程精确
func (c *Controller) Admit(ctx context.Context, t time.Time, persist func(context.Context) error) error {
	key := c.window.SlotKey(t)

	if cc, ok := c.counter.(CeilingCounter); ok {
		ok, err := cc.IncrWithin(ctx, key, c.capacity)
		if err != nil {
			return errors.Wrap(err, "reserve slot")
		}
		if !ok {
			return ErrSlotFull
		}
		if err := persist(ctx); err != nil {
			if derr := cc.Decr(context.WithoutCancel(ctx), key); derr != nil {
				logger.Error("release slot after failed persist", zap.String("slot", key), zap.Error(derr))
			}
			return err
		}
		return nil
	}

	unlock := c.locks.Lock(key)
	defer unlock()

	ok, err := c.CanSchedule(ctx, t)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotFull
	}
	if err := persist(ctx); err != nil {
		return err
	}
	return c.Reserve(ctx, t)
}
