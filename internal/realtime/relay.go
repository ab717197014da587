package realtime

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

// DefaultRelayChannel 事件转发使用的 Redis 频道
const DefaultRelayChannel = "eazyeats:realtime"

type envelope struct {
	Topic string          `json:"topic"`
	Frame json.RawMessage `json:"frame"`
}

// RedisRelay 通过 Redis pub/sub 把事件转发到所有实例，各实例投递给本地 Hub
type RedisRelay struct {
	rdb     redis.UniversalClient
	channel string
	local   *Hub
}

func NewRedisRelay(rdb redis.UniversalClient, channel string, local *Hub) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{rdb: rdb, channel: channel, local: local}
}

// Broadcast 发布到 Redis；Redis 不可用时只投递本地订阅者
func (r *RedisRelay) Broadcast(ctx context.Context, topic string, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encode realtime event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	payload, _ := json.Marshal(envelope{Topic: topic, Frame: frame})
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		logger.Warn("relay publish failed, local delivery only", zap.String("topic", topic), zap.Error(err))
		r.local.deliver(topic, frame)
	}
}

// Start 订阅成功后返回，持续消费直到 ctx 结束
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(err, "subscribe relay channel")
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Warn("drop malformed relay message", zap.Error(err))
					continue
				}
				r.local.deliver(env.Topic, env.Frame)
			}
		}
	}()
	return nil
}
