// Package realtime 按主题向订阅连接推送订单事件
// 尽力投递：连接只收到订阅期间发布的事件
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

// Event 推送给客户端的消息帧
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Broadcaster 向主题的所有订阅者发布事件
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, ev Event)
}

// Hub 本进程内的 topic -> 连接 注册表
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
	}
}

// Join 订阅主题，重复订阅无副作用
func (h *Hub) Join(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}

	joined, ok := h.clients[c]
	if !ok {
		joined = make(map[string]struct{})
		h.clients[c] = joined
	}
	joined[topic] = struct{}{}
}

func (h *Hub) Leave(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, topic)
}

func (h *Hub) leaveLocked(c *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if joined, ok := h.clients[c]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(h.clients, c)
		}
	}
}

// Remove 从所有主题移除连接
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.clients[c] {
		h.leaveLocked(c, topic)
	}
}

// Subscribers 主题当前连接数
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast 事件只编码一次，排入每个订阅者队列
func (h *Hub) Broadcast(_ context.Context, topic string, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		logger.Error("encode realtime event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	h.deliver(topic, frame)
}

func (h *Hub) deliver(topic string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.topics[topic] {
		if c.enqueue(frame) {
			n++
		}
	}
	return n
}
