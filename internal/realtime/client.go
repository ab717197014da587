package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

const defaultQueueSize = 64

// Client 一个订阅连接，带有有界发送队列
type Client struct {
	ID   string
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Client{ID: uuid.New().String(), send: make(chan []byte, queueSize), done: make(chan struct{})}
}

// Messages 按发布顺序排队的消息帧
func (c *Client) Messages() <-chan []byte { return c.send }

// Done 连接关闭后关闭
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() { c.once.Do(func() { close(c.done) }) }

// enqueue 不阻塞发布方，队列满时丢弃
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		logger.Warn("realtime queue full, drop event", zap.String("client", c.ID), zap.Int("queue", cap(c.send)))
		return false
	}
}
