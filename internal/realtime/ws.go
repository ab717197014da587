package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Server 把 HTTP 请求升级为 Hub 的 WebSocket 订阅者
type Server struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	queueSize int
}

// NewServer 只接受 allowedOrigin 的连接，为空时不限来源
func NewServer(hub *Hub, allowedOrigin string, queueSize int) *Server {
	return &Server{
		hub:       hub,
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeHTTP 升级连接并启动读写循环
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := NewClient(s.queueSize)
	logger.Debug("websocket connected", zap.String("client", c.ID), zap.String("remote", r.RemoteAddr))

	go s.writePump(conn, c)
	s.readPump(conn, c)
}

func (s *Server) readPump(conn *websocket.Conn, c *Client) {
	defer func() {
		s.hub.Remove(c)
		c.Close()
		_ = conn.Close()
		logger.Debug("websocket closed", zap.String("client", c.ID))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		var topic string
		if err := json.Unmarshal(msg.Data, &topic); err != nil || topic == "" {
			continue
		}
		switch msg.Event {
		case "join":
			s.hub.Join(c, topic)
		case "leave":
			s.hub.Leave(c, topic)
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-c.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
