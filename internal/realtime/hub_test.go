package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eazyeats/internal/model"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func recv(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case b := <-c.Messages():
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return frame{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.Messages():
		t.Fatalf("unexpected event %s", b)
	default:
	}
}

func TestHubDeliversOnlyToSubscribers(t *testing.T) {
	h := NewHub()
	a, b := NewClient(4), NewClient(4)
	h.Join(a, "orders")
	h.Join(b, "user:1")

	h.Broadcast(context.Background(), "orders", Event{Name: "new_order", Data: map[string]any{"orderId": "x"}})

	assert.Equal(t, "new_order", recv(t, a).Event)
	assertEmpty(t, b)
}

func TestHubLeaveAndRemove(t *testing.T) {
	h := NewHub()
	c := NewClient(4)
	h.Join(c, "orders")
	h.Join(c, "order:1")
	h.Join(c, "order:1")
	assert.Equal(t, 1, h.Subscribers("order:1"))

	h.Leave(c, "order:1")
	assert.Equal(t, 0, h.Subscribers("order:1"))
	assert.Equal(t, 1, h.Subscribers("orders"))

	h.Remove(c)
	assert.Equal(t, 0, h.Subscribers("orders"))
	h.Broadcast(context.Background(), "orders", Event{Name: "new_order"})
	assertEmpty(t, c)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	h := NewHub()
	c := NewClient(1)
	h.Join(c, "orders")

	assert.Equal(t, 1, h.deliver("orders", []byte(`{"event":"a"}`)))
	assert.Equal(t, 0, h.deliver("orders", []byte(`{"event":"b"}`)))
	assert.Equal(t, "a", recv(t, c).Event)
	assertEmpty(t, c)
}

func TestClosedClientReceivesNothing(t *testing.T) {
	h := NewHub()
	c := NewClient(4)
	h.Join(c, "orders")
	c.Close()
	c.Close()
	assert.Equal(t, 0, h.deliver("orders", []byte(`{}`)))
}

func TestNotifierTopics(t *testing.T) {
	h := NewHub()
	user, track, staff := NewClient(4), NewClient(4), NewClient(4)
	h.Join(user, UserTopic("u1"))
	h.Join(track, OrderTopic("o1"))
	h.Join(staff, StaffTopic)

	n := NewOrderNotifier(h)
	fixed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }
	o := &model.Order{ID: "o1", UserID: "u1", Total: 120, Status: model.OrderStatusAccepted}
	ctx := context.Background()

	n.OrderCreated(ctx, o)
	f := recv(t, staff)
	assert.Equal(t, EventNewOrder, f.Event)
	assert.JSONEq(t, `{"orderId":"o1","total":120}`, string(f.Data))
	assertEmpty(t, user)
	assertEmpty(t, track)

	n.OrderStatusChanged(ctx, o)
	for _, c := range []*Client{user, track} {
		f := recv(t, c)
		assert.Equal(t, EventOrderStatusUpdated, f.Event)
		assert.JSONEq(t, `{"orderId":"o1","status":"accepted","updatedAt":"2024-01-01T10:00:00Z"}`, string(f.Data))
	}
	f = recv(t, staff)
	assert.Equal(t, EventOrderUpdated, f.Event)
	assert.JSONEq(t, `{"orderId":"o1","status":"accepted"}`, string(f.Data))
}

func waitSubscribers(t *testing.T, h *Hub, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Subscribers(topic) == n }, time.Second, 5*time.Millisecond)
}

func TestWebSocketJoinAndReceive(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(NewServer(h, "", 8))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "join", "data": "order:o9"}))
	// non-string topics are ignored
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "join", "data": 42}))
	waitSubscribers(t, h, "order:o9", 1)

	NewOrderNotifier(h).OrderStatusChanged(context.Background(), &model.Order{ID: "o9", UserID: "u", Status: model.OrderStatusReady})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, EventOrderStatusUpdated, f.Event)
	assert.Contains(t, string(f.Data), `"status":"ready"`)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "leave", "data": "order:o9"}))
	waitSubscribers(t, h, "order:o9", 0)
}

func TestWebSocketDisconnectUnsubscribes(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(NewServer(h, "", 8))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "join", "data": StaffTopic}))
	waitSubscribers(t, h, StaffTopic, 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, h, StaffTopic, 0)
}

func TestRedisRelayDeliversAcrossHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newNode := func() (*Hub, *RedisRelay) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		h := NewHub()
		r := NewRedisRelay(rdb, "test:relay", h)
		require.NoError(t, r.Start(ctx))
		return h, r
	}
	h1, r1 := newNode()
	h2, _ := newNode()

	c1, c2 := NewClient(4), NewClient(4)
	h1.Join(c1, StaffTopic)
	h2.Join(c2, StaffTopic)

	NewOrderNotifier(r1).OrderCreated(ctx, &model.Order{ID: "o1", Total: 60})

	assert.Equal(t, EventNewOrder, recv(t, c1).Event)
	assert.Equal(t, EventNewOrder, recv(t, c2).Event)
}

func TestRedisRelayFallsBackToLocal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	h := NewHub()
	c := NewClient(4)
	h.Join(c, StaffTopic)
	r := NewRedisRelay(rdb, "", h)

	mr.Close()
	r.Broadcast(context.Background(), StaffTopic, Event{Name: EventNewOrder})
	assert.Equal(t, EventNewOrder, recv(t, c).Event)
}
