// internal/messaging/client.go

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control frames
	maxMessageSize = 4 * 1024
)

var activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "messaging_websocket_connections",
	Help: "Open websocket connections",
})

// Control frames sent by clients
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

type controlMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type controlReply struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is one websocket connection and the subscriptions it holds
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	service *Service
	logger  *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// ErrClientClosed is returned when subscribing on a closed connection
var ErrClientClosed = errors.New("connection closed")

func NewClient(hub *Hub, conn *websocket.Conn, userID string, service *Service, logger *zap.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		service: service,
		logger:  logger.With(zap.String("user_id", userID)),
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
		subs:    make(map[string]*Subscription),
	}
}

// Start subscribes the defaults and runs the pumps. Every subscription is
// torn down when the connection closes.
func (c *Client) Start(ctx context.Context) {
	activeConnections.Inc()
	for _, topic := range []string{TopicChat, ConversationsTopic(c.userID)} {
		if err := c.subscribe(topic); err != nil {
			c.logger.Warn("default subscription failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	go c.writePump()
	go c.readPump(ctx)
}

// Close tears down every subscription and the connection. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.closed = true
		for topic, sub := range c.subs {
			sub.Close()
			delete(c.subs, topic)
		}
		c.mu.Unlock()

		c.conn.Close()
		activeConnections.Dec()
	})
}

func (c *Client) subscribe(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if _, ok := c.subs[topic]; ok {
		return nil
	}
	sub, err := c.hub.Subscribe(topic)
	if err != nil {
		return err
	}
	c.subs[topic] = sub
	go c.forward(sub)
	return nil
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// forward copies events to the socket. When the hub drops the subscription
// it is forgotten so the topic can be subscribed again.
func (c *Client) forward(sub *Subscription) {
	defer c.forget(sub)

	for evt := range sub.C() {
		data, err := json.Marshal(evt)
		if err != nil {
			c.logger.Error("failed to encode event", zap.Error(err))
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) forget(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[sub.Topic()] == sub {
		delete(c.subs, sub.Topic())
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("websocket closed", zap.Error(err))
			}
			return
		}
		c.handleControl(ctx, data)
	}
}

func (c *Client) handleControl(ctx context.Context, data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(controlReply{Type: "error", Error: "invalid message"})
		return
	}

	switch msg.Action {
	case ActionSubscribe:
		if err := c.authorize(ctx, msg.Topic); err != nil {
			c.reply(controlReply{Type: "error", Topic: msg.Topic, Error: err.Error()})
			return
		}
		if err := c.subscribe(msg.Topic); err != nil {
			c.reply(controlReply{Type: "error", Topic: msg.Topic, Error: err.Error()})
			return
		}
		c.reply(controlReply{Type: "subscribed", Topic: msg.Topic})

	case ActionUnsubscribe:
		c.unsubscribe(msg.Topic)
		c.reply(controlReply{Type: "unsubscribed", Topic: msg.Topic})

	default:
		c.reply(controlReply{Type: "error", Error: "unknown action"})
	}
}

// authorize limits topics to the global chat, the user's own conversation
// list and conversations the user takes part in.
func (c *Client) authorize(ctx context.Context, topic string) error {
	switch {
	case topic == TopicChat, topic == ConversationsTopic(c.userID):
		return nil
	case strings.HasPrefix(topic, "conversation:"):
		return c.service.CanView(ctx, strings.TrimPrefix(topic, "conversation:"), c.userID)
	default:
		return ErrNotParticipant
	}
}

func (c *Client) reply(r controlReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
