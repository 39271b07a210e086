// internal/messaging/hub.go

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Topics
const TopicChat = "chat"

func ConversationsTopic(userID string) string { return "conversations:" + userID }

func ConversationTopic(conversationID string) string { return "conversation:" + conversationID }

// Event types
const (
	EventMessage      = "message"
	EventConversation = "conversation"
	EventRead         = "read"
	EventChatMessage  = "chat_message"
)

const subscriptionBuffer = 64

var ErrHubStopped = errors.New("hub stopped")

var droppedSubscribers = promauto.NewCounter(prometheus.CounterOpts{
	Name: "messaging_hub_dropped_subscribers_total",
	Help: "Subscriptions torn down because the subscriber fell behind",
})

// Event is what subscribers receive
type Event struct {
	Topic     string          `json:"topic"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(topic, eventType string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Type: eventType, Data: raw, Timestamp: time.Now().UTC()}, nil
}

// Broker carries events between server instances
type Broker interface {
	Publish(ctx context.Context, evt Event) error
	// Listen blocks, handing every received event to deliver until ctx ends
	Listen(ctx context.Context, deliver func(Event)) error
}

// Subscription is a live feed of one topic. Close must be called once the
// subscriber is done; the channel is closed after teardown.
type Subscription struct {
	hub   *Hub
	topic string
	ch    chan Event
	once  sync.Once
}

func (s *Subscription) Topic() string { return s.topic }

func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
	})
}

// Hub fans events out to topic subscribers. A single goroutine (Run) owns
// the subscription table.
type Hub struct {
	subs       map[string]map[*Subscription]struct{}
	register   chan *Subscription
	unregister chan *Subscription
	deliver    chan Event
	done       chan struct{}

	countsMu sync.RWMutex
	counts   map[string]int

	broker Broker
	logger *zap.Logger
}

// NewHub creates a hub. With a nil broker events are delivered locally only.
func NewHub(broker Broker, logger *zap.Logger) *Hub {
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		deliver:    make(chan Event, 256),
		done:       make(chan struct{}),
		counts:     make(map[string]int),
		broker:     broker,
		logger:     logger,
	}
}

// Run processes subscriptions and deliveries until ctx is canceled
func (h *Hub) Run(ctx context.Context) {
	defer h.cleanup()

	if h.broker != nil {
		go func() {
			if err := h.broker.Listen(ctx, h.enqueue); err != nil && ctx.Err() == nil {
				h.logger.Error("realtime broker stopped", zap.Error(err))
			}
		}()
	}

	for {
		select {
		case sub := <-h.register:
			set, ok := h.subs[sub.topic]
			if !ok {
				set = make(map[*Subscription]struct{})
				h.subs[sub.topic] = set
			}
			set[sub] = struct{}{}
			h.setCount(sub.topic, len(set))

		case sub := <-h.unregister:
			h.remove(sub)

		case evt := <-h.deliver:
			for sub := range h.subs[evt.Topic] {
				select {
				case sub.ch <- evt:
				default:
					droppedSubscribers.Inc()
					h.logger.Warn("dropping slow subscriber", zap.String("topic", sub.topic))
					h.remove(sub)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	set, ok := h.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.topic)
	}
	h.setCount(sub.topic, len(set))
}

func (h *Hub) cleanup() {
	close(h.done)
	for _, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})

	h.countsMu.Lock()
	h.counts = make(map[string]int)
	h.countsMu.Unlock()
}

func (h *Hub) setCount(topic string, n int) {
	h.countsMu.Lock()
	defer h.countsMu.Unlock()
	if n == 0 {
		delete(h.counts, topic)
		return
	}
	h.counts[topic] = n
}

// Subscribe registers a subscription to topic. Events published after it
// returns are delivered to it.
func (h *Hub) Subscribe(topic string) (*Subscription, error) {
	sub := &Subscription{hub: h, topic: topic, ch: make(chan Event, subscriptionBuffer)}
	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrHubStopped
	}
}

// Publish sends evt to the broker when one is configured, otherwise
// straight to local subscribers.
func (h *Hub) Publish(ctx context.Context, evt Event) error {
	if h.broker != nil {
		return h.broker.Publish(ctx, evt)
	}
	select {
	case h.deliver <- evt:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) enqueue(evt Event) {
	select {
	case h.deliver <- evt:
	case <-h.done:
	}
}

// Subscribers reports how many local subscriptions a topic has
func (h *Hub) Subscribers(topic string) int {
	h.countsMu.RLock()
	defer h.countsMu.RUnlock()
	return h.counts[topic]
}
