// internal/messaging/service.go

package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var messagesSent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "messaging_messages_sent_total",
		Help: "Messages accepted, by kind",
	},
	[]string{"kind"},
)

// PeerDirectory resolves display data for a user id
type PeerDirectory interface {
	LookupPeer(ctx context.Context, userID string) (Peer, error)
}

// PeerDirectoryFunc adapts a function to PeerDirectory
type PeerDirectoryFunc func(ctx context.Context, userID string) (Peer, error)

func (f PeerDirectoryFunc) LookupPeer(ctx context.Context, userID string) (Peer, error) {
	return f(ctx, userID)
}

// Publisher is the part of the hub the service talks to
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Subscribers(topic string) int
}

type Service struct {
	repo         Repository
	hub          Publisher
	pusher       Pusher
	peers        PeerDirectory
	historyLimit int
	logger       *zap.Logger
}

func NewService(repo Repository, hub Publisher, pusher Pusher, peers PeerDirectory, historyLimit int, logger *zap.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		repo:         repo,
		hub:          hub,
		pusher:       pusher,
		peers:        peers,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// SendDirectMessage appends a message to the thread between sender and
// recipient, creating the conversation on first use.
func (s *Service) SendDirectMessage(ctx context.Context, senderID, recipientID, text string) (*DirectMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if err := checkPair(senderID, recipientID); err != nil {
		return nil, err
	}

	conv := newConversation(senderID, recipientID)
	msg := &DirectMessage{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	conv.MarkSent(senderID, text, msg.CreatedAt)

	stored, err := s.repo.AppendMessage(ctx, conv, msg)
	if err != nil {
		return nil, err
	}
	messagesSent.WithLabelValues("direct").Inc()

	// the recipient counts as online while any of their list views is subscribed
	online := s.hub.Subscribers(ConversationsTopic(recipientID)) > 0

	s.publish(ctx, ConversationTopic(conv.ID), EventMessage, msg)
	s.publish(ctx, ConversationsTopic(senderID), EventConversation, stored)
	s.publish(ctx, ConversationsTopic(recipientID), EventConversation, stored)

	if !online && s.pusher != nil {
		sender := s.peer(ctx, senderID)
		if err := s.pusher.NotifyDirectMessage(ctx, recipientID, sender.Name, msg); err != nil {
			s.logger.Warn("push notification failed", zap.String("recipient", recipientID), zap.Error(err))
		}
	}
	return msg, nil
}

// OpenConversation clears the viewer's unread flag
func (s *Service) OpenConversation(ctx context.Context, conversationID, viewer string) (*ConversationView, error) {
	conv, err := s.participantConversation(ctx, conversationID, viewer)
	if err != nil {
		return nil, err
	}

	if conv.UnreadFor(viewer) {
		conv, err = s.repo.MarkOpened(ctx, conversationID, viewer)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, ConversationTopic(conversationID), EventRead, map[string]string{
			"conversation_id": conversationID,
			"reader_id":       viewer,
		})
		s.publish(ctx, ConversationsTopic(conv.Other(viewer)), EventConversation, conv)
	}
	return conv.View(viewer, s.peer(ctx, conv.Other(viewer))), nil
}

// GetConversationWith returns the stored conversation with other, or an
// unpersisted placeholder when the two never exchanged a message.
func (s *Service) GetConversationWith(ctx context.Context, viewer, other string) (*ConversationView, error) {
	if err := checkPair(viewer, other); err != nil {
		return nil, err
	}
	conv, err := s.repo.GetConversation(ctx, ConversationID(viewer, other))
	if errors.Is(err, ErrConversationNotFound) {
		conv = NewPlaceholder(viewer, other)
	} else if err != nil {
		return nil, err
	}
	return conv.View(viewer, s.peer(ctx, other)), nil
}

func (s *Service) ListConversations(ctx context.Context, viewer string) ([]*ConversationView, error) {
	convs, err := s.repo.ListConversations(ctx, viewer)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, len(convs))
	for i, c := range convs {
		views[i] = c.View(viewer, s.peer(ctx, c.Other(viewer)))
	}
	return views, nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID, viewer string, limit int) ([]*DirectMessage, error) {
	if _, err := s.participantConversation(ctx, conversationID, viewer); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID, s.limit(limit))
}

// CanView reports whether viewer may follow a conversation topic
func (s *Service) CanView(ctx context.Context, conversationID, viewer string) error {
	_, err := s.participantConversation(ctx, conversationID, viewer)
	return err
}

func (s *Service) SendChatMessage(ctx context.Context, senderID, text string) (*ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	sender := s.peer(ctx, senderID)
	msg := &ChatMessage{
		ID:           uuid.NewString(),
		SenderID:     senderID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Text:         text,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.AddChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	messagesSent.WithLabelValues("chat").Inc()

	s.publish(ctx, TopicChat, EventChatMessage, msg)
	return msg, nil
}

// ListChatMessages returns the newest limit chat messages, oldest first
func (s *Service) ListChatMessages(ctx context.Context, limit int) ([]*ChatMessage, error) {
	return s.repo.ListChatMessages(ctx, s.limit(limit))
}

func (s *Service) PruneChat(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.PruneChatMessages(ctx, before)
}

func (s *Service) RegisterPushToken(ctx context.Context, userID string, req PushTokenRequest) error {
	platform := req.Platform
	if platform == "" {
		platform = "web"
	}
	return s.repo.SavePushToken(ctx, &PushToken{
		Token:     req.Token,
		UserID:    userID,
		Platform:  platform,
		CreatedAt: time.Now().UTC(),
	})
}

// DeleteAll wipes chat and direct messages
func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to reset messaging: %w", err)
	}
	return nil
}

func (s *Service) participantConversation(ctx context.Context, conversationID, viewer string) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewer) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) peer(ctx context.Context, userID string) Peer {
	if s.peers == nil {
		return Peer{ID: userID}
	}
	p, err := s.peers.LookupPeer(ctx, userID)
	if err != nil {
		s.logger.Debug("peer lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Peer{ID: userID}
	}
	return p
}

func (s *Service) limit(n int) int {
	if n <= 0 || n > s.historyLimit {
		return s.historyLimit
	}
	return n
}

// publish is best effort; realtime delivery never fails a write
func (s *Service) publish(ctx context.Context, topic, eventType string, data interface{}) {
	evt, err := NewEvent(topic, eventType, data)
	if err == nil {
		err = s.hub.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn("failed to publish realtime event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
