// internal/messaging/notifications.go

package messaging

import (
	"context"
	"fmt"
	"unicode/utf8"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Pusher notifies a recipient who is not connected
type Pusher interface {
	NotifyDirectMessage(ctx context.Context, recipientID, senderName string, msg *DirectMessage) error
}

// TokenStore is the subset of Repository the push sender needs
type TokenStore interface {
	PushTokens(ctx context.Context, userID string) ([]string, error)
	DeletePushToken(ctx context.Context, token string) error
}

const previewLength = 120

type fcmPusher struct {
	client *messaging.Client
	tokens TokenStore
	logger *zap.Logger
}

// NewFCMPusher sends notifications through Firebase Cloud Messaging
func NewFCMPusher(ctx context.Context, credentialsFile string, tokens TokenStore, logger *zap.Logger) (Pusher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &fcmPusher{client: client, tokens: tokens, logger: logger}, nil
}

func (p *fcmPusher) NotifyDirectMessage(ctx context.Context, recipientID, senderName string, msg *DirectMessage) error {
	tokens, err := p.tokens.PushTokens(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: senderName,
			Body:  preview(msg.Text),
		},
		Data: map[string]string{
			"type":            "direct_message",
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
		},
		Webpush: &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: "/messages/" + msg.ConversationID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	for i, r := range resp.Responses {
		if r.Success || !messaging.IsUnregistered(r.Error) {
			continue
		}
		if err := p.tokens.DeletePushToken(ctx, tokens[i]); err != nil {
			p.logger.Warn("failed to drop stale push token", zap.Error(err))
		}
	}
	if resp.FailureCount > 0 {
		p.logger.Info("some push deliveries failed",
			zap.String("recipient", recipientID),
			zap.Int("failed", resp.FailureCount),
		)
	}
	return nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "…"
}

// LogPusher logs direct message notifications instead of sending them. It
// is used when no push provider is configured and keeps no state.
type LogPusher struct {
	logger *zap.Logger
}

func NewLogPusher(logger *zap.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) NotifyDirectMessage(ctx context.Context, recipientID, senderName string, msg *DirectMessage) error {
	p.logger.Debug("push skipped, no provider configured",
		zap.String("recipient_id", recipientID),
		zap.String("conversation_id", msg.ConversationID),
	)
	return nil
}
