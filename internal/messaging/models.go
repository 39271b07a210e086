// internal/messaging/models.go

package messaging

import (
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrSelfMessage          = errors.New("cannot message yourself")
	ErrInvalidUserID        = errors.New("invalid user id")
)

// SeenLabel annotates the last outgoing message once the recipient opened the thread
const SeenLabel = "Görüldü"

// Conversation is the summary document of a one-to-one thread
type Conversation struct {
	ID            string     `json:"id"`
	Participants  [2]string  `json:"participants"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastSenderID  string     `json:"last_sender_id,omitempty"`
	UnreadBy      []string   `json:"unread_by"`

	// Placeholder conversations exist only in responses until the first message
	Placeholder bool `json:"placeholder,omitempty"`
}

type DirectMessage struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id" db:"sender_id"`
	Text           string    `json:"text" db:"text"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ChatMessage belongs to the global chat room
type ChatMessage struct {
	ID           string    `json:"id" db:"id"`
	SenderID     string    `json:"sender_id" db:"sender_id"`
	SenderName   string    `json:"sender_name" db:"sender_name"`
	SenderAvatar string    `json:"sender_avatar" db:"sender_avatar"`
	Text         string    `json:"text" db:"text"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Peer is the public profile of the other side of a conversation
type Peer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ConversationView is a conversation as one participant sees it
type ConversationView struct {
	*Conversation
	Other     Peer   `json:"other"`
	HasUnread bool   `json:"has_unread"`
	Status    string `json:"status,omitempty"`
}

// PushToken is a device registration for notifications
type PushToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    string    `json:"user_id" db:"user_id"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Request DTOs

type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Text        string `json:"text" validate:"required,max=2000"`
}

type ChatMessageRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type PushTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=web android ios"`
}
