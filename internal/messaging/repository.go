// internal/messaging/repository.go

package messaging

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists conversations, direct messages, the global chat and
// push tokens.
type Repository interface {
	// AppendMessage stores msg and merges conv's summary into the stored
	// conversation, creating it on first use. The stored result is returned.
	AppendMessage(ctx context.Context, conv *Conversation, msg *DirectMessage) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*Conversation, error)
	MarkOpened(ctx context.Context, id, userID string) (*Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*DirectMessage, error)

	AddChatMessage(ctx context.Context, msg *ChatMessage) error
	ListChatMessages(ctx context.Context, limit int) ([]*ChatMessage, error)
	PruneChatMessages(ctx context.Context, before time.Time) (int64, error)

	SavePushToken(ctx context.Context, token *PushToken) error
	PushTokens(ctx context.Context, userID string) ([]string, error)
	DeletePushToken(ctx context.Context, token string) error

	// DeleteAll wipes chat, conversations and direct messages
	DeleteAll(ctx context.Context) error
}

// memoryRepository keeps everything in process. It backs sample mode and tests.
type memoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*DirectMessage
	chat          []*ChatMessage
	tokens        map[string]*PushToken
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*DirectMessage),
		tokens:        make(map[string]*PushToken),
	}
}

func (r *memoryRepository) AppendMessage(ctx context.Context, conv *Conversation, msg *DirectMessage) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.conversations[conv.ID]
	if !ok {
		stored = newConversation(conv.Participants[0], conv.Participants[1])
		r.conversations[conv.ID] = stored
	}
	stored.MarkSent(msg.SenderID, msg.Text, msg.CreatedAt)
	r.messages[conv.ID] = append(r.messages[conv.ID], msg)
	return stored.clone(), nil
}

func (r *memoryRepository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return c.clone(), nil
}

func (r *memoryRepository) ListConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Conversation, 0)
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			list = append(list, c.clone())
		}
	}
	sortConversations(list)
	return list, nil
}

func (r *memoryRepository) MarkOpened(ctx context.Context, id, userID string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	c.MarkOpened(userID)
	return c.clone(), nil
}

func (r *memoryRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*DirectMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]*DirectMessage{}, msgs...), nil
}

func (r *memoryRepository) AddChatMessage(ctx context.Context, msg *ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat = append(r.chat, msg)
	return nil
}

func (r *memoryRepository) ListChatMessages(ctx context.Context, limit int) ([]*ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.chat
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]*ChatMessage{}, msgs...), nil
}

func (r *memoryRepository) PruneChatMessages(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*ChatMessage, 0, len(r.chat))
	for _, m := range r.chat {
		if !m.CreatedAt.Before(before) {
			kept = append(kept, m)
		}
	}
	removed := int64(len(r.chat) - len(kept))
	r.chat = kept
	return removed, nil
}

func (r *memoryRepository) SavePushToken(ctx context.Context, token *PushToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryRepository) PushTokens(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t.Token)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memoryRepository) DeletePushToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *memoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations = make(map[string]*Conversation)
	r.messages = make(map[string][]*DirectMessage)
	r.chat = nil
	return nil
}

// newest first; conversations without messages sort last
func sortConversations(list []*Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].LastMessageAt, list[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
