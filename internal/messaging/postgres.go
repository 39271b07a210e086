// internal/messaging/postgres.go

package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type conversationRow struct {
	ID            string         `db:"id"`
	Participants  pq.StringArray `db:"participants"`
	LastMessage   string         `db:"last_message"`
	LastMessageAt *time.Time     `db:"last_message_at"`
	LastSenderID  string         `db:"last_sender_id"`
	UnreadBy      pq.StringArray `db:"unread_by"`
}

func (r conversationRow) toConversation() *Conversation {
	c := &Conversation{
		ID:            r.ID,
		LastMessage:   r.LastMessage,
		LastMessageAt: r.LastMessageAt,
		LastSenderID:  r.LastSenderID,
		UnreadBy:      []string(r.UnreadBy),
	}
	if c.UnreadBy == nil {
		c.UnreadBy = []string{}
	}
	copy(c.Participants[:], r.Participants)
	return c
}

const conversationColumns = `id, participants, last_message, last_message_at, last_sender_id, unread_by`

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// AppendMessage upserts the summary in one statement so concurrent senders
// never drop each other from the unread set.
func (r *postgresRepository) AppendMessage(ctx context.Context, conv *Conversation, msg *DirectMessage) (*Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	recipient := conv.Other(msg.SenderID)
	var row conversationRow
	err = tx.GetContext(ctx, &row, `
		INSERT INTO conversations (id, participants, last_message, last_message_at, last_sender_id, unread_by)
		VALUES ($1, $2, $3, $4, $5, ARRAY[$6::text])
		ON CONFLICT (id) DO UPDATE SET
			last_message = EXCLUDED.last_message,
			last_message_at = EXCLUDED.last_message_at,
			last_sender_id = EXCLUDED.last_sender_id,
			unread_by = CASE
				WHEN $6::text = ANY(conversations.unread_by) THEN conversations.unread_by
				ELSE array_append(conversations.unread_by, $6::text)
			END
		RETURNING `+conversationColumns,
		conv.ID, pq.Array(conv.Participants[:]), msg.Text, msg.CreatedAt, msg.SenderID, recipient,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO direct_messages (id, conversation_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Text, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return row.toConversation(), nil
}

func (r *postgresRepository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return row.toConversation(), nil
}

func (r *postgresRepository) ListConversations(ctx context.Context, userID string) ([]*Conversation, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE $1 = ANY(participants)
		ORDER BY last_message_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	list := make([]*Conversation, len(rows))
	for i, row := range rows {
		list[i] = row.toConversation()
	}
	return list, nil
}

func (r *postgresRepository) MarkOpened(ctx context.Context, id, userID string) (*Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE conversations SET unread_by = array_remove(unread_by, $2::text)
		WHERE id = $1
		RETURNING `+conversationColumns, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark conversation opened: %w", err)
	}
	return row.toConversation(), nil
}

// ListMessages returns the newest limit messages in chronological order
func (r *postgresRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*DirectMessage, error) {
	msgs := []*DirectMessage{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT id, conversation_id, sender_id, text, created_at FROM (
			SELECT id, conversation_id, sender_id, text, created_at FROM direct_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC LIMIT $2
		) m ORDER BY created_at ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

func (r *postgresRepository) AddChatMessage(ctx context.Context, msg *ChatMessage) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO chat_messages (id, sender_id, sender_name, sender_avatar, text, created_at)
		VALUES (:id, :sender_id, :sender_name, :sender_avatar, :text, :created_at)`, msg)
	if err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListChatMessages(ctx context.Context, limit int) ([]*ChatMessage, error) {
	msgs := []*ChatMessage{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT id, sender_id, sender_name, sender_avatar, text, created_at FROM (
			SELECT id, sender_id, sender_name, sender_avatar, text, created_at FROM chat_messages
			ORDER BY created_at DESC LIMIT $1
		) c ORDER BY created_at ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return msgs, nil
}

func (r *postgresRepository) PruneChatMessages(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune chat messages: %w", err)
	}
	return res.RowsAffected()
}

func (r *postgresRepository) SavePushToken(ctx context.Context, token *PushToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO push_tokens (token, user_id, platform, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform`,
		token.Token, token.UserID, token.Platform, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

func (r *postgresRepository) PushTokens(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, `SELECT token FROM push_tokens WHERE user_id = $1 ORDER BY token`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	return tokens, nil
}

func (r *postgresRepository) DeletePushToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM direct_messages`,
		`DELETE FROM conversations`,
		`DELETE FROM chat_messages`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset messaging data: %w", err)
		}
	}
	return tx.Commit()
}
