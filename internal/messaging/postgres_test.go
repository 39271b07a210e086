package messaging

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(sqlx.NewDb(db, "postgres")), mock
}

var convColumns = []string{"id", "participants", "last_message", "last_message_at", "last_sender_id", "unread_by"}

func TestPostgresRepository_AppendMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	conv := newConversation("u1", "u2")
	msg := &DirectMessage{ID: "m1", ConversationID: conv.ID, SenderID: "u1", Text: "hello", CreatedAt: now}
	conv.MarkSent("u1", "hello", now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE`)).
		WithArgs("u1_u2", sqlmock.AnyArg(), "hello", now, "u1", "u2").
		WillReturnRows(sqlmock.NewRows(convColumns).AddRow("u1_u2", "{u1,u2}", "hello", now, "u1", "{u2}"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO direct_messages`)).
		WithArgs("m1", "u1_u2", "u1", "hello", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored, err := repo.AppendMessage(context.Background(), conv, msg)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"u1", "u2"}, stored.Participants)
	assert.Equal(t, []string{"u2"}, stored.UnreadBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AppendMessageRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	conv := newConversation("u1", "u2")
	msg := &DirectMessage{ID: "m1", ConversationID: conv.ID, SenderID: "u1", Text: "hello", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO conversations`)).
		WillReturnRows(sqlmock.NewRows(convColumns).AddRow("u1_u2", "{u1,u2}", "hello", now, "u1", "{u2}"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO direct_messages`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.AppendMessage(context.Background(), conv, msg)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkOpened(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`array_remove(unread_by, $2::text)`)).
		WithArgs("u1_u2", "u2").
		WillReturnRows(sqlmock.NewRows(convColumns).AddRow("u1_u2", "{u1,u2}", "hello", time.Now(), "u1", "{}"))

	conv, err := repo.MarkOpened(context.Background(), "u1_u2", "u2")
	require.NoError(t, err)
	assert.Empty(t, conv.UnreadBy)
	assert.True(t, conv.SeenBy("u1"))
}

func TestPostgresRepository_GetConversationNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM conversations WHERE id = $1`)).
		WithArgs("u1_u9").
		WillReturnRows(sqlmock.NewRows(convColumns))

	_, err := repo.GetConversation(context.Background(), "u1_u9")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestPostgresRepository_ListConversations(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE $1 = ANY(participants)`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(convColumns).
			AddRow("u1_u3", "{u1,u3}", "son", now, "u3", "{u1}").
			AddRow("u1_u2", "{u1,u2}", "ilk", now.Add(-time.Hour), "u1", "{}"))

	list, err := repo.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].UnreadFor("u1"))
	assert.Equal(t, "u3", list[0].Other("u1"))
}

func TestPostgresRepository_PruneChatMessages(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM chat_messages WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.PruneChatMessages(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
