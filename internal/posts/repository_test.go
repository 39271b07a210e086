package posts

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

var postColumns = []string{"id", "author_id", "author_name", "author_avatar", "caption", "hashtags", "media", "like_count", "created_at", "liked"}

func TestPostgresRepository_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = $2`)).
		WithArgs("u2", "42").
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow(
			"42", "u1", "Elif", "", "İlk dans", "{#düğün,#dans}",
			[]byte(`[{"url":"https://cdn/a.jpg","type":"image"},{"url":"https://cdn/b.mp4","type":"video"}]`),
			3, now, true,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM post_comments`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "author_id", "author_name", "text", "created_at"}).
			AddRow("c1", "42", "u2", "Mert", "Çok güzel", now))

	post, err := repo.Get(context.Background(), "42", "u2")
	require.NoError(t, err)

	assert.Equal(t, "Elif", post.Author.Name)
	assert.Equal(t, []string{"#düğün", "#dans"}, post.Hashtags)
	require.Len(t, post.Media, 2)
	assert.Equal(t, "video", post.Media[1].Type)
	assert.True(t, post.Liked)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "Çok güzel", post.Comments[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = $2`)).
		WillReturnRows(sqlmock.NewRows(postColumns))

	_, err := repo.Get(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostgresRepository_SetLike(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_likes`)).
		WithArgs("42", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET like_count`)).
		WithArgs(1, "42").
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(4))
	mock.ExpectCommit()

	count, err := repo.SetLike(context.Background(), "42", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UnlikeWithoutExistingLikeKeepsCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_likes`)).
		WithArgs("42", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET like_count`)).
		WithArgs(0, "42").
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(3))
	mock.ExpectCommit()

	count, err := repo.SetLike(context.Background(), "42", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostgresRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "42"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "42"), ErrPostNotFound)
}

func TestPostgresRepository_Likers(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM post_likes WHERE post_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "user_id"}).
			AddRow("42", "u1").AddRow("42", "u2").AddRow("7", "u1"))

	likers, err := repo.Likers(context.Background(), []string{"42", "7"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, likers["42"])
	assert.Equal(t, []string{"u1"}, likers["7"])
}
