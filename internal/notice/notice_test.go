package notice

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/internal/store"
)

var noticeCols = []string{"id", "title", "content", "featured_image", "author_id", "published_at", "updated", "created"}

func TestListBuildsQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM notices WHERE published_at IS NOT NULL AND (title ILIKE $1 OR content ILIKE $1) ORDER BY published_at DESC NULLS LAST, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs(`%50\%%`, 5, 10).
		WillReturnRows(sqlmock.NewRows(noticeCols).
			AddRow(2, "Fee 50%", "c", "", 1, now, now, now).
			AddRow(1, "Draft", "c", "", 1, nil, now, now))

	repo := NewPostgresRepository(db)
	got, err := repo.List(context.Background(), ListQuery{Search: "50%", PublishedOnly: true, Limit: 5, Offset: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotNil(t, got[0].PublishedAt)
	assert.Nil(t, got[1].PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithoutFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + columns + ` FROM notices ORDER BY`)).
		WillReturnRows(sqlmock.NewRows(noticeCols))

	got, err := NewPostgresRepository(db).List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND published_at IS NOT NULL`)).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	_, err = NewPostgresRepository(db).Get(context.Background(), 3, true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateUpdateDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	repo := NewPostgresRepository(db)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO notices").
		WithArgs("T", "C", "", int64(1), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated", "created"}).AddRow(8, now, now))
	n := &Notice{Title: "T", Content: "C", AuthorID: 1, PublishedAt: &now}
	require.NoError(t, repo.Create(ctx, n))
	assert.Equal(t, int64(8), n.ID)

	mock.ExpectQuery("UPDATE notices").
		WithArgs(int64(8), "T2", "C", "").
		WillReturnRows(sqlmock.NewRows([]string{"updated"}).AddRow(now))
	n.Title = "T2"
	require.NoError(t, repo.Update(ctx, n))

	mock.ExpectExec("DELETE FROM notices").WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, 8), store.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
