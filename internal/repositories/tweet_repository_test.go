package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/tweetapp-be/internal/database"
	"github.com/isdelr/tweetapp-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "tweets.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTweet(t *testing.T, repo *TweetRepository, author, msg string, at time.Time) models.Tweet {
	t.Helper()
	tw, err := repo.Insert(context.Background(), models.Tweet{Username: author, Message: msg, CreatedAt: at})
	require.NoError(t, err)
	return tw
}

func TestTweetRepository_InsertAndFind(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	created := insertTweet(t, repo, "alice", "hello", at)
	assert.NotEmpty(t, created.ID)
	insertTweet(t, repo, "bob", "hey", at.Add(time.Minute))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, 0, got.Likes)
	assert.Empty(t, got.LikedBy)
	assert.NotNil(t, got.Replies)
	assert.True(t, at.Equal(got.CreatedAt), "created_at round trip: %v", got.CreatedAt)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.FindByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	none, err := repo.FindByAuthor(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTweetRepository_FindByID_NotFound(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTweetRepository_UpdateMessage(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	tw := insertTweet(t, repo, "alice", "hello", time.Now())

	updated, err := repo.UpdateMessage(ctx, tw.ID, "alice", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)
	assert.Equal(t, tw.ID, updated.ID)

	_, err = repo.UpdateMessage(ctx, tw.ID, "mallory", "hijacked")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Message)
}

func TestTweetRepository_Delete_RequiresAuthor(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	tw := insertTweet(t, repo, "alice", "hello", time.Now())

	n, err := repo.Delete(ctx, tw.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)

	n, err = repo.Delete(ctx, tw.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, tw.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTweetRepository_ToggleLike(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	tw := insertTweet(t, repo, "alice", "hello", time.Now())

	likes, err := repo.ToggleLike(ctx, tw.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	likes, err = repo.ToggleLike(ctx, tw.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	got, err := repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, got.LikedBy)
	assert.Equal(t, len(got.LikedBy), got.Likes)

	likes, err = repo.ToggleLike(ctx, tw.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	got, err = repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, got.LikedBy)
	assert.Equal(t, 1, got.Likes)
}

func TestTweetRepository_ToggleLike_NotFound(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	_, err := repo.ToggleLike(context.Background(), "missing", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTweetRepository_ToggleLike_ConcurrentLikers(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	tw := insertTweet(t, repo, "alice", "popular", time.Now())

	const likers = 25
	var wg sync.WaitGroup
	errs := make(chan error, likers)
	for i := 0; i < likers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.ToggleLike(ctx, tw.ID, fmt.Sprintf("user-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, likers, got.Likes)
	assert.Len(t, got.LikedBy, likers)
}

func TestTweetRepository_AppendReply_KeepsOrder(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	ctx := context.Background()
	tw := insertTweet(t, repo, "alice", "hello", time.Now())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, msg := range []string{"first", "second", "third"} {
		n, err := repo.AppendReply(ctx, tw.ID, models.ReplyTweet{
			Username:  "bob",
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	got, err := repo.FindByID(ctx, tw.ID)
	require.NoError(t, err)
	require.Len(t, got.Replies, 3)
	assert.Equal(t, "first", got.Replies[0].Message)
	assert.Equal(t, "second", got.Replies[1].Message)
	assert.Equal(t, "third", got.Replies[2].Message)
	assert.Equal(t, "bob", got.Replies[2].Username)
	assert.True(t, base.Add(2*time.Second).Equal(got.Replies[2].CreatedAt))
}

func TestTweetRepository_AppendReply_MissingTweet(t *testing.T) {
	repo := NewTweetRepository(setupTestDB(t))
	n, err := repo.AppendReply(context.Background(), "missing", models.ReplyTweet{Username: "bob", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// --- sqlmock: failure propagation ---

func newRepoWithMock(t *testing.T) (*TweetRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTweetRepository(db), mock
}

func TestTweetRepository_FindAll_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT id, username, tweet_message, created_at, likes, liked_by_json, replies_json FROM tweets$`).
		WillReturnError(errors.New("db down"))

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTweetRepository_FindByAuthor_ScansRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows(tweetColumns).
		AddRow("t1", "alice", "hi", at, 1, `["bob"]`, `[]`)
	mock.ExpectQuery(`FROM tweets WHERE username = \?`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.FindByAuthor(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"bob"}, got[0].LikedBy)
	assert.Equal(t, 1, got[0].Likes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTweetRepository_ToggleLike_UpdateFailureRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT liked_by_json FROM tweets WHERE id = \?`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"liked_by_json"}).AddRow(`[]`))
	mock.ExpectExec(`UPDATE tweets SET likes = \?, liked_by_json = \? WHERE id = \?`).
		WithArgs(1, `["bob"]`, "t1").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.ToggleLike(context.Background(), "t1", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTweetRepository_AppendReply_UsesSingleStatement(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`UPDATE tweets SET replies_json = json_insert\(replies_json, '\$\[#\]', json\(\?\)\) WHERE id = \?`).
		WithArgs(sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.AppendReply(context.Background(), "t1", models.ReplyTweet{Username: "bob", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
