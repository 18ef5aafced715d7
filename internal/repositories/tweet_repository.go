package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/isdelr/tweetapp-be/internal/models"
)

// ErrNotFound is returned when no tweet matches the requested filter.
var ErrNotFound = errors.New("tweet not found")

const tweetsTable = "tweets"

var tweetColumns = []string{
	"id", "username", "tweet_message", "created_at", "likes", "liked_by_json", "replies_json",
}

// TweetRepositoryProvider defines the storage operations the tweet service relies on.
type TweetRepositoryProvider interface {
	FindAll(ctx context.Context) ([]models.Tweet, error)
	FindByAuthor(ctx context.Context, username string) ([]models.Tweet, error)
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	Insert(ctx context.Context, tweet models.Tweet) (models.Tweet, error)
	UpdateMessage(ctx context.Context, id, author, message string) (models.Tweet, error)
	Delete(ctx context.Context, id, author string) (int64, error)
	ToggleLike(ctx context.Context, id, username string) (int, error)
	AppendReply(ctx context.Context, id string, reply models.ReplyTweet) (int64, error)
}

// TweetRepository translates tweet operations into SQL against the tweets table.
type TweetRepository struct {
	db *sql.DB
}

// NewTweetRepository creates a new TweetRepository.
func NewTweetRepository(db *sql.DB) *TweetRepository {
	return &TweetRepository{db: db}
}

// scanTweet is a helper to scan a tweet from a row or rows object.
func scanTweet(scanner interface{ Scan(...interface{}) error }) (models.Tweet, error) {
	var t models.Tweet
	err := scanner.Scan(&t.ID, &t.Username, &t.Message, &t.CreatedAt, &t.Likes, &t.LikedByJSON, &t.RepliesJSON)
	if err != nil {
		return t, err
	}
	if err := t.PrepareForAPI(); err != nil {
		return t, fmt.Errorf("decode tweet %s: %w", t.ID, err)
	}
	return t, nil
}

func (r *TweetRepository) find(ctx context.Context, where sq.Sqlizer) ([]models.Tweet, error) {
	qb := sq.Select(tweetColumns...).From(tweetsTable)
	if where != nil {
		qb = qb.Where(where)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tweets := []models.Tweet{}
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tweets, nil
}

// FindAll returns every stored tweet in storage order.
func (r *TweetRepository) FindAll(ctx context.Context) ([]models.Tweet, error) {
	return r.find(ctx, nil)
}

// FindByAuthor returns the tweets posted by username.
func (r *TweetRepository) FindByAuthor(ctx context.Context, username string) ([]models.Tweet, error) {
	return r.find(ctx, sq.Eq{"username": username})
}

// FindByID returns a single tweet or ErrNotFound.
func (r *TweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	query, args, err := sq.Select(tweetColumns...).From(tweetsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Tweet{}, err
	}

	t, err := scanTweet(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Insert stores a new tweet and returns it with its assigned ID.
func (r *TweetRepository) Insert(ctx context.Context, tweet models.Tweet) (models.Tweet, error) {
	tweet.ID = uuid.New().String()
	tweet.CreatedAt = tweet.CreatedAt.UTC()
	tweet.PrepareForSave()

	query, args, err := sq.Insert(tweetsTable).Columns(tweetColumns...).
		Values(tweet.ID, tweet.Username, tweet.Message, tweet.CreatedAt, tweet.Likes, tweet.LikedByJSON, tweet.RepliesJSON).
		ToSql()
	if err != nil {
		return models.Tweet{}, err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return models.Tweet{}, fmt.Errorf("db error: %w", err)
	}
	return tweet, nil
}

// UpdateMessage replaces the message of the tweet matching both id and author.
func (r *TweetRepository) UpdateMessage(ctx context.Context, id, author, message string) (models.Tweet, error) {
	query, args, err := sq.Update(tweetsTable).
		Set("tweet_message", message).
		Where(sq.Eq{"id": id, "username": author}).
		ToSql()
	if err != nil {
		return models.Tweet{}, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Tweet{}, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return models.Tweet{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete removes the tweet matching both id and author and reports how many rows went away.
func (r *TweetRepository) Delete(ctx context.Context, id, author string) (int64, error) {
	query, args, err := sq.Delete(tweetsTable).Where(sq.Eq{"id": id, "username": author}).ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

// ToggleLike adds username to the tweet's liked-by set, or removes it when already
// present, and returns the resulting like count.
//
// The read and the write share one transaction and the set and count are written
// by a single UPDATE, so likes always equals the size of liked_by_json.
func (r *TweetRepository) ToggleLike(ctx context.Context, id, username string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Select("liked_by_json").From(tweetsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, err
	}

	var likedByJSON string
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&likedByJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	likedBy := []string{}
	if likedByJSON != "" {
		if err := json.Unmarshal([]byte(likedByJSON), &likedBy); err != nil {
			return 0, fmt.Errorf("decode liked_by for tweet %s: %w", id, err)
		}
	}

	if i := slices.Index(likedBy, username); i >= 0 {
		likedBy = slices.Delete(likedBy, i, i+1)
	} else {
		likedBy = append(likedBy, username)
	}
	likes := len(likedBy)
	likedByBytes, _ := json.Marshal(likedBy)

	query, args, err = sq.Update(tweetsTable).
		Set("likes", likes).
		Set("liked_by_json", string(likedByBytes)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return likes, nil
}

// AppendReply pushes reply onto the end of the tweet's reply sequence in a single
// statement and reports how many tweets were modified.
func (r *TweetRepository) AppendReply(ctx context.Context, id string, reply models.ReplyTweet) (int64, error) {
	reply.CreatedAt = reply.CreatedAt.UTC()
	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return 0, err
	}

	query, args, err := sq.Update(tweetsTable).
		Set("replies_json", sq.Expr("json_insert(replies_json, '$[#]', json(?))", string(replyBytes))).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
