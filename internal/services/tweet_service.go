package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/metrics"
	"github.com/isdelr/tweetapp-be/internal/models"
	"github.com/isdelr/tweetapp-be/internal/repositories"
	"github.com/rs/zerolog/log"
)

// Feed actions published after a successful mutation.
const (
	ActionTweetCreated = "tweet_created"
	ActionTweetUpdated = "tweet_updated"
	ActionTweetDeleted = "tweet_deleted"
	ActionTweetLiked   = "tweet_liked"
	ActionTweetReplied = "tweet_replied"
)

// Publisher broadcasts feed messages to subscribers of a topic.
type Publisher interface {
	Publish(topic, action string, payload interface{})
}

// TweetServiceProvider defines the interface for tweet services.
type TweetServiceProvider interface {
	ListAll(ctx context.Context) (Result[[]models.Tweet], error)
	ListForUser(ctx context.Context, username string) (Result[[]models.Tweet], error)
	Create(ctx context.Context, username string, payload models.PostTweetPayload) (Result[models.Tweet], error)
	Update(ctx context.Context, username, id, message string) (Result[models.Tweet], error)
	Delete(ctx context.Context, username, id string) (Result[bool], error)
	LikeOrUnlike(ctx context.Context, username, id string) (Result[int], error)
	Reply(ctx context.Context, username, id, message string) (Result[bool], error)
}

// TweetService authorizes and applies tweet operations on behalf of the caller.
type TweetService struct {
	repo      repositories.TweetRepositoryProvider
	resolver  auth.IdentityResolver
	events    EventServiceProvider
	publisher Publisher
	now       func() time.Time
}

// NewTweetService creates a new TweetService. events and publisher may be nil.
func NewTweetService(repo repositories.TweetRepositoryProvider, resolver auth.IdentityResolver, events EventServiceProvider, publisher Publisher) *TweetService {
	return &TweetService{
		repo:      repo,
		resolver:  resolver,
		events:    events,
		publisher: publisher,
		now:       time.Now,
	}
}

// authorize resolves the caller and reports whether it is username.
func (s *TweetService) authorize(ctx context.Context, username string) (bool, error) {
	caller, err := s.resolver.ResolveCaller(ctx)
	if err != nil {
		return false, err
	}
	return string(caller) == username, nil
}

// ListAll returns every tweet, newest first.
func (s *TweetService) ListAll(ctx context.Context) (Result[[]models.Tweet], error) {
	if _, err := s.resolver.ResolveCaller(ctx); err != nil {
		return withStatus([]models.Tweet{}, StatusDenied), err
	}

	tweets, err := s.repo.FindAll(ctx)
	if err != nil {
		s.observe("list_all", StatusOK, err)
		return withStatus([]models.Tweet{}, StatusOK), fmt.Errorf("list tweets: %w", err)
	}
	sortNewestFirst(tweets)
	s.observe("list_all", StatusOK, nil)
	return ok(tweets), nil
}

// ListForUser returns the tweets authored by username, newest first.
func (s *TweetService) ListForUser(ctx context.Context, username string) (Result[[]models.Tweet], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus([]models.Tweet{}, StatusDenied), err
	}
	if !allowed {
		s.observe("list_user", StatusDenied, nil)
		return withStatus([]models.Tweet{}, StatusDenied), nil
	}

	tweets, err := s.repo.FindByAuthor(ctx, username)
	if err != nil {
		s.observe("list_user", StatusOK, err)
		return withStatus([]models.Tweet{}, StatusOK), fmt.Errorf("list tweets of %s: %w", username, err)
	}
	sortNewestFirst(tweets)
	s.observe("list_user", StatusOK, nil)
	return ok(tweets), nil
}

// Create posts a new tweet authored by username. The author named in the
// payload is ignored.
func (s *TweetService) Create(ctx context.Context, username string, payload models.PostTweetPayload) (Result[models.Tweet], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus(models.Tweet{}, StatusDenied), err
	}
	if !allowed {
		s.observe("create", StatusDenied, nil)
		return withStatus(models.Tweet{}, StatusDenied), nil
	}
	if !payload.Validate() {
		s.observe("create", StatusInvalid, nil)
		return withStatus(models.Tweet{}, StatusInvalid), nil
	}

	tweet, err := s.repo.Insert(ctx, models.Tweet{
		Username:  username,
		Message:   payload.Message,
		CreatedAt: s.now(),
		Likes:     0,
		LikedBy:   []string{},
		Replies:   []models.ReplyTweet{},
	})
	if err != nil {
		s.observe("create", StatusOK, err)
		return withStatus(models.Tweet{}, StatusOK), fmt.Errorf("create tweet: %w", err)
	}

	s.observe("create", StatusOK, nil)
	s.record(ctx, "tweet.create", username, tweet.ID, fmt.Sprintf("%s posted a tweet", username))
	s.publish(username, ActionTweetCreated, tweet)
	return ok(tweet), nil
}

// Update replaces the message of a tweet that username authored.
func (s *TweetService) Update(ctx context.Context, username, id, message string) (Result[models.Tweet], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus(models.Tweet{}, StatusDenied), err
	}
	if !allowed {
		s.observe("update", StatusDenied, nil)
		return withStatus(models.Tweet{}, StatusDenied), nil
	}
	if strings.TrimSpace(message) == "" {
		s.observe("update", StatusInvalid, nil)
		return withStatus(models.Tweet{}, StatusInvalid), nil
	}

	tweet, err := s.repo.UpdateMessage(ctx, id, username, message)
	if errors.Is(err, repositories.ErrNotFound) {
		s.observe("update", StatusNotFound, nil)
		return withStatus(models.Tweet{}, StatusNotFound), nil
	}
	if err != nil {
		s.observe("update", StatusOK, err)
		return withStatus(models.Tweet{}, StatusOK), fmt.Errorf("update tweet %s: %w", id, err)
	}

	s.observe("update", StatusOK, nil)
	s.record(ctx, "tweet.update", username, tweet.ID, fmt.Sprintf("%s edited a tweet", username))
	s.publish(tweet.Username, ActionTweetUpdated, tweet)
	return ok(tweet), nil
}

// Delete removes a tweet that username authored.
func (s *TweetService) Delete(ctx context.Context, username, id string) (Result[bool], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus(false, StatusDenied), err
	}
	if !allowed {
		s.observe("delete", StatusDenied, nil)
		return withStatus(false, StatusDenied), nil
	}

	n, err := s.repo.Delete(ctx, id, username)
	if err != nil {
		s.observe("delete", StatusOK, err)
		return withStatus(false, StatusOK), fmt.Errorf("delete tweet %s: %w", id, err)
	}
	if n == 0 {
		s.observe("delete", StatusNotFound, nil)
		return withStatus(false, StatusNotFound), nil
	}

	s.observe("delete", StatusOK, nil)
	s.record(ctx, "tweet.delete", username, id, fmt.Sprintf("%s deleted a tweet", username))
	s.publish(username, ActionTweetDeleted, map[string]string{"id": id, "username": username})
	return ok(true), nil
}

// LikeOrUnlike toggles username's like on the tweet and returns the new like count.
func (s *TweetService) LikeOrUnlike(ctx context.Context, username, id string) (Result[int], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus(0, StatusDenied), err
	}
	if !allowed {
		s.observe("like", StatusDenied, nil)
		return withStatus(0, StatusDenied), nil
	}

	likes, err := s.repo.ToggleLike(ctx, id, username)
	if errors.Is(err, repositories.ErrNotFound) {
		s.observe("like", StatusNotFound, nil)
		return withStatus(0, StatusNotFound), nil
	}
	if err != nil {
		s.observe("like", StatusOK, err)
		return withStatus(0, StatusOK), fmt.Errorf("toggle like on tweet %s: %w", id, err)
	}

	s.observe("like", StatusOK, nil)
	s.record(ctx, "tweet.like", username, id, fmt.Sprintf("%s toggled a like", username))
	if tweet, err := s.repo.FindByID(ctx, id); err == nil {
		s.publish(tweet.Username, ActionTweetLiked, map[string]interface{}{"id": id, "likes": likes, "by": username})
	}
	return ok(likes), nil
}

// Reply appends a reply from username to the tweet's reply thread.
func (s *TweetService) Reply(ctx context.Context, username, id, message string) (Result[bool], error) {
	allowed, err := s.authorize(ctx, username)
	if err != nil {
		return withStatus(false, StatusDenied), err
	}
	if !allowed {
		s.observe("reply", StatusDenied, nil)
		return withStatus(false, StatusDenied), nil
	}
	if strings.TrimSpace(message) == "" {
		s.observe("reply", StatusInvalid, nil)
		return withStatus(false, StatusInvalid), nil
	}

	reply := models.ReplyTweet{Username: username, Message: message, CreatedAt: s.now()}
	n, err := s.repo.AppendReply(ctx, id, reply)
	if err != nil {
		s.observe("reply", StatusOK, err)
		return withStatus(false, StatusOK), fmt.Errorf("reply to tweet %s: %w", id, err)
	}
	if n != 1 {
		s.observe("reply", StatusNotFound, nil)
		return withStatus(false, StatusNotFound), nil
	}

	s.observe("reply", StatusOK, nil)
	s.record(ctx, "tweet.reply", username, id, fmt.Sprintf("%s replied to a tweet", username))
	if tweet, err := s.repo.FindByID(ctx, id); err == nil {
		s.publish(tweet.Username, ActionTweetReplied, map[string]interface{}{"id": id, "reply": reply})
	}
	return ok(true), nil
}

func (s *TweetService) observe(operation string, status Status, err error) {
	outcome := status.String()
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveTweetOperation(operation, outcome)
}

// record writes an audit event. The mutation has already been applied, so a
// failure here is logged and not returned.
func (s *TweetService) record(ctx context.Context, eventType, username, tweetID, message string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(ctx, eventType, "info", message, username, &tweetID); err != nil {
		log.Error().Err(err).Str("type", eventType).Str("tweetID", tweetID).Msg("Failed to record tweet event")
	}
}

func (s *TweetService) publish(topic, action string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(topic, action, payload)
}

func sortNewestFirst(tweets []models.Tweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		if !tweets[i].CreatedAt.Equal(tweets[j].CreatedAt) {
			return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
		}
		return tweets[i].ID < tweets[j].ID
	})
}
