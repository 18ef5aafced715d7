package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Tweet represents a short message posted by a user.
type Tweet struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Message   string       `json:"tweetMessage"`
	CreatedAt time.Time    `json:"createdAt"`
	Likes     int          `json:"likes"`
	LikedBy   []string     `json:"likedBy"`
	Replies   []ReplyTweet `json:"replies"`

	// JSON string fields for DB storage
	LikedByJSON string `json:"-"`
	RepliesJSON string `json:"-"`
}

// ReplyTweet is a reply nested in a tweet's reply sequence. It has no identity of its own.
type ReplyTweet struct {
	Username  string    `json:"username"`
	Message   string    `json:"replyMessage"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostTweetPayload is the body accepted when posting a new tweet.
// Username is accepted for compatibility with older clients but never trusted.
type PostTweetPayload struct {
	Message  string `json:"tweetMessage"`
	Username string `json:"username,omitempty"`
}

// Validate checks that the required fields are present.
func (p PostTweetPayload) Validate() bool {
	return strings.TrimSpace(p.Message) != ""
}

// MessagePayload carries a single message, used for updates and replies.
type MessagePayload struct {
	Message string `json:"message"`
}

// PrepareForSave marshals the slice fields into their respective JSON strings for DB storage.
func (t *Tweet) PrepareForSave() {
	if t.LikedBy == nil {
		t.LikedBy = []string{}
	}
	if t.Replies == nil {
		t.Replies = []ReplyTweet{}
	}

	likedByBytes, _ := json.Marshal(t.LikedBy)
	t.LikedByJSON = string(likedByBytes)

	repliesBytes, _ := json.Marshal(t.Replies)
	t.RepliesJSON = string(repliesBytes)
}

// PrepareForAPI unmarshals the JSON string fields into their slice fields for API responses.
// Slices are never nil so that empty collections serialise as [].
func (t *Tweet) PrepareForAPI() error {
	t.LikedBy = []string{}
	t.Replies = []ReplyTweet{}
	if t.LikedByJSON != "" {
		if err := json.Unmarshal([]byte(t.LikedByJSON), &t.LikedBy); err != nil {
			return err
		}
	}
	if t.RepliesJSON != "" {
		if err := json.Unmarshal([]byte(t.RepliesJSON), &t.Replies); err != nil {
			return err
		}
	}
	return nil
}

// IsLikedBy reports whether username is in the liked-by set.
func (t *Tweet) IsLikedBy(username string) bool {
	for _, u := range t.LikedBy {
		if u == username {
			return true
		}
	}
	return false
}
