package models

import "time"

// Event represents an audited action in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "tweet.create", "tweet.like"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	Username  string    `json:"username"`
	TweetID   *string   `json:"tweetId,omitempty"` // Nullable for account-level events
	CreatedAt time.Time `json:"createdAt"`
}
