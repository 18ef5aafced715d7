package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/models"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TweetHandler handles HTTP requests related to tweets.
type TweetHandler struct {
	service services.TweetServiceProvider
}

// NewTweetHandler creates a new TweetHandler.
func NewTweetHandler(service services.TweetServiceProvider) *TweetHandler {
	return &TweetHandler{service: service}
}

// GetAll handles the request to list every tweet.
func (h *TweetHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to retrieve tweets")
		return
	}
	writeResult(w, res.Status, http.StatusOK, res.Value)
}

// GetForUser handles the request to list the tweets of the user in the path.
func (h *TweetHandler) GetForUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	res, err := h.service.ListForUser(r.Context(), username)
	if err != nil {
		writeServiceError(w, err, "Failed to retrieve tweets")
		return
	}
	writeResult(w, res.Status, http.StatusOK, res.Value)
}

// Create handles the request to post a new tweet.
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var payload models.PostTweetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Create(r.Context(), username, payload)
	if err != nil {
		writeServiceError(w, err, "Failed to create tweet")
		return
	}
	writeResult(w, res.Status, http.StatusCreated, res.Value)
}

// Update handles the request to edit a tweet's message.
func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")
	message, err := decodeMessage(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Update(r.Context(), username, id, message)
	if err != nil {
		writeServiceError(w, err, "Failed to update tweet")
		return
	}
	writeResult(w, res.Status, http.StatusOK, res.Value)
}

// Delete handles the request to remove a tweet.
func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")
	res, err := h.service.Delete(r.Context(), username, id)
	if err != nil {
		writeServiceError(w, err, "Failed to delete tweet")
		return
	}
	writeResult(w, res.Status, http.StatusOK, map[string]bool{"deleted": res.Value})
}

// Like handles the request to like or unlike a tweet.
func (h *TweetHandler) Like(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")
	res, err := h.service.LikeOrUnlike(r.Context(), username, id)
	if err != nil {
		writeServiceError(w, err, "Failed to like tweet")
		return
	}
	writeResult(w, res.Status, http.StatusOK, map[string]int{"likes": res.Value})
}

// Reply handles the request to reply to a tweet.
func (h *TweetHandler) Reply(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")
	message, err := decodeMessage(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Reply(r.Context(), username, id, message)
	if err != nil {
		writeServiceError(w, err, "Failed to reply to tweet")
		return
	}
	writeResult(w, res.Status, http.StatusOK, map[string]bool{"replied": res.Value})
}

// decodeMessage accepts either a bare JSON string or a {"message": "..."} object.
func decodeMessage(body io.Reader) (string, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", err
	}

	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return message, nil
	}

	var payload models.MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", err
	}
	return payload.Message, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeResult maps a service status onto the HTTP response. okStatus is used
// when the operation was applied.
func writeResult(w http.ResponseWriter, status services.Status, okStatus int, v interface{}) {
	switch status {
	case services.StatusOK:
		writeJSON(w, okStatus, v)
	case services.StatusDenied:
		http.Error(w, "Forbidden", http.StatusForbidden)
	case services.StatusNotFound:
		http.Error(w, "Tweet not found", http.StatusNotFound)
	case services.StatusInvalid:
		http.Error(w, "Message must not be empty", http.StatusBadRequest)
	default:
		http.Error(w, "Unexpected result", http.StatusInternalServerError)
	}
}

func writeServiceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
