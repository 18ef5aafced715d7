package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service      services.UserServiceProvider
	tokens       *auth.TokenManager
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. secureCookie sets the Secure flag
// on the session cookie and should be true in production.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.TokenManager, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, secureCookie: secureCookie}
}

// Usernames that collide with fixed routes under the tweets base path.
var reservedUsernames = map[string]bool{
	"all": true, "events": true, "login": true, "register": true, "user": true, "users": true, "ws": true,
}

// AuthPayload defines the structure for login requests. Username may also be the account email.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordPayload defines the structure for password change requests.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Username == "" || payload.Email == "" || payload.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}
	if reservedUsernames[strings.ToLower(payload.Username)] || strings.ContainsAny(payload.Username, "/?#") {
		http.Error(w, "Username is not allowed", http.StatusBadRequest)
		return
	}

	user, err := h.service.CreateUser(r.Context(), payload.Username, payload.Email, payload.Password)
	if errors.Is(err, services.ErrUserExists) {
		http.Error(w, "Username or email already taken", http.StatusConflict)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to authenticate user")
		http.Error(w, "Failed to authenticate user", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Username)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// GetAll handles the request to list all users.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve users")
		http.Error(w, "Failed to retrieve users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Search handles the request to find users by username prefix.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "username")
	users, err := h.service.SearchUsers(r.Context(), prefix)
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("Failed to search users")
		http.Error(w, "Failed to search users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangePassword handles the password change of the user in the path. Only
// that user may change it.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	caller, err := h.service.ResolveCaller(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to resolve caller")
		return
	}
	if string(caller) != username {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var payload ChangePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.NewPassword == "" {
		http.Error(w, "New password is required", http.StatusBadRequest)
		return
	}

	err = h.service.UpdatePassword(r.Context(), username, payload.CurrentPassword, payload.NewPassword)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		http.Error(w, "Current password is incorrect", http.StatusBadRequest)
		return
	case errors.Is(err, services.ErrUserNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("username", username).Msg("Failed to change password")
		http.Error(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
