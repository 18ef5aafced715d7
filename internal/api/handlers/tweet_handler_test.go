package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/models"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTweetService struct {
	status  services.Status
	err     error
	message string
	payload models.PostTweetPayload
}

func (s *stubTweetService) ListAll(context.Context) (services.Result[[]models.Tweet], error) {
	return services.Result[[]models.Tweet]{Value: []models.Tweet{{ID: "t1"}}, Status: s.status}, s.err
}

func (s *stubTweetService) ListForUser(context.Context, string) (services.Result[[]models.Tweet], error) {
	return services.Result[[]models.Tweet]{Value: []models.Tweet{}, Status: s.status}, s.err
}

func (s *stubTweetService) Create(_ context.Context, username string, p models.PostTweetPayload) (services.Result[models.Tweet], error) {
	s.payload = p
	return services.Result[models.Tweet]{Value: models.Tweet{ID: "new", Username: username, Message: p.Message}, Status: s.status}, s.err
}

func (s *stubTweetService) Update(_ context.Context, _, id, message string) (services.Result[models.Tweet], error) {
	s.message = message
	return services.Result[models.Tweet]{Value: models.Tweet{ID: id, Message: message}, Status: s.status}, s.err
}

func (s *stubTweetService) Delete(context.Context, string, string) (services.Result[bool], error) {
	return services.Result[bool]{Value: s.status == services.StatusOK, Status: s.status}, s.err
}

func (s *stubTweetService) LikeOrUnlike(context.Context, string, string) (services.Result[int], error) {
	return services.Result[int]{Value: 7, Status: s.status}, s.err
}

func (s *stubTweetService) Reply(_ context.Context, _, _, message string) (services.Result[bool], error) {
	s.message = message
	return services.Result[bool]{Value: s.status == services.StatusOK, Status: s.status}, s.err
}

func tweetRouter(svc services.TweetServiceProvider) http.Handler {
	h := NewTweetHandler(svc)
	r := chi.NewRouter()
	r.Get("/all", h.GetAll)
	r.Get("/{username}", h.GetForUser)
	r.Post("/{username}/add", h.Create)
	r.Put("/{username}/update/{id}", h.Update)
	r.Delete("/{username}/delete/{id}", h.Delete)
	r.Put("/{username}/like/{id}", h.Like)
	r.Post("/{username}/reply/{id}", h.Reply)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTweetHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status services.Status
		err    error
		want   int
	}{
		{"ok", services.StatusOK, nil, http.StatusOK},
		{"denied", services.StatusDenied, nil, http.StatusForbidden},
		{"not found", services.StatusNotFound, nil, http.StatusNotFound},
		{"invalid", services.StatusInvalid, nil, http.StatusBadRequest},
		{"unauthenticated", services.StatusOK, auth.ErrUnauthenticated, http.StatusUnauthorized},
		{"storage failure", services.StatusOK, assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := tweetRouter(&stubTweetService{status: tc.status, err: tc.err})
			assert.Equal(t, tc.want, do(t, router, http.MethodPut, "/alice/like/t1", "").Code)
			assert.Equal(t, tc.want, do(t, router, http.MethodDelete, "/alice/delete/t1", "").Code)
			assert.Equal(t, tc.want, do(t, router, http.MethodGet, "/alice", "").Code)
		})
	}
}

func TestTweetHandler_Create(t *testing.T) {
	svc := &stubTweetService{status: services.StatusOK}
	router := tweetRouter(svc)

	rec := do(t, router, http.MethodPost, "/alice/add", `{"tweetMessage":"hello","username":"mallory"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var tweet models.Tweet
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tweet))
	assert.Equal(t, "alice", tweet.Username)
	assert.Equal(t, "hello", tweet.Message)
	assert.Equal(t, "hello", svc.payload.Message)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/alice/add", `{`).Code)
}

func TestTweetHandler_MessageBodies(t *testing.T) {
	svc := &stubTweetService{status: services.StatusOK}
	router := tweetRouter(svc)

	rec := do(t, router, http.MethodPut, "/alice/update/t1", `"bare string"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bare string", svc.message)

	rec = do(t, router, http.MethodPost, "/alice/reply/t1", `{"message":"wrapped"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wrapped", svc.message)
	assert.JSONEq(t, `{"replied":true}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/alice/reply/t1", `[1,2]`).Code)
}

func TestTweetHandler_LikeBody(t *testing.T) {
	router := tweetRouter(&stubTweetService{status: services.StatusOK})
	rec := do(t, router, http.MethodPut, "/alice/like/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"likes":7}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
