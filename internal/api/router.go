package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/tweetapp-be/internal/api/handlers"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/metrics"
	"github.com/isdelr/tweetapp-be/internal/monitoring"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/isdelr/tweetapp-be/internal/websocket"
)

// BasePath is the prefix of every tweet and account endpoint.
const BasePath = "/api/v1.0/tweets"

// Dependencies groups what the router needs to build its handlers.
type Dependencies struct {
	DB             *sql.DB
	Hub            *websocket.Hub
	Tokens         *auth.TokenManager
	TweetService   services.TweetServiceProvider
	UserService    services.UserServiceProvider
	EventService   services.EventServiceProvider
	HostStats      monitoring.HostStatsProvider
	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	tweetHandler := handlers.NewTweetHandler(deps.TweetService)
	userHandler := handlers.NewUserHandler(deps.UserService, deps.Tokens, deps.SecureCookies)
	eventHandler := handlers.NewEventHandler(deps.EventService)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.HostStats)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.AllowedOrigins)

	r.Get("/healthz", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler())

	r.Route(BasePath, func(r chi.Router) {
		// Public routes
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Tokens.Middleware())

			r.Get("/ws", wsHandler.Serve)
			r.Get("/events", eventHandler.GetRecent)

			r.Get("/users/all", userHandler.GetAll)
			r.Get("/user/search/{username}", userHandler.Search)

			r.Get("/all", tweetHandler.GetAll)
			r.Route("/{username}", func(r chi.Router) {
				r.Get("/", tweetHandler.GetForUser)
				r.Put("/forgot", userHandler.ChangePassword)
				r.Post("/add", tweetHandler.Create)
				r.Put("/update/{id}", tweetHandler.Update)
				r.Delete("/delete/{id}", tweetHandler.Delete)
				r.Put("/like/{id}", tweetHandler.Like)
				r.Post("/reply/{id}", tweetHandler.Reply)
			})
		})
	})

	return r
}
