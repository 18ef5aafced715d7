package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/tweetapp-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports database reachability and host resource usage.
type HealthHandler struct {
	db    Pinger
	stats monitoring.HostStatsProvider
}

// NewHealthHandler creates a new HealthHandler. stats may be nil.
func NewHealthHandler(db Pinger, stats monitoring.HostStatsProvider) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Check handles the health probe.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := map[string]interface{}{"status": "ok", "database": "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		resp["status"] = "degraded"
		resp["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.stats != nil {
		host, err := h.stats.Collect(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Health check: failed to collect host stats")
		} else {
			resp["host"] = host
		}
	}

	writeJSON(w, status, resp)
}
