package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/config"
	"github.com/scripty/hub-server-go/internal/httputil"
	"github.com/scripty/hub-server-go/internal/hub"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	registry *hub.Registry
	tracker  *hub.Tracker
	db       Pinger
}

func NewHealthHandler(registry *hub.Registry, tracker *hub.Tracker, db Pinger) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		tracker:  tracker,
		db:       db,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	httputil.WriteJSON(w, code, map[string]any{
		"status":      status,
		"timestamp":   time.Now().UnixMilli(),
		"connections": h.registry.Count(),
		"authorized":  h.registry.AuthorizedCount(),
		"routes":      h.registry.RouteCount(),
		"pending":     h.tracker.Len(),
	})
}
