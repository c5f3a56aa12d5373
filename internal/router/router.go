package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"signage-studio/internal/config"
	"signage-studio/internal/handler"
	"signage-studio/internal/middleware"
)

type Handlers struct {
	Block     *handler.BlockHandler
	Sequence  *handler.SequenceHandler
	Timeline  *handler.TimelineHandler
	WebSocket *handler.WebSocketHandler
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func New(cfg *config.Config, h Handlers, health HealthChecker) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.Health(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// The stream is long-lived and hijacks the connection, so it stays
	// outside the request timeout.
	r.Get("/ws", h.WebSocket.Serve)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/campaigns/{campaign_id}", func(c chi.Router) {
			c.Get("/timelines", h.Timeline.List)
			c.Get("/sequence", h.Sequence.List)
			c.Put("/sequence/{timeline_id}", h.Sequence.SetIndex)
		})

		api.Get("/blocks/{block_id}/length", h.Block.GetLength)
		api.Put("/blocks/{block_id}/length", h.Block.SetLength)
		api.Delete("/blocks/{block_id}", h.Block.Remove)
		api.Delete("/sequences/{timeline_id}", h.Sequence.Remove)
		api.Delete("/timelines/{timeline_id}", h.Timeline.Delete)
	})

	return r
}
