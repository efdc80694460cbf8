package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/signature"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	MaxBodyBytes   int64
	HandlerTimeout time.Duration
}

// NewRouter mounts the webhook endpoints behind signature verification and
// the operational endpoints outside it.
func NewRouter(h *Handlers, verifier *signature.Verifier, cfg RouterConfig, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.HandlerTimeout))
		r.Use(middleware.Signature(verifier, cfg.MaxBodyBytes, logger))

		r.Post("/payment", h.Payment)
		r.Post("/card-3ds", h.CardThreeDS)
		r.Post("/card-activation", h.CardActivation)
		r.Post("/sepa", h.Sepa)
	})

	return r
}
