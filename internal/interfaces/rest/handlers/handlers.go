package handlers

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application/services"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// WebhookProcessor is the service surface the webhook handlers drive.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte) (*services.Result, error)
	ProcessCard(ctx context.Context, event *domain.Event) (*services.Result, error)
	RelaySepa(ctx context.Context, body []byte) error
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	processor WebhookProcessor
	health    HealthChecker
	logger    *slog.Logger
}

// NewHandlers wires the webhook endpoints. health may be nil when the
// idempotency store is in-process.
func NewHandlers(processor WebhookProcessor, health HealthChecker, logger *slog.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		health:    health,
		logger:    logger,
	}
}

var _ WebhookProcessor = (*services.WebhookProcessor)(nil)
