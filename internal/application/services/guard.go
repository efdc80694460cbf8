package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/events"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/metrics"
)

// GuardResult reports what a guarded run did.
type GuardResult struct {
	EventKey  string
	Duplicate bool
	Outcome   *domain.Outcome
}

// Guard runs a side effect at most once per event key.
type Guard struct {
	store     application.IdempotencyStore
	publisher application.EventPublisher
	logger    *slog.Logger
}

func NewGuard(store application.IdempotencyStore, publisher application.EventPublisher, logger *slog.Logger) *Guard {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Guard{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Run reserves the event key, calls fn for a fresh reservation and records its
// outcome. A failed fn releases the reservation so a redelivery can retry.
func (g *Guard) Run(ctx context.Context, event *domain.Event, fn func(ctx context.Context) (domain.Outcome, error)) (*GuardResult, error) {
	key := event.Key()
	logger := g.logger.With("event_key", key, "kind", string(event.Kind))

	reservation, err := g.store.ShouldProcess(ctx, key)
	if err != nil {
		logger.Error("idempotency reservation failed", "error", err)
		return nil, application.NewInternalError(err)
	}

	if !reservation.Fresh {
		metrics.DuplicatesTotal.WithLabelValues(string(event.Kind)).Inc()
		if reservation.InFlight() {
			logger.Info("duplicate delivery while first is in flight, acknowledging")
		} else {
			logger.Info("duplicate delivery, returning prior outcome", "outcome", reservation.Prior.Status)
		}
		return &GuardResult{EventKey: key, Duplicate: true, Outcome: reservation.Prior}, nil
	}

	outcome, err := fn(ctx)
	if err != nil {
		if relErr := g.store.Release(ctx, key, reservation.Token); relErr != nil {
			logger.Error("failed to release reservation", "error", relErr)
		}
		return nil, err
	}

	if err := g.store.RecordOutcome(ctx, key, outcome); err != nil {
		// The side effect already happened; the lease keeps redeliveries out until it lapses.
		logger.Error("failed to record outcome", "error", err, "outcome", outcome.Status)
	}

	g.publish(ctx, logger, event, key, outcome)

	return &GuardResult{EventKey: key, Outcome: &outcome}, nil
}

func (g *Guard) publish(ctx context.Context, logger *slog.Logger, event *domain.Event, key string, outcome domain.Outcome) {
	msg := events.ProcessedEvent{
		EventKey:  key,
		Kind:      string(event.Kind),
		OrderID:   event.OrderID,
		Outcome:   string(outcome.Status),
		Timestamp: time.Now().UTC(),
	}
	if err := g.publisher.Publish(ctx, string(event.Kind), msg); err != nil {
		metrics.PublishErrors.Inc()
		logger.Warn("failed to publish processed event", "error", err)
	}
}
