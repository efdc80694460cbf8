package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// Result describes how a webhook was handled. Every Result maps to HTTP 200.
type Result struct {
	EventKey  string
	Kind      domain.EventKind
	Duplicate bool
	Ignored   bool
	// Swallowed is set when a best-effort dispatch failed and was acknowledged anyway.
	Swallowed bool
	Outcome   *domain.Outcome
}

// WebhookProcessor applies the acknowledge/retry policy to normalized events.
type WebhookProcessor struct {
	guard    *Guard
	payments *PaymentService
	sepa     *SepaService
	cards    *CardService
	logger   *slog.Logger
	timeout  time.Duration
}

func NewWebhookProcessor(
	guard *Guard,
	payments *PaymentService,
	sepa *SepaService,
	cards *CardService,
	timeout time.Duration,
	logger *slog.Logger,
) *WebhookProcessor {
	return &WebhookProcessor{
		guard:    guard,
		payments: payments,
		sepa:     sepa,
		cards:    cards,
		logger:   logger,
		timeout:  timeout,
	}
}

// Process handles a verified body from the unified webhook endpoint.
//
// Only gift-card delivery and infrastructure failures are returned as errors;
// status mirrors that fail are logged and acknowledged.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte) (*Result, error) {
	event, err := application.Normalize(body)
	if err != nil {
		return p.rejectOrIgnore(event, err)
	}

	result, err := p.run(ctx, event)
	if err == nil {
		return result, nil
	}

	if event.Kind == domain.KindPaymentCompleted || isInfrastructure(err) {
		return nil, err
	}

	p.logger.Error("best-effort dispatch failed, acknowledging",
		"event_key", event.Key(),
		"kind", event.Kind,
		"error", err,
	)
	return &Result{EventKey: event.Key(), Kind: event.Kind, Swallowed: true}, nil
}

// ProcessCard handles the dedicated card endpoints, where a forwarding
// failure is reported to the caller.
func (p *WebhookProcessor) ProcessCard(ctx context.Context, event *domain.Event) (*Result, error) {
	if !event.Kind.IsCard() {
		return nil, application.NewInvalidInputError(domain.NewUnhandledEventError(string(event.Kind)))
	}
	if err := event.Validate(); err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	result, err := p.run(ctx, event)
	if err != nil {
		if _, ok := application.IsServiceError(err); ok {
			return nil, err
		}
		return nil, application.NewDispatchFailedError(err)
	}
	return result, nil
}

// RelaySepa forwards a SEPA body verbatim.
func (p *WebhookProcessor) RelaySepa(ctx context.Context, body []byte) error {
	ctx, cancel := p.detach(ctx)
	defer cancel()
	return p.sepa.Relay(ctx, body)
}

func (p *WebhookProcessor) rejectOrIgnore(event *domain.Event, err error) (*Result, error) {
	switch {
	case errors.Is(err, domain.ErrUnhandledEvent):
		eventType := ""
		if event != nil {
			eventType = event.EventType
		}
		p.logger.Info("ignoring unhandled webhook event", "event_type", eventType)
		return &Result{Ignored: true}, nil

	case event != nil && event.Kind.IsCard():
		p.logger.Warn("dropping card event without required identifiers", "kind", event.Kind, "error", err)
		return &Result{Kind: event.Kind, Ignored: true}, nil
	}

	return nil, application.NewInvalidInputError(err)
}

func (p *WebhookProcessor) run(ctx context.Context, event *domain.Event) (*Result, error) {
	ctx, cancel := p.detach(ctx)
	defer cancel()

	gr, err := p.guard.Run(ctx, event, func(ctx context.Context) (domain.Outcome, error) {
		return p.route(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		EventKey:  gr.EventKey,
		Kind:      event.Kind,
		Duplicate: gr.Duplicate,
		Outcome:   gr.Outcome,
	}, nil
}

func (p *WebhookProcessor) route(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	switch {
	case event.Kind.IsPayment():
		return p.payments.Handle(ctx, event)
	case event.Kind.IsSepa():
		return p.sepa.Handle(ctx, event)
	case event.Kind.IsCard():
		return p.cards.Handle(ctx, event)
	}
	return domain.Outcome{}, domain.NewUnhandledEventError(string(event.Kind))
}

// detach keeps downstream calls running when the caller disconnects, bounded
// by the processing timeout.
func (p *WebhookProcessor) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
}

func isInfrastructure(err error) bool {
	svcErr, ok := application.IsServiceError(err)
	return ok && svcErr.Code == application.ErrCodeInternal
}
