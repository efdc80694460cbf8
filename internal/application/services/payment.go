package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

const customerIDPrefix = "p100-"

// PaymentService drives the payment lifecycle and gift-card fulfillment.
type PaymentService struct {
	dispatcher application.Dispatcher
	states     application.PaymentStateRepository
	processor  application.ProcessorClient
	logger     *slog.Logger
}

// NewPaymentService wires the payment flow. processor may be nil, in which
// case completed payments are not confirmed against the processor API.
func NewPaymentService(
	dispatcher application.Dispatcher,
	states application.PaymentStateRepository,
	processor application.ProcessorClient,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		dispatcher: dispatcher,
		states:     states,
		processor:  processor,
		logger:     logger,
	}
}

// Handle routes a payment event. The payment is claimed by moving it to the
// event's terminal status before anything is dispatched, so of two conflicting
// events only one reaches fulfillment. A failed dispatch reverts the claim and
// a redelivery can try again. Errors from the completed path must fail the
// webhook; errors from the failure path are the caller's to swallow.
func (s *PaymentService) Handle(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	var run func(context.Context, *domain.Event) (domain.Outcome, error)
	switch event.Kind {
	case domain.KindPaymentCompleted:
		run = s.complete
	case domain.KindPaymentFailed, domain.KindPaymentExpired:
		run = s.markFailed
	default:
		return domain.Outcome{}, domain.NewUnhandledEventError(string(event.Kind))
	}

	target := event.Kind.PaymentStatus()
	logger := s.logger.With("payment_id", event.PaymentID, "order_id", event.OrderID, "target", target)

	if err := s.states.Transition(ctx, event.PaymentID, event.OrderID, target); err != nil {
		if !errors.Is(err, domain.ErrTerminalPayment) && !errors.Is(err, domain.ErrInvalidTransition) {
			logger.Error("failed to claim payment", "error", err)
			return domain.Outcome{}, application.NewInternalError(err)
		}
		return s.ignore(ctx, logger, event.PaymentID, target), nil
	}

	outcome, err := run(ctx, event)
	if err != nil {
		if revertErr := s.states.Revert(ctx, event.PaymentID, target); revertErr != nil {
			logger.Error("failed to revert payment claim", "error", revertErr)
		}
		return domain.Outcome{}, err
	}
	return outcome, nil
}

func (s *PaymentService) ignore(ctx context.Context, logger *slog.Logger, paymentID string, target domain.PaymentStatus) domain.Outcome {
	current, err := s.states.Status(ctx, paymentID)
	if err != nil {
		logger.Warn("payment already claimed, ignoring", "error", err)
		return domain.NewOutcome(domain.OutcomeIgnored, "payment already claimed")
	}
	if current == target {
		logger.Info("payment already in target state, ignoring")
	} else {
		logger.Warn("late conflicting event for terminal payment, ignoring", "current", current)
	}
	return domain.NewOutcome(domain.OutcomeIgnored, "payment already "+string(current))
}

func (s *PaymentService) complete(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	if err := s.confirm(ctx, event.PaymentID); err != nil {
		return domain.Outcome{}, err
	}

	req := BuildDeliveryRequest(event)
	if _, err := s.dispatcher.Dispatch(ctx, application.ActionDeliverGiftCards, req); err != nil {
		s.logger.Error("gift card delivery failed",
			"payment_id", event.PaymentID,
			"order_id", event.OrderID,
			"error", err,
		)
		return domain.Outcome{}, application.NewDispatchFailedError(err)
	}

	s.logger.Info("gift cards delivered", "payment_id", event.PaymentID, "order_id", event.OrderID, "items", len(req.Items))
	return domain.NewOutcome(domain.OutcomeDelivered, string(application.ActionDeliverGiftCards)), nil
}

func (s *PaymentService) confirm(ctx context.Context, paymentID string) error {
	if s.processor == nil {
		return nil
	}

	payment, err := s.processor.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("processor confirmation failed", "payment_id", paymentID, "error", err)
		return err
	}
	if domain.PaymentStatus(payment.Status) != domain.StatusCompleted {
		return application.NewPaymentNotSettledError(paymentID, payment.Status)
	}
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	update := application.OrderStatusUpdate{
		OrderID:   event.OrderID,
		Status:    event.Kind.PaymentStatus().OrderStatus(),
		PaymentID: event.PaymentID,
	}
	if _, err := s.dispatcher.Dispatch(ctx, application.ActionMarkOrderFailed, update); err != nil {
		return domain.Outcome{}, err
	}
	return domain.NewOutcome(domain.OutcomeOrderFailed, string(event.Kind.PaymentStatus())), nil
}

// BuildDeliveryRequest maps a completed payment onto the fulfillment request.
// A payment without a customer id gets one derived from the payment id.
func BuildDeliveryRequest(event *domain.Event) application.GiftCardDeliveryRequest {
	customerID := event.CustomerID
	if customerID == "" {
		customerID = customerIDPrefix + event.PaymentID
	}

	items := event.Items
	if items == nil {
		items = []domain.LineItem{}
	}

	req := application.GiftCardDeliveryRequest{
		OrderID:       event.OrderID,
		CustomerID:    customerID,
		CustomerEmail: event.CustomerEmail,
		Items:         items,
		PaymentID:     event.PaymentID,
	}
	if event.Amount != nil {
		req.Amount = event.Amount.Amount
		req.Currency = event.Amount.Currency
	}
	return req
}
