package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

var errInvalidJSON = errors.New("body is not valid JSON")

// SepaService mirrors SEPA transfer status to the fulfillment server.
type SepaService struct {
	dispatcher application.Dispatcher
	logger     *slog.Logger
}

func NewSepaService(dispatcher application.Dispatcher, logger *slog.Logger) *SepaService {
	return &SepaService{dispatcher: dispatcher, logger: logger}
}

// Handle forwards every status, processing included.
func (s *SepaService) Handle(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	status := event.Kind.TransferStatus()
	update := application.SepaTransferUpdate{
		TransferID: event.TransferID,
		Status:     string(status),
		OrderID:    event.OrderID,
	}
	if event.Amount != nil {
		amount := event.Amount.Amount
		update.Amount = &amount
		update.Currency = event.Amount.Currency
	}

	if _, err := s.dispatcher.Dispatch(ctx, application.ActionUpdateSepaTransfer, update); err != nil {
		return domain.Outcome{}, err
	}

	s.logger.Info("sepa transfer status forwarded", "transfer_id", event.TransferID, "status", status)
	return domain.NewOutcome(domain.OutcomeForwarded, string(status)), nil
}

// Relay passes an already-trusted JSON body through unchanged.
func (s *SepaService) Relay(ctx context.Context, body json.RawMessage) error {
	if !json.Valid(body) {
		return application.NewInvalidInputError(domain.NewMalformedPayloadError(errInvalidJSON))
	}
	if _, err := s.dispatcher.Dispatch(ctx, application.ActionUpdateSepaTransfer, body); err != nil {
		s.logger.Error("sepa relay failed", "error", err)
		return application.NewDispatchFailedError(err)
	}
	return nil
}
