package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
)

// CardService forwards one-time 3DS and activation codes.
type CardService struct {
	dispatcher application.Dispatcher
	logger     *slog.Logger
}

func NewCardService(dispatcher application.Dispatcher, logger *slog.Logger) *CardService {
	return &CardService{dispatcher: dispatcher, logger: logger}
}

func (s *CardService) Handle(ctx context.Context, event *domain.Event) (domain.Outcome, error) {
	var action application.DispatchAction
	switch event.Kind {
	case domain.KindCardThreeDS:
		action = application.ActionUpdateCardThreeDS
	case domain.KindCardActivation:
		action = application.ActionUpdateCardActivation
	default:
		return domain.Outcome{}, domain.NewUnhandledEventError(string(event.Kind))
	}

	update := application.CardCodeUpdate{
		ExternalUserID: event.ExternalUserID,
		CardID:         event.CardID,
		Code:           event.Code,
	}
	if _, err := s.dispatcher.Dispatch(ctx, action, update); err != nil {
		return domain.Outcome{}, err
	}

	// The code itself is never logged.
	s.logger.Info("card code forwarded", "external_user_id", event.ExternalUserID, "card_id", event.CardID, "action", action)
	return domain.NewOutcome(domain.OutcomeForwarded, string(action)), nil
}
