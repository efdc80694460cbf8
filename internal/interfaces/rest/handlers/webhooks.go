package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application/services"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/metrics"
)

const (
	endpointPayment        = "payment"
	endpointCardThreeDS    = "card-3ds"
	endpointCardActivation = "card-activation"
	endpointSepa           = "sepa"
)

// CardCodeRequest is the body of the dedicated card endpoints.
type CardCodeRequest struct {
	ExternalUserID string `json:"externalUserId"`
	CardID         string `json:"cardId"`
	Code           string `json:"code"`
}

// Payment handles POST /webhooks/payment.
func (h *Handlers) Payment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, endpointPayment, application.NewInvalidInputError(domain.NewMalformedPayloadError(err)))
		return
	}

	result, err := h.processor.Process(r.Context(), body)
	if err != nil {
		h.logger.Error("payment webhook failed",
			"error", err,
			"error_code", application.ToErrorCode(err),
			"category", application.CategorizeError(err),
		)
		h.fail(w, endpointPayment, err)
		return
	}

	h.succeed(w, endpointPayment, result)
}

// CardThreeDS handles POST /webhooks/card-3ds.
func (h *Handlers) CardThreeDS(w http.ResponseWriter, r *http.Request) {
	h.card(w, r, endpointCardThreeDS, domain.KindCardThreeDS)
}

// CardActivation handles POST /webhooks/card-activation.
func (h *Handlers) CardActivation(w http.ResponseWriter, r *http.Request) {
	h.card(w, r, endpointCardActivation, domain.KindCardActivation)
}

func (h *Handlers) card(w http.ResponseWriter, r *http.Request, endpoint string, kind domain.EventKind) {
	var req CardCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, endpoint, application.NewInvalidInputError(domain.NewMalformedPayloadError(err)))
		return
	}

	event := &domain.Event{
		Kind:           kind,
		EventType:      string(kind),
		ExternalUserID: req.ExternalUserID,
		CardID:         req.CardID,
		Code:           req.Code,
	}

	result, err := h.processor.ProcessCard(r.Context(), event)
	if err != nil {
		if application.ToHTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("card webhook failed", "endpoint", endpoint, "external_user_id", req.ExternalUserID, "error", err)
		}
		h.fail(w, endpoint, err)
		return
	}

	h.succeed(w, endpoint, result)
}

// Sepa handles POST /webhooks/sepa by relaying the body unchanged.
func (h *Handlers) Sepa(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, endpointSepa, application.NewInvalidInputError(domain.NewMalformedPayloadError(err)))
		return
	}

	if err := h.processor.RelaySepa(r.Context(), body); err != nil {
		h.fail(w, endpointSepa, err)
		return
	}

	metrics.WebhooksTotal.WithLabelValues(endpointSepa, "processed").Inc()
	rest.WriteSuccess(w, rest.SuccessResponse{})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			rest.WriteError(w, application.NewInternalError(err))
			return
		}
	}
	rest.WriteSuccess(w, rest.SuccessResponse{})
}

func (h *Handlers) succeed(w http.ResponseWriter, endpoint string, result *services.Result) {
	metrics.WebhooksTotal.WithLabelValues(endpoint, resultLabel(result)).Inc()
	rest.WriteSuccess(w, rest.SuccessResponse{
		Duplicate: result.Duplicate,
		EventKey:  result.EventKey,
	})
}

func (h *Handlers) fail(w http.ResponseWriter, endpoint string, err error) {
	label := "rejected"
	if application.ToHTTPStatus(err) >= http.StatusInternalServerError {
		label = "error"
		h.logger.Error("webhook failed", "endpoint", endpoint, "error", err)
	}
	metrics.WebhooksTotal.WithLabelValues(endpoint, label).Inc()
	rest.WriteError(w, err)
}

func resultLabel(result *services.Result) string {
	switch {
	case result.Duplicate:
		return "duplicate"
	case result.Ignored:
		return "ignored"
	case result.Swallowed:
		return "swallowed"
	}
	return "processed"
}
