package application

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// DispatchAction names a call on the downstream fulfillment service.
type DispatchAction string

const (
	ActionDeliverGiftCards     DispatchAction = "deliver-gift-cards"
	ActionMarkOrderFailed      DispatchAction = "mark-order-failed"
	ActionUpdateSepaTransfer   DispatchAction = "update-sepa-transfer"
	ActionUpdateCardThreeDS    DispatchAction = "update-card-3ds"
	ActionUpdateCardActivation DispatchAction = "update-card-activation"
)

// GiftCardDeliveryRequest is sent when a payment completes.
type GiftCardDeliveryRequest struct {
	OrderID       string            `json:"orderId"`
	CustomerID    string            `json:"customerId"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Items         []domain.LineItem `json:"items"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentID     string            `json:"paymentId"`
}

type OrderStatusUpdate struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId,omitempty"`
}

type SepaTransferUpdate struct {
	TransferID string           `json:"transferId"`
	Status     string           `json:"status"`
	OrderID    string           `json:"orderId,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
}

type CardCodeUpdate struct {
	ExternalUserID string `json:"externalUserId"`
	CardID         string `json:"cardId,omitempty"`
	Code           string `json:"code"`
}

type DispatchResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// DispatchError is a failed fulfillment call, decoded once at the HTTP boundary.
// StatusCode is zero when no response was received.
type DispatchError struct {
	Action     DispatchAction
	StatusCode int
	Code       string
	Message    string
	Body       string
	Err        error
}

type DispatchErrorResponse struct {
	Err     string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DispatchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("dispatch %s failed: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("dispatch %s failed [%s]: %s (status: %d)", e.Action, e.Code, e.Message, e.StatusCode)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func IsDispatchError(err error) (*DispatchError, bool) {
	var dispatchErr *DispatchError
	ok := errors.As(err, &dispatchErr)
	return dispatchErr, ok
}
