package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

var eventAliases = map[string]domain.EventKind{
	"payment.completed":        domain.KindPaymentCompleted,
	"payment.failed":           domain.KindPaymentFailed,
	"payment.expired":          domain.KindPaymentExpired,
	"sepa_transfer.completed":  domain.KindSepaTransferCompleted,
	"sepa_transfer.failed":     domain.KindSepaTransferFailed,
	"sepa_transfer.processing": domain.KindSepaTransferProcessing,
	"sepa.transfer.completed":  domain.KindSepaTransferCompleted,
	"sepa.transfer.failed":     domain.KindSepaTransferFailed,
	"sepa.transfer.processing": domain.KindSepaTransferProcessing,
	"card.3ds":                 domain.KindCardThreeDS,
	"card.3ds_code":            domain.KindCardThreeDS,
	"card.activation":          domain.KindCardActivation,
	"card.activation_code":     domain.KindCardActivation,
}

// rawEvent decodes identifiers as any so numeric ids are accepted the same
// way they are under metadata.
type rawEvent struct {
	EventType string `json:"event_type"`
	Event     string `json:"event"`

	PaymentID      any `json:"payment_id"`
	TransferID     any `json:"transfer_id"`
	ExternalUserID any `json:"external_user_id"`
	CardID         any `json:"card_id"`
	OrderID        any `json:"order_id"`
	Code           any `json:"code"`
	CustomerID     any `json:"customer_id"`

	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency"`
	Status        string              `json:"status"`
	CustomerEmail string              `json:"customer_email"`

	Metadata map[string]any `json:"metadata"`
	Data     *rawEvent      `json:"data"`
}

type rawItem struct {
	ProductID    any                 `json:"productId"`
	ID           any                 `json:"id"`
	Name         string              `json:"name"`
	Quantity     json.Number         `json:"quantity"`
	Price        decimal.NullDecimal `json:"price"`
	Denomination any                 `json:"denomination"`
}

// Normalize parses a processor webhook body into the canonical event.
//
// Unknown discriminators return domain.ErrUnhandledEvent. When required
// identifiers are missing, the partially built event is returned together
// with the validation error so callers can apply per-kind policy.
func Normalize(body []byte) (*domain.Event, error) {
	var raw rawEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.NewMalformedPayloadError(err)
	}
	raw.mergeData()
	if err := raw.checkIdentifiers(); err != nil {
		return nil, domain.NewMalformedPayloadError(err)
	}

	eventType := raw.EventType
	if eventType == "" {
		eventType = raw.Event
	}
	kind, ok := eventAliases[strings.ToLower(strings.TrimSpace(eventType))]
	if !ok {
		return &domain.Event{EventType: eventType}, domain.NewUnhandledEventError(eventType)
	}

	event := &domain.Event{
		Kind:           kind,
		EventType:      eventType,
		PaymentID:      stringOf(raw.PaymentID),
		TransferID:     stringOf(raw.TransferID),
		ExternalUserID: stringOf(raw.ExternalUserID),
		CardID:         stringOf(raw.CardID),
		OrderID:        firstNonEmpty(stringOf(raw.OrderID), metaString(raw.Metadata, "orderId", "order_id")),
		Status:         raw.Status,
		Code:           stringOf(raw.Code),
		CustomerID:     firstNonEmpty(stringOf(raw.CustomerID), metaString(raw.Metadata, "customerId", "customer_id")),
		CustomerEmail:  firstNonEmpty(raw.CustomerEmail, metaString(raw.Metadata, "customerEmail", "customer_email", "email")),
		Metadata:       raw.Metadata,
	}

	if raw.Amount.Valid {
		event.Amount = &domain.Money{Amount: raw.Amount.Decimal, Currency: strings.ToUpper(raw.Currency)}
	}

	if event.Status == "" {
		switch {
		case kind.IsPayment():
			event.Status = string(kind.PaymentStatus())
		case kind.IsSepa():
			event.Status = string(kind.TransferStatus())
		}
	}

	items, err := lineItems(raw.Metadata)
	if err != nil {
		return event, domain.NewMalformedPayloadError(err)
	}
	event.Items = items

	if err := event.Validate(); err != nil {
		return event, err
	}
	return event, nil
}

// mergeData lifts fields from a nested data object when the top level lacks them.
func (r *rawEvent) mergeData() {
	d := r.Data
	if d == nil {
		return
	}
	r.Event = firstNonEmpty(r.Event, d.EventType, d.Event)
	r.PaymentID = firstPresent(r.PaymentID, d.PaymentID)
	r.TransferID = firstPresent(r.TransferID, d.TransferID)
	r.ExternalUserID = firstPresent(r.ExternalUserID, d.ExternalUserID)
	r.CardID = firstPresent(r.CardID, d.CardID)
	r.OrderID = firstPresent(r.OrderID, d.OrderID)
	r.Currency = firstNonEmpty(r.Currency, d.Currency)
	r.Status = firstNonEmpty(r.Status, d.Status)
	r.Code = firstPresent(r.Code, d.Code)
	r.CustomerID = firstPresent(r.CustomerID, d.CustomerID)
	r.CustomerEmail = firstNonEmpty(r.CustomerEmail, d.CustomerEmail)
	if !r.Amount.Valid {
		r.Amount = d.Amount
	}
	if r.Metadata == nil {
		r.Metadata = d.Metadata
	}
}

// checkIdentifiers rejects identifiers that are neither strings nor numbers.
func (r *rawEvent) checkIdentifiers() error {
	fields := []struct {
		name  string
		value any
	}{
		{"payment_id", r.PaymentID},
		{"transfer_id", r.TransferID},
		{"external_user_id", r.ExternalUserID},
		{"card_id", r.CardID},
		{"order_id", r.OrderID},
		{"code", r.Code},
		{"customer_id", r.CustomerID},
	}
	for _, f := range fields {
		switch f.value.(type) {
		case nil, string, json.Number:
		default:
			return fmt.Errorf("%s must be a string or number", f.name)
		}
	}
	return nil
}

func lineItems(metadata map[string]any) ([]domain.LineItem, error) {
	var source any
	for _, key := range []string{"items", "products"} {
		if v, ok := metadata[key]; ok && v != nil {
			source = v
			break
		}
	}
	if source == nil {
		return nil, nil
	}

	var encoded []byte
	if s, ok := source.(string); ok {
		encoded = []byte(s)
	} else {
		b, err := json.Marshal(source)
		if err != nil {
			return nil, fmt.Errorf("encode metadata items: %w", err)
		}
		encoded = b
	}

	var raws []rawItem
	if err := json.Unmarshal(encoded, &raws); err != nil {
		return nil, fmt.Errorf("decode metadata items: %w", err)
	}

	items := make([]domain.LineItem, 0, len(raws))
	for _, r := range raws {
		quantity := 1
		if r.Quantity != "" {
			q, err := strconv.Atoi(r.Quantity.String())
			if err != nil || q < 1 {
				return nil, fmt.Errorf("invalid item quantity %q", r.Quantity)
			}
			quantity = q
		}
		items = append(items, domain.LineItem{
			ProductID:    firstNonEmpty(stringOf(r.ProductID), stringOf(r.ID)),
			Name:         r.Name,
			Quantity:     quantity,
			Price:        r.Price.Decimal,
			Denomination: stringOf(r.Denomination),
		})
	}
	return items, nil
}

func metaString(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringOf(metadata[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if stringOf(v) != "" {
			return v
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
