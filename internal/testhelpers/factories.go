package testhelpers

import (
	"encoding/json"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
)

// PaymentCompletedBody builds a signed-ready payment.completed webhook body.
func PaymentCompletedBody(paymentID, orderID string) []byte {
	return mustJSON(map[string]any{
		"event_type":     "payment.completed",
		"payment_id":     paymentID,
		"order_id":       orderID,
		"amount":         gofakeit.Price(5, 500),
		"currency":       "USDC",
		"customer_email": gofakeit.Email(),
		"metadata": map[string]any{
			"items": []map[string]any{
				{"productId": "steam-" + gofakeit.DigitN(3), "quantity": gofakeit.Number(1, 3)},
			},
		},
	})
}

func PaymentFailedBody(paymentID, orderID string) []byte {
	return mustJSON(map[string]any{
		"event_type": "payment.failed",
		"payment_id": paymentID,
		"order_id":   orderID,
	})
}

func SepaBody(status, transferID string) []byte {
	return mustJSON(map[string]any{
		"event_type":  "sepa_transfer." + status,
		"transfer_id": transferID,
		"amount":      gofakeit.Price(10, 1000),
		"currency":    "EUR",
	})
}

func CardBody(kind, externalUserID, cardID, code string) []byte {
	body := map[string]any{
		"event_type":       kind,
		"external_user_id": externalUserID,
		"code":             code,
	}
	if cardID != "" {
		body["card_id"] = cardID
	}
	return mustJSON(body)
}

// NewPaymentID returns a processor-style payment identifier.
func NewPaymentID() string {
	return fmt.Sprintf("pay_%s", gofakeit.LetterN(12))
}

func NewOrderID() string {
	return fmt.Sprintf("ord_%s", gofakeit.DigitN(8))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
