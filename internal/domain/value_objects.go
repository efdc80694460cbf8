package domain

import (
	"github.com/shopspring/decimal"
)

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, NewInvalidAmountError("amount cannot be negative")
	}
	if currency == "" {
		return Money{}, NewInvalidAmountError("currency is required")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// LineItem is a product line forwarded to gift-card fulfillment.
type LineItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Denomination string          `json:"denomination,omitempty"`
}
