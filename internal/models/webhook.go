package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// WebhookPayload is the body the payment provider posts when a payment completes.
// Either transaction id spelling is accepted, as a string or a number.
type WebhookPayload struct {
	TransactionID string
	Amount        decimal.NullDecimal
}

func (p *WebhookPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		TransactionIDSnake json.RawMessage     `json:"transaction_id"`
		TransactionIDCamel json.RawMessage     `json:"transactionId"`
		Amount             decimal.NullDecimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.TransactionID = transactionIDValue(raw.TransactionIDSnake)
	if p.TransactionID == "" {
		p.TransactionID = transactionIDValue(raw.TransactionIDCamel)
	}
	p.Amount = raw.Amount
	return nil
}

// transactionIDValue renders a transaction id field as text. Missing, null, false,
// zero and empty values count as absent.
func transactionIDValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 'n', 'f':
		return ""
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return ""
		}
		return buf.String()
	}

	if d, err := decimal.NewFromString(string(raw)); err == nil && d.IsZero() {
		return ""
	}
	return string(raw)
}

// TransactionRef returns the transaction id, or "N/A" when the provider sent none.
func (p WebhookPayload) TransactionRef() string {
	if p.TransactionID == "" {
		return "N/A"
	}
	return p.TransactionID
}

// ResolveAmount prefers the amount in the payload and falls back to the order's.
func (p WebhookPayload) ResolveAmount(orderAmount decimal.Decimal) decimal.Decimal {
	if p.Amount.Valid {
		return p.Amount.Decimal
	}
	return orderAmount
}
