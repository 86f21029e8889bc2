package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderProcessing    = "order.processing"
	EventOrderPendingManual = "order.pending_manual"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	OrderID       string          `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Message       string          `json:"message,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
