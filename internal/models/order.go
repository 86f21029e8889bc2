package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	StatusPending       OrderStatus = "pending"
	StatusPaid          OrderStatus = "paid"
	StatusProcessing    OrderStatus = "processing"
	StatusCompleted     OrderStatus = "completed"
	StatusPendingManual OrderStatus = "pending_manual"
	StatusFailed        OrderStatus = "failed"
	StatusCancelled     OrderStatus = "cancelled"
)

var allStatuses = []OrderStatus{
	StatusPending, StatusPaid, StatusProcessing, StatusCompleted,
	StatusPendingManual, StatusFailed, StatusCancelled,
}

// ProcessableStatuses are the statuses a payment webhook may advance.
func ProcessableStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusPaid}
}

func (s OrderStatus) Valid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsProcessable() bool {
	return s == StatusPending || s == StatusPaid
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// allowed lists the transitions operators and the fulfillment dispatcher may apply.
// The webhook path only ever moves pending/paid to processing, and processing to pending_manual.
var allowed = map[OrderStatus][]OrderStatus{
	StatusPending:       {StatusPaid, StatusProcessing, StatusCancelled, StatusFailed},
	StatusPaid:          {StatusProcessing, StatusCancelled, StatusFailed},
	StatusProcessing:    {StatusCompleted, StatusPendingManual, StatusFailed},
	StatusPendingManual: {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	bun.BaseModel `bun:"table:topup_orders"`

	ID            string          `json:"id" bun:"id,pk"`
	GameID        string          `json:"game_id" bun:"game_id"`
	GameName      string          `json:"game_name" bun:"game_name"`
	PackageID     string          `json:"package_id" bun:"package_id"`
	PackageName   string          `json:"package_name" bun:"package_name"`
	PlayerID      string          `json:"player_id" bun:"player_id"`
	ServerID      string          `json:"server_id,omitempty" bun:"server_id"`
	PlayerName    string          `json:"player_name,omitempty" bun:"player_name"`
	Amount        decimal.Decimal `json:"amount" bun:"amount,type:decimal(12,2)"`
	Currency      string          `json:"currency" bun:"currency"`
	PaymentMethod string          `json:"payment_method" bun:"payment_method"`
	Status        OrderStatus     `json:"status" bun:"status"`
	StatusMessage string          `json:"status_message" bun:"status_message"`
	CreatedAt     time.Time       `json:"created_at" bun:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bun:"updated_at"`
}

// StatusUpdate is the set of fields written on a status transition.
// An empty PaymentMethod leaves the stored value untouched.
type StatusUpdate struct {
	Status        OrderStatus
	StatusMessage string
	PaymentMethod string
}

type CreateOrderRequest struct {
	GameID        string          `json:"game_id" binding:"required"`
	GameName      string          `json:"game_name" binding:"required"`
	PackageID     string          `json:"package_id" binding:"required"`
	PackageName   string          `json:"package_name" binding:"required"`
	PlayerID      string          `json:"player_id" binding:"required"`
	ServerID      string          `json:"server_id,omitempty"`
	PlayerName    string          `json:"player_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Status        OrderStatus     `json:"status,omitempty"`
}

type UpdateStatusRequest struct {
	Status        OrderStatus `json:"status" binding:"required"`
	StatusMessage string      `json:"status_message"`
}
