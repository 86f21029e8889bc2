package storage

import (
	"context"
	"errors"
	"time"

	"topup-gateway/internal/models"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderExists     = errors.New("order already exists")
	ErrGatewayNotFound = errors.New("payment gateway not found")
)

type Store interface {
	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, error)

	// TransitionOrder applies update only if the order's current status is one of from.
	// It reports whether a row was changed; false with a nil error means the status gate
	// did not match (or the order does not exist).
	TransitionOrder(ctx context.Context, orderID string, from []models.OrderStatus, update models.StatusUpdate) (bool, error)

	// FindStaleOrders returns orders in status whose updated_at is older than olderThan.
	FindStaleOrders(ctx context.Context, status models.OrderStatus, olderThan time.Duration) ([]*models.Order, error)

	GetGateway(ctx context.Context, slug string) (*models.PaymentGateway, error)
	SaveGateway(ctx context.Context, gateway *models.PaymentGateway) error

	Close() error
}
