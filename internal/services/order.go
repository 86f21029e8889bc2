package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/metrics"
	"topup-gateway/internal/models"
	"topup-gateway/internal/storage"
	"topup-gateway/internal/utils"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100

	defaultCurrency = "USD"
)

type OrderService struct {
	store     storage.Store
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewOrderService(store storage.Store, publisher EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     utils.GenerateOrderID,
	}
}

// CreateOrder records a checkout. Orders start pending unless the checkout
// already collected payment, in which case they may start paid.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := s.now()
	order := &models.Order{
		ID:            s.newID(),
		GameID:        req.GameID,
		GameName:      req.GameName,
		PackageID:     req.PackageID,
		PackageName:   req.PackageName,
		PlayerID:      strings.TrimSpace(req.PlayerID),
		ServerID:      req.ServerID,
		PlayerName:    req.PlayerName,
		Amount:        req.Amount,
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		StatusMessage: "Awaiting payment.",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == models.StatusPaid {
		order.StatusMessage = "Payment received. Awaiting processing."
	}

	if err := s.store.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.log.LogOrder("CREATED", order.ID, fmt.Sprintf("%s %s for player %s (%s %s)",
		order.GameName, order.PackageName, order.PlayerID, order.Amount.StringFixed(2), order.Currency))
	publishOrderEvent(s.publisher, s.log, models.EventOrderCreated, order, "")
	return order, nil
}

// ImportOrder stores an order produced by the checkout pipeline. Redelivered
// orders that already exist are skipped.
func (s *OrderService) ImportOrder(ctx context.Context, order *models.Order) error {
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return fmt.Errorf("%w: missing order id", ErrInvalidOrder)
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if !order.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, order.Status)
	}

	now := s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	err := s.store.SaveOrder(ctx, order)
	if errors.Is(err, storage.ErrOrderExists) {
		s.log.LogOrder("DUPLICATE", order.ID, "Order already imported, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("import order %s: %w", order.ID, err)
	}

	s.log.LogOrder("IMPORTED", order.ID, fmt.Sprintf("Imported %s order from checkout", order.Status))
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListOrders(ctx, status, limit, offset)
}

// UpdateStatus applies an operator or fulfillment status change. The update is
// conditional on the status read here, so a concurrent change yields ErrConcurrentUpdate.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to models.OrderStatus, message string) (*models.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	update := models.StatusUpdate{Status: to, StatusMessage: message}
	applied, err := s.store.TransitionOrder(ctx, orderID, []models.OrderStatus{from}, update)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if !applied {
		return nil, ErrConcurrentUpdate
	}
	metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()

	updated, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.LogOrder("STATUS", orderID, fmt.Sprintf("%s -> %s", from, to))
	publishOrderEvent(s.publisher, s.log, models.EventOrderStatusChanged, updated, "")
	return updated, nil
}

func validateCreate(req *models.CreateOrderRequest) error {
	var missing []string
	if strings.TrimSpace(req.GameID) == "" {
		missing = append(missing, "game_id")
	}
	if strings.TrimSpace(req.PackageID) == "" {
		missing = append(missing, "package_id")
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		missing = append(missing, "player_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidOrder, strings.Join(missing, ", "))
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if req.Status != "" && !req.Status.IsProcessable() {
		return fmt.Errorf("%w: new orders must be pending or paid", ErrInvalidOrder)
	}
	return nil
}
