package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"topup-gateway/internal/models"
)

type InMemoryStore struct {
	orders   map[string]*models.Order
	gateways map[string]*models.PaymentGateway
	mutex    sync.RWMutex
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:   make(map[string]*models.Order),
		gateways: make(map[string]*models.PaymentGateway),
		now:      time.Now,
	}
}

func (s *InMemoryStore) SaveOrder(_ context.Context, order *models.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return ErrOrderExists
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *InMemoryStore) ListOrders(_ context.Context, status models.OrderStatus, limit, offset int) ([]*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matched []*models.Order
	for _, order := range s.orders {
		if status == "" || order.Status == status {
			cp := *order
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*models.Order{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *InMemoryStore) TransitionOrder(_ context.Context, orderID string, from []models.OrderStatus, update models.StatusUpdate) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, exists := s.orders[orderID]
	if !exists || !statusIn(order.Status, from) {
		return false, nil
	}

	order.Status = update.Status
	order.StatusMessage = update.StatusMessage
	if update.PaymentMethod != "" {
		order.PaymentMethod = update.PaymentMethod
	}
	order.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *InMemoryStore) FindStaleOrders(_ context.Context, status models.OrderStatus, olderThan time.Duration) ([]*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := s.now().Add(-olderThan)
	var stale []*models.Order
	for _, order := range s.orders {
		if order.Status == status && order.UpdatedAt.Before(cutoff) {
			cp := *order
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func (s *InMemoryStore) GetGateway(_ context.Context, slug string) (*models.PaymentGateway, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	gw, exists := s.gateways[slug]
	if !exists {
		return nil, ErrGatewayNotFound
	}
	cp := *gw
	return &cp, nil
}

func (s *InMemoryStore) SaveGateway(_ context.Context, gateway *models.PaymentGateway) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cp := *gateway
	s.gateways[gateway.Slug] = &cp
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

func statusIn(status models.OrderStatus, set []models.OrderStatus) bool {
	for _, st := range set {
		if st == status {
			return true
		}
	}
	return false
}
