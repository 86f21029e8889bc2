package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"topup-gateway/internal/models"
	"topup-gateway/internal/storage"
)

const testSecret = "whsec_test_123"

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(event *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore wraps a store and fails the selected calls.
type failingStore struct {
	storage.Store
	transitionErr error
	getGatewayErr error
}

func (f *failingStore) TransitionOrder(ctx context.Context, id string, from []models.OrderStatus, u models.StatusUpdate) (bool, error) {
	if f.transitionErr != nil {
		return false, f.transitionErr
	}
	return f.Store.TransitionOrder(ctx, id, from, u)
}

func (f *failingStore) GetGateway(ctx context.Context, slug string) (*models.PaymentGateway, error) {
	if f.getGatewayErr != nil {
		return nil, f.getGatewayErr
	}
	return f.Store.GetGateway(ctx, slug)
}

func seedOrder(store storage.Store, id string, status models.OrderStatus) *models.Order {
	order := &models.Order{
		ID:          id,
		GameID:      "mlbb",
		GameName:    "Mobile Legends",
		PackageID:   "dm-86",
		PackageName: "86 Diamonds",
		PlayerID:    "12345678",
		ServerID:    "2001",
		Amount:      decimal.RequireFromString("1.50"),
		Currency:    "USD",
		Status:      status,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := store.SaveOrder(context.Background(), order); err != nil {
		panic(err)
	}
	return order
}

func seedSecret(store storage.Store, secret string) {
	gw := &models.PaymentGateway{
		Slug:     models.IkhodeGatewaySlug,
		Name:     "Ikhode Bakong",
		Settings: models.GatewaySettings{WebhookSecret: secret},
		IsActive: true,
	}
	if err := store.SaveGateway(context.Background(), gw); err != nil {
		panic(err)
	}
}
