package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topup-gateway/internal/config"
	"topup-gateway/internal/handlers"
	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
	"topup-gateway/internal/services"
	"topup-gateway/internal/storage"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, string) error { return nil }

func testRouter(t *testing.T, adminKey string) (http.Handler, *storage.InMemoryStore) {
	t.Helper()
	log = logger.Discard()

	cfg := config.Load()
	cfg.AdminAPIKey = adminKey
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}

	store := storage.NewInMemoryStore()
	gw := services.NewGatewayService(store, nil, 0, log)
	orders := services.NewOrderService(store, nil, log)
	webhooks := services.NewWebhookService(store, gw, noopDispatcher{}, nil, log)

	return setupRouter(cfg, routeHandlers{
		webhook: handlers.NewWebhookHandler(webhooks, log),
		orders:  handlers.NewOrderHandler(orders, log),
		gateway: handlers.NewGatewayHandler(gw, log),
		health:  handlers.NewHealthHandler("topup-gateway", nil),
	}), store
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterEndToEnd(t *testing.T) {
	router, store := testRouter(t, "admin-key")
	ctx := context.Background()

	// The webhook stays closed until an operator sets the gateway secret.
	w := serve(router, http.MethodPost, "/functions/v1/ikhode-webhook/ord_x", "", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(router, http.MethodPut, "/api/v1/gateways/"+models.IkhodeGatewaySlug+"/secret", "admin-key", `{"webhook_secret":"hook"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	now := time.Now().UTC()
	require.NoError(t, store.SaveOrder(ctx, &models.Order{ID: "ord_e2e", Status: models.StatusPending, CreatedAt: now, UpdatedAt: now}))

	w = serve(router, http.MethodPost, "/functions/v1/ikhode-webhook/ord_e2e", "hook", `{"transaction_id":"tx_1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"success","message":"Payment recorded successfully."}`, w.Body.String())

	order, err := store.GetOrder(ctx, "ord_e2e")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, order.Status)

	w = serve(router, http.MethodPatch, "/api/v1/orders/ord_e2e/status", "admin-key", `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterAdminRoutesRequireKey(t *testing.T) {
	router, _ := testRouter(t, "admin-key")

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/orders", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPut, "/api/v1/gateways/x/secret", "nope", `{"webhook_secret":"a"}`).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/orders", "admin-key", "").Code)

	router, _ = testRouter(t, "")
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/api/v1/orders", "anything", "").Code)
}

func TestRouterPreflightAndOps(t *testing.T) {
	router, _ := testRouter(t, "")

	w := serve(router, http.MethodOptions, "/functions/v1/ikhode-webhook/ord_1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "", "").Code)

	w = serve(router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
