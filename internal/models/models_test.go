package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.IsProcessable())
	assert.True(t, StatusPaid.IsProcessable())
	assert.False(t, StatusProcessing.IsProcessable())
	assert.False(t, StatusPendingManual.IsProcessable())

	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusPendingManual.IsTerminal())

	assert.True(t, StatusCancelled.Valid())
	assert.False(t, OrderStatus("refunded").Valid())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusProcessing))
	assert.True(t, CanTransition(StatusProcessing, StatusPendingManual))
	assert.True(t, CanTransition(StatusPendingManual, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusProcessing))
	assert.False(t, CanTransition(StatusProcessing, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusPaid))
}

func TestWebhookPayloadAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"snake case", `{"transaction_id":"tx_1"}`, "tx_1"},
		{"camel case", `{"transactionId":"tx_2"}`, "tx_2"},
		{"snake wins", `{"transaction_id":"tx_a","transactionId":"tx_b"}`, "tx_a"},
		{"empty snake falls back", `{"transaction_id":"","transactionId":"tx_c"}`, "tx_c"},
		{"missing", `{}`, "N/A"},
		{"numeric id", `{"transaction_id":12345}`, "12345"},
		{"large numeric id", `{"transactionId":900000000000000001}`, "900000000000000001"},
		{"null snake falls back", `{"transaction_id":null,"transactionId":"tx_d"}`, "tx_d"},
		{"zero falls back", `{"transaction_id":0,"transactionId":77}`, "77"},
		{"false is absent", `{"transaction_id":false}`, "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p WebhookPayload
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.want, p.TransactionRef())
		})
	}
}

func TestWebhookPayloadAmount(t *testing.T) {
	orderAmount := decimal.RequireFromString("5.00")

	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":4.75}`), &p))
	assert.True(t, p.ResolveAmount(orderAmount).Equal(decimal.RequireFromString("4.75")))

	p = WebhookPayload{}
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_id":"x"}`), &p))
	assert.True(t, p.ResolveAmount(orderAmount).Equal(orderAmount))
}

func TestGatewaySettingsColumn(t *testing.T) {
	v, err := GatewaySettings{WebhookSecret: "abc"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"webhook_secret":"abc"}`, v.(string))

	var s GatewaySettings
	require.NoError(t, s.Scan([]byte(`{"webhook_secret":"xyz","other":1}`)))
	assert.Equal(t, "xyz", s.WebhookSecret)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s.WebhookSecret)

	assert.Error(t, s.Scan(42))
}

func TestPaymentGatewayHidesSecretInJSON(t *testing.T) {
	b, err := json.Marshal(PaymentGateway{Slug: IkhodeGatewaySlug, Settings: GatewaySettings{WebhookSecret: "hidden"}})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hidden")
}
