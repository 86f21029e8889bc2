package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderID(t *testing.T) {
	a := GenerateOrderID()
	b := GenerateOrderID()

	assert.Regexp(t, regexp.MustCompile(`^ord_[0-9a-f]{32}$`), a)
	assert.NotEqual(t, a, b)
}

func TestResponses(t *testing.T) {
	errResp := ErrorResponse("Order not found", "")
	assert.Equal(t, false, errResp["success"])
	assert.NotContains(t, errResp, "error")

	errResp = ErrorResponse("Invalid request payload", "boom")
	assert.Equal(t, "boom", errResp["error"])

	ok := SuccessResponse("Order retrieved", map[string]string{"id": "ord_1"})
	assert.Equal(t, true, ok["success"])
	assert.Contains(t, ok, "data")

	assert.Equal(t, "success", WebhookResponse("success", "Payment recorded successfully.")["status"])
}

func TestUnixTimeToTime(t *testing.T) {
	assert.Equal(t, int64(1700000000), UnixTimeToTime(1700000000).Unix())
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(24)
	assert.NoError(t, err)
	assert.Len(t, s, 48)

	other, err := GenerateSecret(24)
	assert.NoError(t, err)
	assert.NotEqual(t, s, other)
}
