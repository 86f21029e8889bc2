package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// IkhodeGatewaySlug identifies the only payment gateway allowed to call the webhook.
const IkhodeGatewaySlug = "ikhode-bakong"

// GatewaySettings is the JSON config column of a payment gateway row.
type GatewaySettings struct {
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

func (s GatewaySettings) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *GatewaySettings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = GatewaySettings{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("gateway settings: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = GatewaySettings{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

type PaymentGateway struct {
	bun.BaseModel `bun:"table:payment_gateways"`

	Slug      string          `json:"slug" bun:"slug,pk"`
	Name      string          `json:"name" bun:"name"`
	Settings  GatewaySettings `json:"-" bun:"config"`
	IsActive  bool            `json:"is_active" bun:"is_active"`
	UpdatedAt time.Time       `json:"updated_at" bun:"updated_at"`
}

type UpdateSecretRequest struct {
	WebhookSecret string `json:"webhook_secret" binding:"required"`
}
