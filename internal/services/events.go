package services

import (
	"fmt"
	"time"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
	"topup-gateway/internal/utils"
)

type EventPublisher interface {
	PublishOrderEvent(event *models.OrderEvent) error
}

// publishOrderEvent never fails the caller: the order row is the source of truth
// and events are best-effort notifications.
func publishOrderEvent(publisher EventPublisher, log *logger.Logger, eventType string, order *models.Order, txID string) {
	if publisher == nil {
		return
	}

	event := &models.OrderEvent{
		EventID:       utils.GenerateEventID(),
		Type:          eventType,
		OrderID:       order.ID,
		Status:        order.Status,
		Amount:        order.Amount,
		TransactionID: txID,
		Message:       order.StatusMessage,
		Timestamp:     time.Now().UTC(),
	}

	if err := publisher.PublishOrderEvent(event); err != nil {
		log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for order %s: %v", eventType, order.ID, err))
		log.LogProcess("FALLBACK", fmt.Sprintf("Order %s processed successfully despite Kafka publish failure", order.ID))
		return
	}
	log.LogKafka("PUBLISHED", "order-events", fmt.Sprintf("Published %s event for order %s", eventType, order.ID))
}
