package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
)

// OrderConsumerHandler is exported for testing purposes
type OrderConsumerHandler struct {
	Handler func(context.Context, *models.Order) error
	Log     *logger.Logger
}

// ConsumeClaim processes Kafka messages
func (h *OrderConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log := h.Log
	if log == nil {
		log = logger.Discard()
	}
	return (&orderConsumerHandler{
		handler: h.Handler,
		log:     log,
	}).ConsumeClaim(session, claim)
}

// Setup is called before consuming starts
func (h *OrderConsumerHandler) Setup(session sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is called after consuming ends
func (h *OrderConsumerHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}
