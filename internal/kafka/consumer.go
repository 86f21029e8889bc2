package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
)

// OrderConsumer reads checkout-created orders from Kafka.
type OrderConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewOrderConsumer(brokers []string, groupID, topic string, log *logger.Logger) (*OrderConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_1_0_0

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &OrderConsumer{
		consumer: consumer,
		topics:   []string{topic},
		log:      log,
	}, nil
}

// ConsumeOrders blocks, feeding every decoded order to handler, until ctx is cancelled.
func (c *OrderConsumer) ConsumeOrders(ctx context.Context, handler func(context.Context, *models.Order) error) error {
	h := &OrderConsumerHandler{Handler: handler, Log: c.log}

	for {
		if err := c.consumer.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *OrderConsumer) Close() error {
	return c.consumer.Close()
}

type orderConsumerHandler struct {
	handler func(context.Context, *models.Order) error
	log     *logger.Logger
}

func (h *orderConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var order models.Order
		if err := json.Unmarshal(message.Value, &order); err != nil {
			h.log.Error("KAFKA", fmt.Sprintf("Failed to unmarshal order at %s/%d/%d: %v", message.Topic, message.Partition, message.Offset, err))
			// undecodable messages are skipped for good
			session.MarkMessage(message, "")
			continue
		}

		if err := h.handler(session.Context(), &order); err != nil {
			h.log.Error("KAFKA", fmt.Sprintf("Failed to handle order %s: %v", order.ID, err))
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
