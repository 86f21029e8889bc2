package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
)

type Producer struct {
	producer    sarama.SyncProducer
	mockMode    bool
	topicPrefix string
	log         *logger.Logger
}

func NewProducer(brokers []string, topicPrefix string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{
			mockMode:    true,
			topicPrefix: topicPrefix,
			log:         log,
		}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V2_1_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewProducerWithClient(producer, topicPrefix, log), nil
}

// NewProducerWithClient wraps an existing sync producer.
func NewProducerWithClient(producer sarama.SyncProducer, topicPrefix string, log *logger.Logger) *Producer {
	return &Producer{
		producer:    producer,
		topicPrefix: topicPrefix,
		log:         log,
	}
}

// PublishOrderEvent sends an order lifecycle event keyed by order ID, so every
// event for one order lands on the same partition in order.
func (p *Producer) PublishOrderEvent(event *models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.TopicForEvent(event.Type)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event: %s for order: %s", event.Type, event.OrderID))
		p.log.Debug("KAFKA", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d for order %s", partition, offset, event.OrderID))
	return nil
}

func (p *Producer) TopicForEvent(eventType string) string {
	switch eventType {
	case models.EventOrderCreated:
		return p.topicPrefix + ".created"
	case models.EventOrderProcessing:
		return p.topicPrefix + ".processing"
	case models.EventOrderPendingManual:
		return p.topicPrefix + ".pending_manual"
	default:
		return p.topicPrefix + ".status"
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}

	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
