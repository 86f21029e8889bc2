package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"topup-gateway/internal/kafka"
	"topup-gateway/internal/logger"
	"topup-gateway/internal/models"
)

func testOrder(id string) *models.Order {
	return &models.Order{
		ID:          id,
		GameID:      "mlbb",
		GameName:    "Mobile Legends",
		PackageID:   "pkg-86",
		PackageName: "86 Diamonds",
		PlayerID:    "12345678",
		ServerID:    "1234",
		Amount:      decimal.RequireFromString("5.00"),
		Currency:    "USD",
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// TestOrderConsumerIntegration tests the order consumer with a real Kafka broker
// This test requires a running Kafka broker
func TestOrderConsumerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = "localhost:29092" // Default from docker-compose
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer([]string{kafkaBrokers}, config)
	if err != nil {
		t.Skip("Skipping test because Kafka is not available:", err)
		return
	}
	defer producer.Close()

	topic := "topup.checkout.orders.test"
	uniqueID := fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), time.Now().UnixNano()%10000)
	order := testOrder("ord_it_" + uniqueID)

	handlerCalled := make(chan *models.Order, 1)
	testHandler := func(_ context.Context, got *models.Order) error {
		if got.ID == order.ID {
			handlerCalled <- got
		}
		return nil
	}

	consumer, err := kafka.NewOrderConsumer([]string{kafkaBrokers}, "test-consumer-group-"+uniqueID, topic, logger.Discard())
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := consumer.ConsumeOrders(ctx, testHandler)
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Consumer error: %v", err)
		}
	}()

	// give the group time to join before producing, offsets start at newest
	time.Sleep(3 * time.Second)

	orderJSON, err := json.Marshal(order)
	require.NoError(t, err)
	_, _, err = producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(order.ID),
		Value: sarama.ByteEncoder(orderJSON),
	})
	require.NoError(t, err)

	select {
	case got := <-handlerCalled:
		assert.Equal(t, order.PlayerID, got.PlayerID)
		assert.True(t, order.Amount.Equal(got.Amount))
	case <-time.After(20 * time.Second):
		t.Fatalf("Timeout waiting for message to be consumed: %s", order.ID)
	}
}

// TestOrderConsumerHandler drives ConsumeClaim directly without a broker.
func TestOrderConsumerHandler(t *testing.T) {
	good := testOrder("ord_unit_1")
	goodJSON, _ := json.Marshal(good)
	failing := testOrder("ord_unit_fail")
	failingJSON, _ := json.Marshal(failing)

	goodMsg := &sarama.ConsumerMessage{Topic: "topup.checkout.orders", Offset: 0, Value: goodJSON}
	badMsg := &sarama.ConsumerMessage{Topic: "topup.checkout.orders", Offset: 1, Value: []byte("{not json")}
	failMsg := &sarama.ConsumerMessage{Topic: "topup.checkout.orders", Offset: 2, Value: failingJSON}

	msgChan := make(chan *sarama.ConsumerMessage, 3)
	msgChan <- goodMsg
	msgChan <- badMsg
	msgChan <- failMsg
	close(msgChan)

	mockSession := &MockConsumerGroupSession{}
	mockSession.On("Context").Return(context.Background())
	mockSession.On("MarkMessage", goodMsg, "").Return()
	mockSession.On("MarkMessage", badMsg, "").Return()

	mockClaim := &MockConsumerGroupClaim{}
	mockClaim.On("Messages").Return(msgChan)

	var handled []string
	handler := &kafka.OrderConsumerHandler{
		Handler: func(_ context.Context, order *models.Order) error {
			handled = append(handled, order.ID)
			if order.ID == failing.ID {
				return errors.New("store unavailable")
			}
			return nil
		},
		Log: logger.Discard(),
	}

	require.NoError(t, handler.Setup(mockSession))
	require.NoError(t, handler.ConsumeClaim(mockSession, mockClaim))
	require.NoError(t, handler.Cleanup(mockSession))

	assert.Equal(t, []string{good.ID, failing.ID}, handled)
	mockSession.AssertCalled(t, "MarkMessage", goodMsg, "")
	mockSession.AssertCalled(t, "MarkMessage", badMsg, "")
	mockSession.AssertNotCalled(t, "MarkMessage", failMsg, "")
	mockClaim.AssertExpectations(t)
}

func TestProducerPublishOrderEvent(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event models.OrderEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.OrderID != "ord_1" || event.Status != models.StatusProcessing {
			return fmt.Errorf("unexpected event %+v", event)
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := kafka.NewProducerWithClient(sp, "topup.order", logger.Discard())

	event := &models.OrderEvent{
		Type:          models.EventOrderProcessing,
		OrderID:       "ord_1",
		Status:        models.StatusProcessing,
		TransactionID: "tx_99",
		Timestamp:     time.Now(),
	}
	require.NoError(t, p.PublishOrderEvent(event))

	err := p.PublishOrderEvent(event)
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestProducerTopics(t *testing.T) {
	p := kafka.NewProducerWithClient(nil, "topup.order", logger.Discard())

	assert.Equal(t, "topup.order.created", p.TopicForEvent(models.EventOrderCreated))
	assert.Equal(t, "topup.order.processing", p.TopicForEvent(models.EventOrderProcessing))
	assert.Equal(t, "topup.order.pending_manual", p.TopicForEvent(models.EventOrderPendingManual))
	assert.Equal(t, "topup.order.status", p.TopicForEvent(models.EventOrderStatusChanged))
}

func TestMockModeProducerDoesNotNeedBrokers(t *testing.T) {
	p, err := kafka.NewProducer(nil, "topup.order", true, logger.Discard())
	require.NoError(t, err)
	assert.NoError(t, p.PublishOrderEvent(&models.OrderEvent{Type: models.EventOrderCreated, OrderID: "ord_1"}))
	assert.NoError(t, p.Close())
}

// Mock implementations for Sarama interfaces
type MockConsumerGroupSession struct {
	mock.Mock
}

func (m *MockConsumerGroupSession) Claims() map[string][]int32 {
	args := m.Called()
	return args.Get(0).(map[string][]int32)
}

func (m *MockConsumerGroupSession) MemberID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupSession) GenerationID() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) Commit() {
	m.Called()
}

func (m *MockConsumerGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	m.Called(msg, metadata)
}

func (m *MockConsumerGroupSession) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

type MockConsumerGroupClaim struct {
	mock.Mock
}

func (m *MockConsumerGroupClaim) Topic() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupClaim) Partition() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupClaim) InitialOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) HighWaterMarkOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	args := m.Called()
	return args.Get(0).(chan *sarama.ConsumerMessage)
}
