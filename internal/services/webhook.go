package services

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"topup-gateway/internal/fulfillment"
	"topup-gateway/internal/logger"
	"topup-gateway/internal/metrics"
	"topup-gateway/internal/models"
	"topup-gateway/internal/storage"
)

const (
	// WebhookRouteName is the last path segment of the receiver when no order id is given.
	WebhookRouteName = "ikhode-webhook"

	IkhodePaymentMethod = "Kesor KHQR"
)

type SecretProvider interface {
	WebhookSecret(ctx context.Context, slug string) (string, error)
}

type WebhookRequest struct {
	OrderID string
	Token   string
	Body    []byte
}

type WebhookOutcome struct {
	OrderID string
	// Status is the order status after handling, or the status that stopped processing.
	Status models.OrderStatus
	// AlreadyProcessed is set when the order was no longer pending or paid.
	AlreadyProcessed  bool
	TransactionID     string
	FulfillmentFailed bool
}

func (o *WebhookOutcome) Message() string {
	if o.AlreadyProcessed {
		return fmt.Sprintf("Order already %s.", o.Status)
	}
	return "Payment recorded successfully."
}

// WebhookService records provider payment confirmations against orders and
// hands paid orders to fulfillment.
type WebhookService struct {
	store      storage.Store
	secrets    SecretProvider
	dispatcher fulfillment.Dispatcher
	publisher  EventPublisher
	log        *logger.Logger
	tracer     trace.Tracer
}

func NewWebhookService(store storage.Store, secrets SecretProvider, dispatcher fulfillment.Dispatcher, publisher EventPublisher, log *logger.Logger) *WebhookService {
	return &WebhookService{
		store:      store,
		secrets:    secrets,
		dispatcher: dispatcher,
		publisher:  publisher,
		log:        log,
		tracer:     otel.Tracer("topup-gateway/webhook"),
	}
}

func (s *WebhookService) HandlePayment(ctx context.Context, req WebhookRequest) (outcome *WebhookOutcome, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "webhook.handle-payment", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(attribute.String("order.id", req.OrderID))
	defer func() {
		label := outcomeLabel(outcome, err)
		span.SetAttributes(attribute.String("webhook.outcome", label))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.WebhookRequests.WithLabelValues(label).Inc()
		metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.authenticate(ctx, req.Token); err != nil {
		return nil, err
	}

	if req.OrderID == "" || req.OrderID == WebhookRouteName {
		s.log.Warn("WEBHOOK", "Webhook called without an order id")
		return nil, ErrOrderNotResolved
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if errors.Is(err, storage.ErrOrderNotFound) {
		s.log.Warn("WEBHOOK", fmt.Sprintf("Webhook for unknown order %s", req.OrderID))
		return nil, ErrOrderNotResolved
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", req.OrderID, err)
	}

	if !order.Status.IsProcessable() {
		s.log.LogOrder("SKIP", order.ID, fmt.Sprintf("Order already %s, ignoring webhook", order.Status))
		return &WebhookOutcome{OrderID: order.ID, Status: order.Status, AlreadyProcessed: true}, nil
	}

	payload, err := decodePayload(req.Body)
	if err != nil {
		s.log.Error("WEBHOOK", fmt.Sprintf("Malformed webhook body for order %s: %v", order.ID, err))
		return nil, err
	}

	txID := payload.TransactionRef()
	paid := payload.ResolveAmount(order.Amount)
	if !paid.Equal(order.Amount) {
		s.log.Warn("WEBHOOK", fmt.Sprintf("Amount mismatch on order %s: paid %s, order %s", order.ID, paid.String(), order.Amount.String()))
	}
	s.log.LogPayment("RECEIVED", txID, fmt.Sprintf("Payment of %s for order %s", paid.String(), order.ID))

	update := models.StatusUpdate{
		Status:        models.StatusProcessing,
		StatusMessage: fmt.Sprintf("Payment confirmed. Transaction: %s. Processing order...", txID),
		PaymentMethod: IkhodePaymentMethod,
	}
	applied, err := s.store.TransitionOrder(ctx, order.ID, models.ProcessableStatuses(), update)
	if err != nil {
		s.log.Error("WEBHOOK", fmt.Sprintf("Failed to record payment on order %s: %v", order.ID, err))
		return nil, fmt.Errorf("%w: %v", ErrTransitionFailed, err)
	}
	if !applied {
		return s.alreadyHandled(ctx, order.ID)
	}
	metrics.OrderTransitions.WithLabelValues(string(order.Status), string(models.StatusProcessing)).Inc()

	order.Status = update.Status
	order.StatusMessage = update.StatusMessage
	order.PaymentMethod = update.PaymentMethod
	publishOrderEvent(s.publisher, s.log, models.EventOrderProcessing, order, txID)

	outcome = &WebhookOutcome{OrderID: order.ID, Status: models.StatusProcessing, TransactionID: txID}

	// The payment is recorded; finish fulfillment even if the provider hangs up.
	s.fulfill(context.WithoutCancel(ctx), order, txID, outcome)
	return outcome, nil
}

func (s *WebhookService) authenticate(ctx context.Context, token string) error {
	secret, err := s.secrets.WebhookSecret(ctx, models.IkhodeGatewaySlug)
	if err != nil {
		return fmt.Errorf("load webhook secret: %w", err)
	}
	if secret == "" {
		s.log.LogSecurity("WEBHOOK_SECRET_MISSING", "No webhook secret configured for "+models.IkhodeGatewaySlug)
		return ErrSecretNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		s.log.LogSecurity("WEBHOOK_UNAUTHORIZED", "Webhook rejected: bearer token does not match")
		return ErrUnauthorized
	}
	return nil
}

// alreadyHandled reports the current status of an order whose conditional update lost the race.
func (s *WebhookService) alreadyHandled(ctx context.Context, orderID string) (*WebhookOutcome, error) {
	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload order %s: %v", ErrTransitionFailed, orderID, err)
	}
	s.log.LogOrder("SKIP", orderID, fmt.Sprintf("Concurrent delivery already moved order to %s", current.Status))
	return &WebhookOutcome{OrderID: orderID, Status: current.Status, AlreadyProcessed: true}, nil
}

func (s *WebhookService) fulfill(ctx context.Context, order *models.Order, txID string, outcome *WebhookOutcome) {
	err := s.dispatcher.Dispatch(ctx, order.ID)
	if err == nil {
		metrics.FulfillmentDispatches.WithLabelValues("accepted").Inc()
		s.log.LogOrder("FULFILL", order.ID, "Fulfillment dispatched")
		return
	}

	metrics.FulfillmentDispatches.WithLabelValues("failed").Inc()
	s.log.Error("FULFILLMENT", fmt.Sprintf("Auto-fulfillment failed for order %s: %v", order.ID, err))
	outcome.FulfillmentFailed = true

	update := models.StatusUpdate{
		Status:        models.StatusPendingManual,
		StatusMessage: fmt.Sprintf("Payment confirmed. Auto-fulfillment failed: %s. Manual processing required.", dispatchReason(err)),
	}
	applied, werr := s.store.TransitionOrder(ctx, order.ID, []models.OrderStatus{models.StatusProcessing}, update)
	if werr != nil {
		s.log.Error("WEBHOOK", fmt.Sprintf("Failed to flag order %s for manual processing: %v", order.ID, werr))
		return
	}
	if !applied {
		s.log.Warn("WEBHOOK", fmt.Sprintf("Order %s left processing before it could be flagged for manual processing", order.ID))
		return
	}
	metrics.OrderTransitions.WithLabelValues(string(models.StatusProcessing), string(models.StatusPendingManual)).Inc()

	order.Status = update.Status
	order.StatusMessage = update.StatusMessage
	outcome.Status = update.Status
	publishOrderEvent(s.publisher, s.log, models.EventOrderPendingManual, order, txID)
}

func decodePayload(body []byte) (models.WebhookPayload, error) {
	var payload models.WebhookPayload
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}

// dispatchReason strips the sentinel prefix so the stored message reads like the function's own error.
func dispatchReason(err error) string {
	msg := err.Error()
	prefix := fulfillment.ErrDispatchFailed.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func outcomeLabel(outcome *WebhookOutcome, err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrSecretNotConfigured):
		return metrics.OutcomeNotConfigured
	case errors.Is(err, ErrOrderNotResolved):
		return metrics.OutcomeNotFound
	case err != nil:
		return metrics.OutcomeError
	case outcome != nil && outcome.AlreadyProcessed:
		return metrics.OutcomeAlready
	default:
		return metrics.OutcomeRecorded
	}
}
