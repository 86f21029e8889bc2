package worker

import (
	"context"
	"fmt"
	"time"

	"topup-gateway/internal/logger"
	"topup-gateway/internal/metrics"
	"topup-gateway/internal/models"
	"topup-gateway/internal/storage"
	"topup-gateway/internal/utils"
)

const StaleProcessingMessage = "Fulfillment did not report back in time. Manual processing required."

type EventPublisher interface {
	PublishOrderEvent(event *models.OrderEvent) error
}

// StaleOrderSweeper hands orders stuck in processing over to operators.
type StaleOrderSweeper struct {
	store      storage.Store
	publisher  EventPublisher
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
}

func NewStaleOrderSweeper(store storage.Store, publisher EventPublisher, log *logger.Logger, interval, staleAfter time.Duration) *StaleOrderSweeper {
	return &StaleOrderSweeper{
		store:      store,
		publisher:  publisher,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (w *StaleOrderSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.LogProcess("SWEEPER", fmt.Sprintf("Stale order sweeper started (interval %s, stale after %s)", w.interval, w.staleAfter))

	for {
		select {
		case <-ctx.Done():
			w.log.LogProcess("SWEEPER", "Stale order sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Error("SWEEPER", fmt.Sprintf("Sweep failed: %v", err))
			}
		}
	}
}

// Sweep moves stale processing orders to pending_manual and returns how many were moved.
func (w *StaleOrderSweeper) Sweep(ctx context.Context) (int, error) {
	stale, err := w.store.FindStaleOrders(ctx, models.StatusProcessing, w.staleAfter)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	w.log.Warn("SWEEPER", fmt.Sprintf("Found %d orders stuck in processing", len(stale)))

	moved := 0
	for _, order := range stale {
		update := models.StatusUpdate{
			Status:        models.StatusPendingManual,
			StatusMessage: StaleProcessingMessage,
		}
		applied, err := w.store.TransitionOrder(ctx, order.ID, []models.OrderStatus{models.StatusProcessing}, update)
		if err != nil {
			w.log.Error("SWEEPER", fmt.Sprintf("Failed to flag order %s: %v", order.ID, err))
			continue
		}
		if !applied {
			// fulfillment finished between the query and the update
			continue
		}
		moved++
		metrics.OrderTransitions.WithLabelValues(string(models.StatusProcessing), string(models.StatusPendingManual)).Inc()
		w.log.LogOrder("STALE", order.ID, "Moved to pending_manual")

		order.Status = update.Status
		order.StatusMessage = update.StatusMessage
		w.publish(order)
	}
	return moved, nil
}

func (w *StaleOrderSweeper) publish(order *models.Order) {
	if w.publisher == nil {
		return
	}
	event := &models.OrderEvent{
		EventID:   utils.GenerateEventID(),
		Type:      models.EventOrderPendingManual,
		OrderID:   order.ID,
		Status:    order.Status,
		Amount:    order.Amount,
		Message:   order.StatusMessage,
		Timestamp: time.Now().UTC(),
	}
	if err := w.publisher.PublishOrderEvent(event); err != nil {
		w.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for order %s: %v", event.Type, order.ID, err))
	}
}
