package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"library-service/internal/broker"
	"library-service/internal/models"
	"library-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AuditStore persists audit events exactly once.
type AuditStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	InsertSystemLog(ctx context.Context, l *models.SystemLog) error
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AuditWorker consumes audit events from the broker and appends them to
// system_logs. The recorder publishes at-least-once, so the worker
// deduplicates on event ID.
type AuditWorker struct {
	consumer *broker.Consumer
	store    AuditStore
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker.
func NewAuditWorker(consumer *broker.Consumer, store AuditStore) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}
}

// Start consumes until the context is cancelled.
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop closes the consumer.
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.consumer.Close()
}

// HandleMessage persists one audit event. Returning an error leaves the
// message uncommitted for redelivery.
func (w *AuditWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.AuditEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// A malformed event can never succeed; log and commit it away.
		w.logger.Error("Dropping malformed audit event", zap.Error(err))
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Debug("Audit event already persisted", zap.String("event_id", event.EventID))
		return nil
	}

	entry := &models.SystemLog{
		ActorType:   event.ActorType,
		ActorID:     event.ActorID,
		Action:      event.Action,
		TargetType:  event.TargetType,
		TargetID:    event.TargetID,
		Description: event.Description,
		Origin:      event.Origin,
		CreatedAt:   event.Timestamp,
	}
	if err := w.store.InsertSystemLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert system log: %w", err)
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.Action); err != nil {
		w.logger.Error("Failed to mark audit event processed",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
	return nil
}
