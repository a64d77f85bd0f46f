// Package audit emits a fire-and-forget record of every mutating operation.
// Emission is out-of-band: a failure is counted and logged, never surfaced
// to the operation that triggered it.
package audit

import (
	"context"
	"fmt"
	"time"

	"library-service/internal/models"
	"library-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher sends one serialized event to the audit topic.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// Recorder publishes audit events asynchronously.
type Recorder struct {
	publisher Publisher
	logger    *zap.Logger
	timeout   time.Duration
}

// NewRecorder creates a recorder over the given publisher.
func NewRecorder(publisher Publisher) *Recorder {
	return &Recorder{
		publisher: publisher,
		logger:    util.GetLogger(),
		timeout:   5 * time.Second,
	}
}

// Record publishes the event without blocking the caller. The request
// context is not reused: the operation has already committed and its
// cancellation must not cancel the audit write.
func (r *Recorder) Record(ctx context.Context, event models.AuditEvent) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	key := event.Action
	if event.TargetType != "" {
		key = fmt.Sprintf("%s-%d", event.TargetType, event.TargetID)
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.publisher.PublishEvent(pubCtx, key, event); err != nil {
			util.AuditEventsDropped.Inc()
			r.logger.Error("Failed to publish audit event",
				zap.String("event_id", event.EventID),
				zap.String("action", event.Action),
				zap.Error(err))
			return
		}
		util.AuditEventsPublished.Inc()
	}()
}
