package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"library-service/internal/models"
	"library-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditStore struct {
	processed map[string]bool
	logs      []*models.SystemLog
	insertErr error
}

func newFakeAuditStore() *fakeAuditStore {
	return &fakeAuditStore{processed: map[string]bool{}}
}

func (f *fakeAuditStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return f.processed[eventID], nil
}

func (f *fakeAuditStore) InsertSystemLog(ctx context.Context, l *models.SystemLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeAuditStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.processed[eventID] = true
	return nil
}

func auditMessage(t *testing.T, event models.AuditEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Action), Value: value}
}

func TestHandleMessagePersistsEvent(t *testing.T) {
	store := newFakeAuditStore()
	w := &AuditWorker{store: store, logger: util.GetLogger()}

	event := models.AuditEvent{
		EventID:     "evt-1",
		Timestamp:   time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
		ActorType:   "admin",
		ActorID:     7,
		Action:      models.ActionBorrowCreated,
		TargetType:  models.TargetBorrow,
		TargetID:    42,
		Description: "borrow created: reader 1, book 1, 14 days",
		Origin:      "127.0.0.1",
	}

	require.NoError(t, w.HandleMessage(context.Background(), auditMessage(t, event)))

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, "admin", entry.ActorType)
	assert.Equal(t, int64(7), entry.ActorID)
	assert.Equal(t, models.ActionBorrowCreated, entry.Action)
	assert.Equal(t, int64(42), entry.TargetID)
	assert.Equal(t, event.Timestamp, entry.CreatedAt)
	assert.True(t, store.processed["evt-1"])
}

func TestHandleMessageDeduplicates(t *testing.T) {
	store := newFakeAuditStore()
	w := &AuditWorker{store: store, logger: util.GetLogger()}

	event := models.AuditEvent{
		EventID: "evt-dup",
		Action:  models.ActionBookReturned,
	}
	msg := auditMessage(t, event)

	ctx := context.Background()
	require.NoError(t, w.HandleMessage(ctx, msg))
	require.NoError(t, w.HandleMessage(ctx, msg))

	assert.Len(t, store.logs, 1)
}

func TestHandleMessageMalformedCommitsAway(t *testing.T) {
	store := newFakeAuditStore()
	w := &AuditWorker{store: store, logger: util.GetLogger()}

	msg := kafka.Message{Value: []byte("not json")}
	assert.NoError(t, w.HandleMessage(context.Background(), msg))
	assert.Empty(t, store.logs)
}

func TestHandleMessageStorageFailureRedelivers(t *testing.T) {
	store := newFakeAuditStore()
	store.insertErr = errors.New("connection refused")
	w := &AuditWorker{store: store, logger: util.GetLogger()}

	event := models.AuditEvent{EventID: "evt-2", Action: models.ActionFineApplied}
	err := w.HandleMessage(context.Background(), auditMessage(t, event))

	assert.Error(t, err)
	assert.False(t, store.processed["evt-2"])
}
