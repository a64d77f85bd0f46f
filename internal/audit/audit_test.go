package audit

import (
	"context"
	"testing"
	"time"

	"library-service/internal/models"
	"library-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key   string
	event models.AuditEvent
}

type fakePublisher struct {
	ch chan published
}

func (f *fakePublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	f.ch <- published{key: key, event: event.(models.AuditEvent)}
	return nil
}

func TestRecordFillsIdentityAndPublishes(t *testing.T) {
	pub := &fakePublisher{ch: make(chan published, 1)}
	r := &Recorder{publisher: pub, logger: util.GetLogger(), timeout: time.Second}

	r.Record(context.Background(), models.AuditEvent{
		ActorType:  "admin",
		ActorID:    7,
		Action:     models.ActionBorrowCreated,
		TargetType: models.TargetBorrow,
		TargetID:   42,
	})

	select {
	case got := <-pub.ch:
		assert.Equal(t, "borrow-42", got.key)
		assert.NotEmpty(t, got.event.EventID)
		assert.False(t, got.event.Timestamp.IsZero())
		assert.Equal(t, models.ActionBorrowCreated, got.event.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestRecordKeyFallsBackToAction(t *testing.T) {
	pub := &fakePublisher{ch: make(chan published, 1)}
	r := &Recorder{publisher: pub, logger: util.GetLogger(), timeout: time.Second}

	r.Record(context.Background(), models.AuditEvent{
		ActorType: "admin",
		ActorID:   7,
		Action:    models.ActionLogin,
	})

	select {
	case got := <-pub.ch:
		require.Equal(t, models.ActionLogin, got.key)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}
