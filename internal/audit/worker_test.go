package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	rows []*model.AuditLog
	err  error
}

func (s *memoryStore) Log(_ context.Context, entry *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, entry)
	return nil
}

func (s *memoryStore) saved() []*model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.AuditLog(nil), s.rows...)
}

func TestWorker_FlushesQueuedEntriesOnShutdown(t *testing.T) {
	store := &memoryStore{}
	w := NewWorker(store, 10, nil)
	w.Start()

	actor := uuid.New()
	for i := 0; i < 3; i++ {
		w.Log(context.Background(), Entry{
			Actor:      &actor,
			Action:     model.ActionCreateOrder,
			EntityKind: model.EntityOrder,
			EntityID:   uuid.NewString(),
			After:      map[string]string{"total_price": "53.00"},
		})
	}
	w.Shutdown()

	rows := store.saved()
	require.Len(t, rows, 3)
	assert.Equal(t, &actor, rows[0].UserID)
	assert.JSONEq(t, `{"total_price":"53.00"}`, string(rows[0].After))
	assert.Nil(t, rows[0].Before)
}

func TestWorker_DropsWhenBufferFull(t *testing.T) {
	store := &memoryStore{}
	w := NewWorker(store, 1, nil)

	w.Log(context.Background(), Entry{Action: "FIRST"})
	w.Log(context.Background(), Entry{Action: "SECOND"})

	w.Start()
	w.Shutdown()

	rows := store.saved()
	require.Len(t, rows, 1)
	assert.Equal(t, "FIRST", rows[0].Action)
}

func TestWorker_StoreFailureDoesNotStopWorker(t *testing.T) {
	store := &memoryStore{err: errors.New("db down")}
	w := NewWorker(store, 4, nil)
	w.Start()

	assert.NotPanics(t, func() {
		w.Log(context.Background(), Entry{Action: model.ActionVoidInvoice})
		w.Shutdown()
	})
	assert.Empty(t, store.saved())
}

func TestNop_Discards(t *testing.T) {
	var l Logger = Nop{}
	assert.NotPanics(t, func() { l.Log(context.Background(), Entry{Action: "ANY"}) })
}
