// Package audit records who changed what, off the request path.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entry describes one committed change. Before, After and Extra are any
// JSON-serializable values; nil fields are stored as SQL NULL.
type Entry struct {
	Actor      *uuid.UUID
	Action     string
	EntityKind string
	EntityID   string
	Before     any
	After      any
	Extra      any
}

// Logger is fire-and-forget: Log never blocks and never fails the caller.
type Logger interface {
	Log(ctx context.Context, e Entry)
}

// Store persists audit rows. repository.AuditRepository satisfies it.
type Store interface {
	Log(ctx context.Context, entry *model.AuditLog) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Log(context.Context, Entry) {}

// toRow snapshots the entry so later mutation of the caller's values cannot leak in.
func toRow(e Entry) *model.AuditLog {
	return &model.AuditLog{
		UserID:     e.Actor,
		Action:     e.Action,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Before:     marshal(e.Before),
		After:      marshal(e.After),
		Extra:      marshal(e.Extra),
		CreatedAt:  time.Now().UTC(),
	}
}

func marshal(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return datatypes.JSON(b)
}
