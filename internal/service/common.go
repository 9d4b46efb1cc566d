package service

import (
	"context"
	"errors"
	"strings"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/middleware"
	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

// Notifier pushes committed changes to connected clients. *websocket.Hub satisfies it.
type Notifier interface {
	Publish(event string, data any)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(string, any) {}

// Observers bundles the post-commit side channels shared by every service.
type Observers struct {
	Audit    audit.Logger
	Notifier Notifier
}

func (o Observers) withDefaults() Observers {
	if o.Audit == nil {
		o.Audit = audit.Nop{}
	}
	if o.Notifier == nil {
		o.Notifier = NopNotifier{}
	}
	return o
}

// committed emits the audit entry and event of a successful unit of work.
func (o Observers) committed(ctx context.Context, entry audit.Entry, event string, data any) {
	o.Audit.Log(ctx, entry)
	if event != "" {
		o.Notifier.Publish(event, data)
	}
}

func requireRole(caller model.Caller, roles ...string) error {
	if !caller.HasRole(roles...) {
		return apperrors.Forbidden("role %q is not allowed to perform this action", caller.Role)
	}
	return nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid %s", field)
	}
	return id, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, apperrors.Validation("invalid %s", field)
	}
	return d, nil
}

func parseNonNegative(field, value string) (decimal.Decimal, error) {
	d, err := parseDecimal(field, value)
	if err != nil {
		return d, err
	}
	if d.IsNegative() {
		return d, apperrors.Validation("%s must not be negative", field)
	}
	return d, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// fail classifies err and logs failures that callers only see as a generic 500.
func fail(ctx context.Context, op string, err error) error {
	err = apperrors.Translate(err, op)
	switch {
	case errors.Is(err, apperrors.ErrInvariantViolation):
		middleware.GetLoggerFromCtx(ctx).Error("ledger invariant violated", "op", op, "error", err)
	case errors.Is(err, apperrors.ErrUnexpected):
		middleware.GetLoggerFromCtx(ctx).Error("unexpected failure", "op", op, "error", err)
	}
	return err
}
