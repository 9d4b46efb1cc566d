package service

import (
	"context"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciliation reports what a reconciler call posted.
type Reconciliation struct {
	Posting       model.Posting
	Amount        decimal.Decimal // signed: positive charges the customer
	TransferID    *uuid.UUID
	PointsApplied decimal.Decimal
}

// Reconciler keeps customer and branch balances in step with fulfillment status
// and order totals. It only posts money; persisting the order is the caller's job.
type Reconciler interface {
	// Transition posts the charge or reversal required to move order to next.
	// The order must carry its current status and total.
	Transition(ctx context.Context, order *model.Order, next model.FulfillmentStatus, settings model.Settings, actor *uuid.UUID) (Reconciliation, error)
	// ApplyDelta posts newTotal-oldTotal for an order that holds a charge. Orders
	// that hold no charge are only checked.
	ApplyDelta(ctx context.Context, order *model.Order, oldTotal, newTotal decimal.Decimal, settings model.Settings, actor *uuid.UUID) (Reconciliation, error)
	// Check verifies the ledger agrees with the order's status and total.
	Check(ctx context.Context, order *model.Order, settings model.Settings) error
}

type reconciler struct {
	ledger       LedgerService
	customerRepo repository.CustomerRepository
}

func NewReconciler(ledger LedgerService, customerRepo repository.CustomerRepository) Reconciler {
	return &reconciler{ledger: ledger, customerRepo: customerRepo}
}

type orderAccounts struct {
	customer *model.Account
	branch   *model.Account
}

func (r *reconciler) accounts(ctx context.Context, order *model.Order, currency string) (orderAccounts, error) {
	customer, err := r.ledger.EnsureAccount(ctx, model.OwnerCustomer, order.CustomerID, currency)
	if err != nil {
		return orderAccounts{}, err
	}
	branch, err := r.ledger.EnsureAccount(ctx, model.OwnerBranch, order.BranchID, currency)
	if err != nil {
		return orderAccounts{}, err
	}
	return orderAccounts{customer: customer, branch: branch}, nil
}

// expectedNet is what the customer's entries for the order must sum to.
func expectedNet(status model.FulfillmentStatus, total decimal.Decimal) decimal.Decimal {
	if status.HoldsCharge() {
		return total.Neg().Round(2)
	}
	return decimal.Zero
}

func (r *reconciler) verify(ctx context.Context, accts orderAccounts, order *model.Order, total decimal.Decimal) error {
	net, err := r.ledger.NetByReference(ctx, accts.customer.ID, model.RefKindOrder, order.ID)
	if err != nil {
		return err
	}
	want := expectedNet(order.FulfillmentStatus, total)
	if !net.Equal(want) {
		return apperrors.Invariant("order %s in status %s has ledger net %s, expected %s",
			order.ID, order.FulfillmentStatus, money(net), money(want))
	}
	return nil
}

func (r *reconciler) Check(ctx context.Context, order *model.Order, settings model.Settings) error {
	accts, err := r.accounts(ctx, order, settings.Currency)
	if err != nil {
		return err
	}
	return r.verify(ctx, accts, order, order.TotalPrice)
}

func (r *reconciler) Transition(ctx context.Context, order *model.Order, next model.FulfillmentStatus, settings model.Settings, actor *uuid.UUID) (Reconciliation, error) {
	current := order.FulfillmentStatus
	if !current.CanTransition(next) {
		return Reconciliation{}, apperrors.InvalidState("order %s cannot move from %s to %s", order.ID, current, next)
	}

	accts, err := r.accounts(ctx, order, settings.Currency)
	if err != nil {
		return Reconciliation{}, err
	}
	if err := r.verify(ctx, accts, order, order.TotalPrice); err != nil {
		return Reconciliation{}, err
	}

	result := Reconciliation{Posting: current.PostingFor(next)}
	switch result.Posting {
	case model.PostingCharge:
		result.Amount = order.TotalPrice
		return r.post(ctx, accts, order, result, model.EntryOrderCharge, settings, actor)
	case model.PostingReversal:
		result.Amount = order.TotalPrice.Neg()
		return r.post(ctx, accts, order, result, model.EntryOrderReversal, settings, actor)
	}
	return result, nil
}

func (r *reconciler) ApplyDelta(ctx context.Context, order *model.Order, oldTotal, newTotal decimal.Decimal, settings model.Settings, actor *uuid.UUID) (Reconciliation, error) {
	accts, err := r.accounts(ctx, order, settings.Currency)
	if err != nil {
		return Reconciliation{}, err
	}
	if err := r.verify(ctx, accts, order, oldTotal); err != nil {
		return Reconciliation{}, err
	}
	if !order.FulfillmentStatus.HoldsCharge() {
		return Reconciliation{Posting: model.PostingNone}, nil
	}

	result := Reconciliation{Posting: model.PostingNone, Amount: newTotal.Sub(oldTotal).Round(2)}
	return r.post(ctx, accts, order, result, model.EntryOrderAdjustment, settings, actor)
}

// post moves result.Amount from customer to branch, or back when negative, and
// applies the matching loyalty points. A zero amount posts nothing.
func (r *reconciler) post(ctx context.Context, accts orderAccounts, order *model.Order, result Reconciliation, kind model.EntryKind, settings model.Settings, actor *uuid.UUID) (Reconciliation, error) {
	if result.Amount.IsZero() {
		return result, nil
	}

	from, to := accts.customer.ID, accts.branch.ID
	if result.Amount.IsNegative() {
		from, to = to, from
	}
	transferID, err := r.ledger.Transfer(ctx, TransferInput{
		From:          &from,
		To:            &to,
		Amount:        result.Amount.Abs(),
		Kind:          kind,
		ReferenceKind: model.RefKindOrder,
		ReferenceID:   order.ID,
		CreatedBy:     actor,
	})
	if err != nil {
		return Reconciliation{}, err
	}
	result.TransferID = &transferID

	if points := loyaltyPoints(result.Amount, settings.PointsPrice); !points.IsZero() {
		if err := r.customerRepo.AddPoints(ctx, order.CustomerID, points); err != nil {
			return Reconciliation{}, err
		}
		result.PointsApplied = points
	}
	return result, nil
}

// loyaltyPoints converts a signed posting into points; a non-positive price disables points.
func loyaltyPoints(amount, pointsPrice decimal.Decimal) decimal.Decimal {
	if !pointsPrice.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(pointsPrice).Round(2)
}
