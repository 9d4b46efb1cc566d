package service

import (
	"testing"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAccount(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()

	res, err := e.accounts.OpenAccount(e.ctx, adminCaller, OpenAccountRequest{OwnerKind: "staff", OwnerID: owner.String()})
	require.NoError(t, err)
	assert.Equal(t, testCurrency, res.Currency)
	assert.Equal(t, "0.00", res.Balance)
	assert.True(t, res.IsActive)

	_, err = e.accounts.OpenAccount(e.ctx, adminCaller, OpenAccountRequest{OwnerKind: "staff", OwnerID: owner.String()})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Another currency is a separate account.
	usd, err := e.accounts.OpenAccount(e.ctx, adminCaller, OpenAccountRequest{OwnerKind: "staff", OwnerID: owner.String(), Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", usd.Currency)

	_, err = e.accounts.OpenAccount(e.ctx, adminCaller, OpenAccountRequest{OwnerKind: "supplier", OwnerID: owner.String()})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.accounts.OpenAccount(e.ctx, staffCaller, OpenAccountRequest{OwnerKind: "staff", OwnerID: uuid.NewString()})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeactivate_BlocksTransfers(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order := e.order(s.ID, c.ID, b.ID)
	customer := e.account(model.OwnerCustomer, c.ID)

	res, err := e.accounts.Deactivate(e.ctx, accountantCaller, customer.ID.String())
	require.NoError(t, err)
	assert.False(t, res.IsActive)

	_, err = e.accounts.Deactivate(e.ctx, accountantCaller, customer.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	for _, status := range []model.FulfillmentStatus{model.StatusMainBranch, model.StatusPendingReceipt} {
		_, err := e.orders.ChangeStatus(e.ctx, adminCaller, order.ID, ChangeOrderStatusRequest{Status: string(status)})
		require.NoError(t, err)
	}
	_, err = e.orders.ChangeStatus(e.ctx, adminCaller, order.ID, ChangeOrderStatusRequest{Status: string(model.StatusReceivedSubbranch)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	got, err := e.orders.GetOrder(e.ctx, adminCaller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPendingReceipt), got.FulfillmentStatus)
	assert.EqualValues(t, 0, e.entryCount(customer.ID))
}

func TestStatement_PagesNewestFirst(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order := e.order(s.ID, c.ID, b.ID)
	e.receive(order.ID)
	_, err := e.orders.ChangeStatus(e.ctx, adminCaller, order.ID, ChangeOrderStatusRequest{Status: string(model.StatusPendingReceipt)})
	require.NoError(t, err)
	e.receive(order.ID)
	customer := e.account(model.OwnerCustomer, c.ID)

	page, err := e.accounts.Statement(e.ctx, staffCaller, customer.ID.String(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, "-53.00", page.Account.Balance)

	rest, err := e.accounts.Statement(e.ctx, staffCaller, customer.ID.String(), 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest.Entries, 1)

	kinds := map[string]int{}
	for _, entry := range append(page.Entries, rest.Entries...) {
		kinds[entry.EntryKind]++
		assert.Equal(t, order.ID, entry.ReferenceID)
	}
	assert.Equal(t, map[string]int{string(model.EntryOrderCharge): 2, string(model.EntryOrderReversal): 1}, kinds)
}

func TestAccountReads_BranchScope(t *testing.T) {
	e := newEnv(t)
	b, other, c := e.branch(), e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	e.order(s.ID, c.ID, b.ID)
	own := e.account(model.OwnerBranch, b.ID)
	customer := e.account(model.OwnerCustomer, c.ID)

	branchCaller := model.Caller{UserID: uuid.New(), Role: model.RoleBranch, BranchID: &b.ID}
	_, err := e.accounts.Statement(e.ctx, branchCaller, own.ID.String(), 1, 10)
	assert.NoError(t, err)

	_, err = e.accounts.Statement(e.ctx, branchCaller, customer.ID.String(), 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	outsider := model.Caller{UserID: uuid.New(), Role: model.RoleBranch, BranchID: &other.ID}
	_, err = e.accounts.Summary(e.ctx, outsider, own.ID.String(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = e.accounts.Statement(e.ctx, adminCaller, uuid.NewString(), 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerify_ReportsDriftAsInvariant(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	e.receive(e.order(s.ID, c.ID, b.ID).ID)
	branch := e.account(model.OwnerBranch, b.ID)

	res, err := e.accounts.Verify(e.ctx, adminCaller, branch.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "53.00", res.Balance)
	assert.Equal(t, "53.00", res.EntrySum)

	require.NoError(t, e.accountRepo.UpdateBalance(e.ctx, branch.ID, decimal.NewFromInt(1)))
	_, err = e.accounts.Verify(e.ctx, adminCaller, branch.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
}

func TestSummary_TotalsByEntryKind(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order := e.order(s.ID, c.ID, b.ID)
	e.receive(order.ID)
	_, err := e.orders.ChangeStatus(e.ctx, adminCaller, order.ID, ChangeOrderStatusRequest{Status: string(model.StatusPendingReceipt)})
	require.NoError(t, err)
	customer := e.account(model.OwnerCustomer, c.ID)

	res, err := e.accounts.Summary(e.ctx, accountantCaller, customer.ID.String(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "0.00", res.Net)
	require.Len(t, res.Totals, 2)
	byKind := map[string]EntryKindTotal{}
	for _, row := range res.Totals {
		byKind[row.EntryKind] = row
	}
	assert.Equal(t, "-53.00", byKind[string(model.EntryOrderCharge)].Debits)
	assert.Equal(t, "53.00", byKind[string(model.EntryOrderReversal)].Credits)

	empty, err := e.accounts.Summary(e.ctx, accountantCaller, customer.ID.String(), "2000-01-01", "2000-01-31")
	require.NoError(t, err)
	assert.Empty(t, empty.Totals)
	assert.Equal(t, "0.00", empty.Net)

	_, err = e.accounts.Summary(e.ctx, accountantCaller, customer.ID.String(), "2000-02-01", "2000-01-01")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = e.accounts.Summary(e.ctx, accountantCaller, customer.ID.String(), "yesterday", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
