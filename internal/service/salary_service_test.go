package service

import (
	"testing"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"
	"backoffice/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) staff(base string) *model.StaffMember {
	e.t.Helper()
	s := &model.StaffMember{Name: "Minh", BaseSalary: decimal.RequireFromString(base), IsActive: true}
	require.NoError(e.t, e.staffRepo.Create(e.ctx, s))
	return s
}

func (e *env) advance(staffID, amount, date string) {
	e.t.Helper()
	_, err := e.salaries.RecordExpense(e.ctx, accountantCaller, staffID, RecordStaffExpenseRequest{
		Type: string(model.ExpenseAdvance), Amount: amount, EffectiveDate: date,
	})
	require.NoError(e.t, err)
}

func TestPaySalary_AdvancesReducePayable(t *testing.T) {
	e := newEnv(t)
	s := e.staff("1000")
	id := s.ID.String()

	e.advance(id, "300", "2026-01-10")

	preview, err := e.salaries.SalaryPreview(e.ctx, accountantCaller, id, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", preview.BaseSalary)
	assert.Equal(t, "300.00", preview.AdvanceTotal)
	assert.Equal(t, "700.00", preview.Payable)
	assert.True(t, preview.CanPay)
	assert.Nil(t, preview.LastPaidMonth)

	_, err = e.salaries.PaySalary(e.ctx, accountantCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "800"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	paid, err := e.salaries.PaySalary(e.ctx, accountantCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "700"})
	require.NoError(t, err)
	require.NotNil(t, paid.SalaryMonth)
	assert.Equal(t, "2026-01", *paid.SalaryMonth)
	assert.Equal(t, "300.00", paid.AdvanceTotal)
	assert.NotNil(t, paid.TransferID)

	assert.Equal(t, "-1000.00", e.balance(model.OwnerAdmin, model.AdminOwnerID))
	assert.Contains(t, e.notifier.published(), websocket.EventSalaryPaid)
	e.requireLedgerConsistent()
}

func TestPaySalary_MonthOrdering(t *testing.T) {
	e := newEnv(t)
	id := e.staff("1000").ID.String()

	_, err := e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "1000"})
	require.NoError(t, err)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "10"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-03", Amount: "10"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2025-12", Amount: "10"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "closed")

	preview, err := e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-01")
	require.NoError(t, err)
	assert.True(t, preview.AlreadyPaid)
	assert.False(t, preview.CanPay)

	preview, err = e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-02")
	require.NoError(t, err)
	require.NotNil(t, preview.LastPaidMonth)
	assert.Equal(t, "2026-01", *preview.LastPaidMonth)
	assert.True(t, preview.CanPay)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-02", Amount: "1000"})
	assert.NoError(t, err)
	assert.Equal(t, "-2000.00", e.balance(model.OwnerAdmin, model.AdminOwnerID))
}

func TestPaySalary_AdvancesCoveringBaseBlockPayment(t *testing.T) {
	e := newEnv(t)
	id := e.staff("500").ID.String()
	e.advance(id, "200", "2026-01-05")
	e.advance(id, "300", "2026-01-20")

	preview, err := e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "0.00", preview.Payable)
	assert.False(t, preview.CanPay)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPaySalary_AdvancesOnlyCountSinceLastPayment(t *testing.T) {
	e := newEnv(t)
	id := e.staff("1000").ID.String()
	e.advance(id, "400", "2026-01-10")

	_, err := e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-01", Amount: "600"})
	require.NoError(t, err)

	e.advance(id, "100", "2026-02-03")
	preview, err := e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "100.00", preview.AdvanceTotal)
	assert.Equal(t, "900.00", preview.Payable)
}

func TestSalaryAdjustment_ChangesBaseFromEffectiveMonth(t *testing.T) {
	e := newEnv(t)
	id := e.staff("1000").ID.String()

	adj, err := e.salaries.RecordExpense(e.ctx, adminCaller, id, RecordStaffExpenseRequest{
		Type: string(model.ExpenseSalaryAdjustment), BaseSalary: "1200", EffectiveDate: "2026-02-15",
	})
	require.NoError(t, err)
	assert.Nil(t, adj.TransferID)
	assert.Equal(t, "1200.00", adj.BaseSalary)

	jan, err := e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", jan.BaseSalary)

	feb, err := e.salaries.SalaryPreview(e.ctx, adminCaller, id, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "1200.00", feb.BaseSalary)

	// Adjustments move no money.
	assert.Equal(t, "0.00", e.balance(model.OwnerAdmin, model.AdminOwnerID))
}

func TestRecordExpense_BonusPaysOut(t *testing.T) {
	e := newEnv(t)
	id := e.staff("1000").ID.String()

	res, err := e.salaries.RecordExpense(e.ctx, accountantCaller, id, RecordStaffExpenseRequest{
		Type: string(model.ExpenseBonus), Amount: "150.5", EffectiveDate: "2026-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "150.50", res.Amount)
	require.NotNil(t, res.TransferID)
	assert.Equal(t, "-150.50", e.balance(model.OwnerAdmin, model.AdminOwnerID))

	// Bonuses do not count as advances.
	preview, err := e.salaries.SalaryPreview(e.ctx, accountantCaller, id, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "0.00", preview.AdvanceTotal)
}

func TestRecordExpense_Validation(t *testing.T) {
	e := newEnv(t)
	id := e.staff("1000").ID.String()

	cases := []struct {
		name string
		req  RecordStaffExpenseRequest
	}{
		{"unknown type", RecordStaffExpenseRequest{Type: "loan", Amount: "1"}},
		{"zero advance", RecordStaffExpenseRequest{Type: "advance", Amount: "0"}},
		{"negative bonus", RecordStaffExpenseRequest{Type: "bonus", Amount: "-5"}},
		{"missing base", RecordStaffExpenseRequest{Type: "salary_adjustment"}},
		{"bad date", RecordStaffExpenseRequest{Type: "advance", Amount: "1", EffectiveDate: "15/02/2026"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.salaries.RecordExpense(e.ctx, adminCaller, id, tc.req)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	_, err := e.salaries.RecordExpense(e.ctx, staffCaller, id, RecordStaffExpenseRequest{Type: "advance", Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = e.salaries.PaySalary(e.ctx, adminCaller, id, PaySalaryRequest{Month: "2026-13", Amount: "1"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
