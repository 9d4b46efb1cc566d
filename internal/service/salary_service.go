package service

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/websocket"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// --- DTOs ---

type RecordStaffExpenseRequest struct {
	Type          string `json:"type" binding:"required,oneof=salary_adjustment advance bonus"`
	Amount        string `json:"amount"`         // advance, bonus
	BaseSalary    string `json:"base_salary"`    // salary_adjustment
	EffectiveDate string `json:"effective_date"` // YYYY-MM-DD, defaults to today
	Note          string `json:"note"`
}

type PaySalaryRequest struct {
	Month  string `json:"month" binding:"required"`  // YYYY-MM
	Amount string `json:"amount" binding:"required"` // Decimal string
	Note   string `json:"note"`
}

type StaffExpenseResponse struct {
	ID            string  `json:"id"`
	StaffID       string  `json:"staff_id"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	BaseSalary    string  `json:"base_salary"`
	EffectiveDate string  `json:"effective_date"`
	SalaryMonth   *string `json:"salary_month"`
	AdvanceTotal  string  `json:"advance_total"`
	TransferID    *string `json:"transfer_id"`
	Note          string  `json:"note"`
	CreatedAt     string  `json:"created_at"`
}

type SalaryPreviewResponse struct {
	StaffID       string  `json:"staff_id"`
	Month         string  `json:"month"`
	BaseSalary    string  `json:"base_salary"`
	AdvanceTotal  string  `json:"advance_total"`
	Payable       string  `json:"payable"`
	LastPaidMonth *string `json:"last_paid_month"`
	AlreadyPaid   bool    `json:"already_paid"`
	CanPay        bool    `json:"can_pay"`
}

// --- Interface ---

type SalaryService interface {
	RecordExpense(ctx context.Context, caller model.Caller, staffID string, req RecordStaffExpenseRequest) (StaffExpenseResponse, error)
	PaySalary(ctx context.Context, caller model.Caller, staffID string, req PaySalaryRequest) (StaffExpenseResponse, error)
	SalaryPreview(ctx context.Context, caller model.Caller, staffID, month string) (SalaryPreviewResponse, error)
}

type salaryService struct {
	staffRepo repository.StaffRepository
	ledger    LedgerService
	settings  SettingsProvider
	txManager repository.TransactionManager
	observers Observers
	now       func() time.Time
}

func NewSalaryService(
	staffRepo repository.StaffRepository,
	ledger LedgerService,
	settings SettingsProvider,
	txManager repository.TransactionManager,
	observers Observers,
) SalaryService {
	return &salaryService{
		staffRepo: staffRepo,
		ledger:    ledger,
		settings:  settings,
		txManager: txManager,
		observers: observers.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// settlement is the salary position of one staff member for one month.
type settlement struct {
	month        model.Month
	base         decimal.Decimal
	advanceTotal decimal.Decimal
	lastPaid     *model.Month
	alreadyPaid  bool
}

// payable is what is left of the base salary after advances, never negative.
func (st settlement) payable() decimal.Decimal {
	rest := st.base.Sub(st.advanceTotal)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// check applies the ordering and advance rules to a payment of amount.
func (st settlement) check(amount decimal.Decimal) error {
	if st.alreadyPaid {
		return apperrors.Conflict("salary for %s is already paid", st.month)
	}
	if st.lastPaid != nil && !st.lastPaid.Before(st.month) {
		return apperrors.Conflict("salary for %s is closed, last paid month is %s", st.month, *st.lastPaid)
	}
	if st.lastPaid != nil && st.month != st.lastPaid.Next() {
		return apperrors.Conflict("salary for %s cannot be paid, next payable month is %s", st.month, st.lastPaid.Next())
	}
	if st.advanceTotal.GreaterThanOrEqual(st.base) {
		return apperrors.Conflict("advances %s already cover the base salary %s", money(st.advanceTotal), money(st.base))
	}
	if amount.Add(st.advanceTotal).GreaterThan(st.base) {
		return apperrors.Validation("amount %s plus advances %s exceeds base salary %s", money(amount), money(st.advanceTotal), money(st.base))
	}
	return nil
}

func (s *salaryService) settle(ctx context.Context, staff *model.StaffMember, month model.Month) (settlement, error) {
	st := settlement{month: month, base: staff.BaseSalary}

	adj, err := s.staffRepo.LatestSalaryAdjustment(ctx, staff.ID, month.End())
	if err != nil {
		return st, err
	}
	if adj != nil {
		st.base = adj.BaseSalary
	}

	paid, err := s.staffRepo.FindSalaryPayment(ctx, staff.ID, month.String())
	if err != nil {
		return st, err
	}
	st.alreadyPaid = paid != nil

	last, err := s.staffRepo.LastSalaryPayment(ctx, staff.ID)
	if err != nil {
		return st, err
	}
	var from *time.Time
	if last != nil && last.SalaryMonth != nil {
		lastMonth, err := model.ParseMonth(*last.SalaryMonth)
		if err != nil {
			return st, apperrors.Invariant("stored salary month %q is malformed", *last.SalaryMonth)
		}
		st.lastPaid = &lastMonth
		start := lastMonth.Next().Start()
		from = &start
	}

	st.advanceTotal, err = s.staffRepo.SumAdvances(ctx, staff.ID, from, month.End())
	if err != nil {
		return st, err
	}
	return st, nil
}

func (s *salaryService) PaySalary(ctx context.Context, caller model.Caller, staffID string, req PaySalaryRequest) (StaffExpenseResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return StaffExpenseResponse{}, err
	}
	id, err := parseID("staff id", staffID)
	if err != nil {
		return StaffExpenseResponse{}, err
	}
	month, err := model.ParseMonth(strings.TrimSpace(req.Month))
	if err != nil {
		return StaffExpenseResponse{}, apperrors.Validation("%v", err)
	}
	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		return StaffExpenseResponse{}, err
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return StaffExpenseResponse{}, apperrors.Validation("amount must be greater than 0")
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return StaffExpenseResponse{}, err
	}

	var expense model.StaffExpense
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		staff, err := s.staffRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperrors.Translate(err, "staff member not found")
		}
		if !staff.IsActive {
			return apperrors.InvalidState("staff member %s is inactive", staff.ID)
		}

		st, err := s.settle(txCtx, staff, month)
		if err != nil {
			return err
		}
		if err := st.check(amount); err != nil {
			return err
		}

		monthKey := month.String()
		expense = model.StaffExpense{
			StaffID:       staff.ID,
			Type:          model.ExpenseSalaryPayment,
			Amount:        amount,
			BaseSalary:    st.base,
			EffectiveDate: s.now(),
			SalaryMonth:   &monthKey,
			AdvanceTotal:  st.advanceTotal,
			Note:          req.Note,
			CreatedBy:     caller.ActorID(),
		}
		return s.payOut(txCtx, &expense, model.EntrySalaryPayment, settings.Currency)
	})
	if err != nil {
		return StaffExpenseResponse{}, fail(ctx, "pay salary", err)
	}

	res := toStaffExpenseResponse(&expense)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionPaySalary,
		EntityKind: model.EntityStaffExpense,
		EntityID:   expense.ID.String(),
		After:      res,
	}, websocket.EventSalaryPaid, res)
	return res, nil
}

func (s *salaryService) RecordExpense(ctx context.Context, caller model.Caller, staffID string, req RecordStaffExpenseRequest) (StaffExpenseResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return StaffExpenseResponse{}, err
	}
	id, err := parseID("staff id", staffID)
	if err != nil {
		return StaffExpenseResponse{}, err
	}

	effective := s.now()
	if req.EffectiveDate != "" {
		effective, err = time.Parse(dateLayout, strings.TrimSpace(req.EffectiveDate))
		if err != nil {
			return StaffExpenseResponse{}, apperrors.Validation("effective_date must be YYYY-MM-DD")
		}
	}

	expense := model.StaffExpense{
		StaffID:       id,
		Type:          model.StaffExpenseType(req.Type),
		EffectiveDate: effective,
		Note:          req.Note,
		CreatedBy:     caller.ActorID(),
	}
	var entryKind model.EntryKind
	switch expense.Type {
	case model.ExpenseSalaryAdjustment:
		base, err := parseDecimal("base_salary", req.BaseSalary)
		if err != nil {
			return StaffExpenseResponse{}, err
		}
		if !base.IsPositive() {
			return StaffExpenseResponse{}, apperrors.Validation("base_salary must be greater than 0")
		}
		expense.BaseSalary = base.Round(2)
	case model.ExpenseAdvance, model.ExpenseBonus:
		amount, err := parseDecimal("amount", req.Amount)
		if err != nil {
			return StaffExpenseResponse{}, err
		}
		if !amount.Round(2).IsPositive() {
			return StaffExpenseResponse{}, apperrors.Validation("amount must be greater than 0")
		}
		expense.Amount = amount.Round(2)
		entryKind = model.EntryStaffAdvance
		if expense.Type == model.ExpenseBonus {
			entryKind = model.EntryStaffBonus
		}
	default:
		return StaffExpenseResponse{}, apperrors.Validation("type must be salary_adjustment, advance or bonus")
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return StaffExpenseResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		staff, err := s.staffRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperrors.Translate(err, "staff member not found")
		}
		if !staff.IsActive {
			return apperrors.InvalidState("staff member %s is inactive", staff.ID)
		}
		if entryKind == "" {
			return s.staffRepo.CreateExpense(txCtx, &expense)
		}
		return s.payOut(txCtx, &expense, entryKind, settings.Currency)
	})
	if err != nil {
		return StaffExpenseResponse{}, fail(ctx, "record staff expense", err)
	}

	res := toStaffExpenseResponse(&expense)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionRecordStaffExpense,
		EntityKind: model.EntityStaffExpense,
		EntityID:   expense.ID.String(),
		After:      res,
	}, "", nil)
	return res, nil
}

func (s *salaryService) SalaryPreview(ctx context.Context, caller model.Caller, staffID, month string) (SalaryPreviewResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return SalaryPreviewResponse{}, err
	}
	id, err := parseID("staff id", staffID)
	if err != nil {
		return SalaryPreviewResponse{}, err
	}
	m, err := model.ParseMonth(strings.TrimSpace(month))
	if err != nil {
		return SalaryPreviewResponse{}, apperrors.Validation("%v", err)
	}

	staff, err := s.staffRepo.FindByID(ctx, id)
	if err != nil {
		return SalaryPreviewResponse{}, fail(ctx, "staff member not found", err)
	}
	st, err := s.settle(ctx, staff, m)
	if err != nil {
		return SalaryPreviewResponse{}, fail(ctx, "salary preview", err)
	}

	res := SalaryPreviewResponse{
		StaffID:      staff.ID.String(),
		Month:        m.String(),
		BaseSalary:   money(st.base),
		AdvanceTotal: money(st.advanceTotal),
		Payable:      money(st.payable()),
		AlreadyPaid:  st.alreadyPaid,
	}
	res.CanPay = st.payable().IsPositive() && st.check(st.payable()) == nil
	if st.lastPaid != nil {
		v := st.lastPaid.String()
		res.LastPaidMonth = &v
	}
	return res, nil
}

// payOut records the expense and pays its amount from the admin account to the outside.
func (s *salaryService) payOut(ctx context.Context, expense *model.StaffExpense, kind model.EntryKind, currency string) error {
	if err := s.staffRepo.CreateExpense(ctx, expense); err != nil {
		return err
	}
	admin, err := s.ledger.EnsureAccount(ctx, model.OwnerAdmin, AdminOwnerID, currency)
	if err != nil {
		return err
	}
	transferID, err := s.ledger.Transfer(ctx, TransferInput{
		From:          &admin.ID,
		Amount:        expense.Amount,
		Kind:          kind,
		ReferenceKind: model.RefKindStaffExpense,
		ReferenceID:   expense.ID,
		Note:          expense.Note,
		CreatedBy:     expense.CreatedBy,
	})
	if err != nil {
		return err
	}
	if err := s.staffRepo.SetExpenseTransfer(ctx, expense.ID, transferID); err != nil {
		return err
	}
	expense.TransferID = &transferID
	return nil
}

func toStaffExpenseResponse(e *model.StaffExpense) StaffExpenseResponse {
	res := StaffExpenseResponse{
		ID:            e.ID.String(),
		StaffID:       e.StaffID.String(),
		Type:          string(e.Type),
		Amount:        money(e.Amount),
		BaseSalary:    money(e.BaseSalary),
		EffectiveDate: e.EffectiveDate.Format(dateLayout),
		SalaryMonth:   e.SalaryMonth,
		AdvanceTotal:  money(e.AdvanceTotal),
		Note:          e.Note,
		CreatedAt:     e.CreatedAt.Format(timeLayout),
	}
	if e.TransferID != nil {
		v := e.TransferID.String()
		res.TransferID = &v
	}
	return res
}
