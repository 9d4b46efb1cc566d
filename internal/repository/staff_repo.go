package repository

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StaffRepository interface {
	Create(ctx context.Context, staff *model.StaffMember) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StaffMember, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StaffMember, error)
	CreateExpense(ctx context.Context, expense *model.StaffExpense) error
	SetExpenseTransfer(ctx context.Context, expenseID, transferID uuid.UUID) error
	LatestSalaryAdjustment(ctx context.Context, staffID uuid.UUID, asOf time.Time) (*model.StaffExpense, error)
	LastSalaryPayment(ctx context.Context, staffID uuid.UUID) (*model.StaffExpense, error)
	FindSalaryPayment(ctx context.Context, staffID uuid.UUID, month string) (*model.StaffExpense, error)
	SumAdvances(ctx context.Context, staffID uuid.UUID, from *time.Time, to time.Time) (decimal.Decimal, error)
}

type staffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *model.StaffMember) error {
	return GetDB(ctx, r.db).Create(staff).Error
}

func (r *staffRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	var staff model.StaffMember
	if err := GetDB(ctx, r.db).First(&staff, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// FindByIDForUpdate serializes salary settlement per staff member.
func (r *staffRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	var staff model.StaffMember
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&staff, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) CreateExpense(ctx context.Context, expense *model.StaffExpense) error {
	return GetDB(ctx, r.db).Create(expense).Error
}

func (r *staffRepository) SetExpenseTransfer(ctx context.Context, expenseID, transferID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.StaffExpense{}).Where("id = ?", expenseID).Update("transfer_id", transferID).Error
}

// LatestSalaryAdjustment returns nil when no adjustment is effective at asOf.
func (r *staffRepository) LatestSalaryAdjustment(ctx context.Context, staffID uuid.UUID, asOf time.Time) (*model.StaffExpense, error) {
	return r.first(GetDB(ctx, r.db).
		Where("staff_id = ? AND type = ? AND effective_date <= ?", staffID, model.ExpenseSalaryAdjustment, asOf).
		Order("effective_date desc, created_at desc"))
}

// LastSalaryPayment returns nil when the staff member has never been paid.
func (r *staffRepository) LastSalaryPayment(ctx context.Context, staffID uuid.UUID) (*model.StaffExpense, error) {
	return r.first(GetDB(ctx, r.db).
		Where("staff_id = ? AND type = ?", staffID, model.ExpenseSalaryPayment).
		Order("salary_month desc"))
}

// FindSalaryPayment returns nil when the month is unpaid.
func (r *staffRepository) FindSalaryPayment(ctx context.Context, staffID uuid.UUID, month string) (*model.StaffExpense, error) {
	return r.first(GetDB(ctx, r.db).
		Where("staff_id = ? AND type = ? AND salary_month = ?", staffID, model.ExpenseSalaryPayment, month))
}

// SumAdvances totals advances dated within [from, to]. A nil from means no lower bound.
func (r *staffRepository) SumAdvances(ctx context.Context, staffID uuid.UUID, from *time.Time, to time.Time) (decimal.Decimal, error) {
	query := GetDB(ctx, r.db).
		Model(&model.StaffExpense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("staff_id = ? AND type = ? AND effective_date <= ?", staffID, model.ExpenseAdvance, to)
	if from != nil {
		query = query.Where("effective_date >= ?", *from)
	}
	return scanSum(query)
}

func (r *staffRepository) first(query *gorm.DB) (*model.StaffExpense, error) {
	var expense model.StaffExpense
	if err := query.First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}
