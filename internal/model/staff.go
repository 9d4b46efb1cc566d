package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StaffExpenseType enum constants
type StaffExpenseType string

const (
	ExpenseSalaryAdjustment StaffExpenseType = "salary_adjustment"
	ExpenseAdvance          StaffExpenseType = "advance"
	ExpenseBonus            StaffExpenseType = "bonus"
	ExpenseSalaryPayment    StaffExpenseType = "salary_payment"
)

func (t StaffExpenseType) Valid() bool {
	switch t {
	case ExpenseSalaryAdjustment, ExpenseAdvance, ExpenseBonus, ExpenseSalaryPayment:
		return true
	}
	return false
}

// StaffMember is an employee paid monthly from the admin account.
type StaffMember struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	BranchID   *uuid.UUID      `gorm:"type:uuid;index" json:"branch_id"`
	BaseSalary decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"base_salary"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s *StaffMember) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StaffExpense records money and salary events for a staff member.
//   - salary_adjustment: BaseSalary takes effect from EffectiveDate
//   - advance, bonus: Amount paid out on EffectiveDate
//   - salary_payment: Amount paid for SalaryMonth ("YYYY-MM"), unique per staff and month
type StaffExpense struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID       uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_staff_salary_month,priority:1" json:"staff_id"`
	Type          StaffExpenseType `gorm:"type:varchar(30);not null;index;uniqueIndex:idx_staff_salary_month,priority:2" json:"type"`
	Amount        decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"amount"`
	BaseSalary    decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"base_salary"`
	EffectiveDate time.Time        `gorm:"not null;index" json:"effective_date"`
	SalaryMonth   *string          `gorm:"type:varchar(7);uniqueIndex:idx_staff_salary_month,priority:3" json:"salary_month"`
	AdvanceTotal  decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"advance_total"`
	TransferID    *uuid.UUID       `gorm:"type:uuid" json:"transfer_id"`
	Note          string           `gorm:"type:text" json:"note"`
	CreatedBy     *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (e *StaffExpense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
