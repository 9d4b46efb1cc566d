package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OwnerKind identifies who an account belongs to.
type OwnerKind string

const (
	OwnerAdmin    OwnerKind = "admin"
	OwnerBranch   OwnerKind = "branch"
	OwnerStaff    OwnerKind = "staff"
	OwnerCustomer OwnerKind = "customer"
)

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerAdmin, OwnerBranch, OwnerStaff, OwnerCustomer:
		return true
	}
	return false
}

// EntryKind classifies why money moved.
type EntryKind string

const (
	EntryOrderCharge     EntryKind = "order_charge"
	EntryOrderReversal   EntryKind = "order_reversal"
	EntryOrderAdjustment EntryKind = "order_adjustment"
	EntrySalaryPayment   EntryKind = "salary_payment"
	EntryStaffAdvance    EntryKind = "staff_advance"
	EntryStaffBonus      EntryKind = "staff_bonus"
)

// AdminOwnerID is the fixed owner of the company's admin accounts.
var AdminOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Reference kinds tie ledger rows back to the business record that caused them.
const (
	RefKindOrder        = "order"
	RefKindStaffExpense = "staff_expense"
)

// Account holds money for one owner in one currency. Balance is a cache of the
// sum of its ledger entries and is only written by the ledger transfer.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerKind OwnerKind       `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_owner,priority:1" json:"owner_kind"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_owner,priority:2" json:"owner_id"`
	Currency  string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_accounts_owner,priority:3" json:"currency"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// LedgerEntry is one signed, immutable posting against an account.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_account_ref,priority:1" json:"account_id"`
	TransferID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"transfer_id"`
	SignedAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"signed_amount"`
	EntryKind     EntryKind       `gorm:"type:varchar(30);not null" json:"entry_kind"`
	ReferenceKind string          `gorm:"type:varchar(30);not null;index:idx_ledger_account_ref,priority:2" json:"reference_kind"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_account_ref,priority:3" json:"reference_id"`
	OccurredAt    time.Time       `gorm:"not null;index" json:"occurred_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Transfer groups the one or two entries written by a single posting.
// A nil FromAccountID is an external receipt, a nil ToAccountID an external payout.
type Transfer struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FromAccountID *uuid.UUID      `gorm:"type:uuid;index" json:"from_account_id"`
	ToAccountID   *uuid.UUID      `gorm:"type:uuid;index" json:"to_account_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	EntryKind     EntryKind       `gorm:"type:varchar(30);not null" json:"entry_kind"`
	ReferenceKind string          `gorm:"type:varchar(30);not null;index:idx_transfers_ref,priority:1" json:"reference_kind"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_transfers_ref,priority:2" json:"reference_id"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
