package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	CreateIfAbsent(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByOwner(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error)
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CreateTransfer(ctx context.Context, transfer *model.Transfer) error
	CreateEntries(ctx context.Context, entries []model.LedgerEntry) error
	SumEntries(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	SumByReference(ctx context.Context, accountID uuid.UUID, refKind string, refID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, page, limit int) ([]model.LedgerEntry, int64, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return GetDB(ctx, r.db).Create(account).Error
}

// CreateIfAbsent inserts the account unless one already exists for the same owner and currency.
func (r *accountRepository) CreateIfAbsent(ctx context.Context, account *model.Account) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_kind"}, {Name: "owner_id"}, {Name: "currency"}},
		DoNothing: true,
	}).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByOwner(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).
		Where("owner_kind = ? AND owner_id = ? AND currency = ?", kind, ownerID, currency).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockByIDs locks the rows in id order so concurrent transfers over the same
// pair of accounts cannot deadlock.
func (r *accountRepository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Account, error) {
	var accounts []model.Account
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Account{}).Where("id = ?", id).Update("balance", balance).Error
}

func (r *accountRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return GetDB(ctx, r.db).Model(&model.Account{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *accountRepository) CreateTransfer(ctx context.Context, transfer *model.Transfer) error {
	return GetDB(ctx, r.db).Create(transfer).Error
}

func (r *accountRepository) CreateEntries(ctx context.Context, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&entries).Error
}

func (r *accountRepository) SumEntries(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return scanSum(GetDB(ctx, r.db).
		Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(signed_amount), 0)").
		Where("account_id = ?", accountID))
}

func (r *accountRepository) SumByReference(ctx context.Context, accountID uuid.UUID, refKind string, refID uuid.UUID) (decimal.Decimal, error) {
	return scanSum(GetDB(ctx, r.db).
		Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(signed_amount), 0)").
		Where("account_id = ? AND reference_kind = ? AND reference_id = ?", accountID, refKind, refID))
}

func (r *accountRepository) ListEntries(ctx context.Context, accountID uuid.UUID, page, limit int) ([]model.LedgerEntry, int64, error) {
	var entries []model.LedgerEntry
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.LedgerEntry{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("account_id = ?", accountID).
		Order("occurred_at desc, id").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// scanSum reads a single aggregated money column and normalizes it to cents.
func scanSum(query *gorm.DB) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := query.Row().Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}
