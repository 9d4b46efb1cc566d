package service

import (
	"context"
	"errors"
	"time"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferInput describes one posting. From or To may be nil for an external
// counterparty, but not both.
type TransferInput struct {
	From          *uuid.UUID
	To            *uuid.UUID
	Amount        decimal.Decimal
	Kind          model.EntryKind
	ReferenceKind string
	ReferenceID   uuid.UUID
	Note          string
	CreatedBy     *uuid.UUID
}

// LedgerService is the only writer of ledger entries and cached balances.
// Transfer joins the caller's transaction, or opens one when there is none.
type LedgerService interface {
	Transfer(ctx context.Context, in TransferInput) (uuid.UUID, error)
	EnsureAccount(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error)
	FindAccount(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error)
	AdminAccount(ctx context.Context, currency string) (*model.Account, error)
	NetByReference(ctx context.Context, accountID uuid.UUID, refKind string, refID uuid.UUID) (decimal.Decimal, error)
	Verify(ctx context.Context, accountID uuid.UUID) (*model.Account, decimal.Decimal, error)
}

type ledgerService struct {
	accountRepo repository.AccountRepository
	txManager   repository.TransactionManager
	now         func() time.Time
}

func NewLedgerService(accountRepo repository.AccountRepository, txManager repository.TransactionManager) LedgerService {
	return &ledgerService{
		accountRepo: accountRepo,
		txManager:   txManager,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var AdminOwnerID = model.AdminOwnerID

func (s *ledgerService) Transfer(ctx context.Context, in TransferInput) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		id, err = s.transfer(txCtx, in)
		return err
	})
	return id, err
}

func (s *ledgerService) transfer(ctx context.Context, in TransferInput) (uuid.UUID, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return uuid.Nil, apperrors.Validation("transfer amount must be greater than 0")
	}
	if in.From == nil && in.To == nil {
		return uuid.Nil, apperrors.Validation("transfer needs at least one account")
	}
	if in.From != nil && in.To != nil && *in.From == *in.To {
		return uuid.Nil, apperrors.Validation("transfer accounts must differ")
	}

	ids := make([]uuid.UUID, 0, 2)
	for _, id := range []*uuid.UUID{in.From, in.To} {
		if id != nil {
			ids = append(ids, *id)
		}
	}

	locked, err := s.accountRepo.LockByIDs(ctx, ids)
	if err != nil {
		return uuid.Nil, err
	}
	accounts := make(map[uuid.UUID]model.Account, len(locked))
	for _, a := range locked {
		accounts[a.ID] = a
	}
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			return uuid.Nil, apperrors.NotFound("account %s not found", id)
		}
		if !account.IsActive {
			return uuid.Nil, apperrors.InvalidState("account %s is inactive", id)
		}
	}

	transfer := model.Transfer{
		FromAccountID: in.From,
		ToAccountID:   in.To,
		Amount:        amount,
		EntryKind:     in.Kind,
		ReferenceKind: in.ReferenceKind,
		ReferenceID:   in.ReferenceID,
		Note:          in.Note,
		CreatedBy:     in.CreatedBy,
	}
	if err := s.accountRepo.CreateTransfer(ctx, &transfer); err != nil {
		return uuid.Nil, err
	}

	occurredAt := s.now()
	entries := make([]model.LedgerEntry, 0, 2)
	post := func(accountID uuid.UUID, signed decimal.Decimal) error {
		entries = append(entries, model.LedgerEntry{
			AccountID:     accountID,
			TransferID:    transfer.ID,
			SignedAmount:  signed,
			EntryKind:     in.Kind,
			ReferenceKind: in.ReferenceKind,
			ReferenceID:   in.ReferenceID,
			OccurredAt:    occurredAt,
		})
		balance := accounts[accountID].Balance.Add(signed).Round(2)
		return s.accountRepo.UpdateBalance(ctx, accountID, balance)
	}
	if in.From != nil {
		if err := post(*in.From, amount.Neg()); err != nil {
			return uuid.Nil, err
		}
	}
	if in.To != nil {
		if err := post(*in.To, amount); err != nil {
			return uuid.Nil, err
		}
	}
	if err := s.accountRepo.CreateEntries(ctx, entries); err != nil {
		return uuid.Nil, err
	}

	return transfer.ID, nil
}

func (s *ledgerService) EnsureAccount(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error) {
	account, err := s.accountRepo.FindByOwner(ctx, kind, ownerID, currency)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.accountRepo.CreateIfAbsent(ctx, &model.Account{
		OwnerKind: kind,
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		IsActive:  true,
	}); err != nil {
		return nil, err
	}
	return s.accountRepo.FindByOwner(ctx, kind, ownerID, currency)
}

func (s *ledgerService) FindAccount(ctx context.Context, kind model.OwnerKind, ownerID uuid.UUID, currency string) (*model.Account, error) {
	account, err := s.accountRepo.FindByOwner(ctx, kind, ownerID, currency)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("no %s account for %s in %s", kind, ownerID, currency)
	}
	return account, err
}

func (s *ledgerService) AdminAccount(ctx context.Context, currency string) (*model.Account, error) {
	return s.FindAccount(ctx, model.OwnerAdmin, AdminOwnerID, currency)
}

func (s *ledgerService) NetByReference(ctx context.Context, accountID uuid.UUID, refKind string, refID uuid.UUID) (decimal.Decimal, error) {
	return s.accountRepo.SumByReference(ctx, accountID, refKind, refID)
}

// Verify compares the cached balance with the sum of the account's entries.
func (s *ledgerService) Verify(ctx context.Context, accountID uuid.UUID) (*model.Account, decimal.Decimal, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	sum, err := s.accountRepo.SumEntries(ctx, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !sum.Equal(account.Balance.Round(2)) {
		return account, sum, apperrors.Invariant("account %s balance %s differs from entry sum %s",
			account.ID, money(account.Balance), money(sum))
	}
	return account, sum, nil
}
