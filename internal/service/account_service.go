package service

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type OpenAccountRequest struct {
	OwnerKind string `json:"owner_kind" binding:"required,oneof=admin branch staff customer"`
	OwnerID   string `json:"owner_id" binding:"required"`
	Currency  string `json:"currency"` // defaults to the company currency
}

type AccountResponse struct {
	ID        string `json:"id"`
	OwnerKind string `json:"owner_kind"`
	OwnerID   string `json:"owner_id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type LedgerEntryResponse struct {
	ID            string `json:"id"`
	TransferID    string `json:"transfer_id"`
	SignedAmount  string `json:"signed_amount"`
	EntryKind     string `json:"entry_kind"`
	ReferenceKind string `json:"reference_kind"`
	ReferenceID   string `json:"reference_id"`
	OccurredAt    string `json:"occurred_at"`
}

type StatementResponse struct {
	Account AccountResponse       `json:"account"`
	Entries []LedgerEntryResponse `json:"entries"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}

type VerifyAccountResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	EntrySum  string `json:"entry_sum"`
}

type EntryKindTotal struct {
	EntryKind string `json:"entry_kind"`
	Debits    string `json:"debits"`
	Credits   string `json:"credits"`
	Net       string `json:"net"`
	Count     int64  `json:"count"`
}

type AccountSummaryResponse struct {
	AccountID string           `json:"account_id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Totals    []EntryKindTotal `json:"totals"`
	Net       string           `json:"net"`
}

// --- Interface ---

type AccountService interface {
	OpenAccount(ctx context.Context, caller model.Caller, req OpenAccountRequest) (AccountResponse, error)
	Deactivate(ctx context.Context, caller model.Caller, id string) (AccountResponse, error)
	Statement(ctx context.Context, caller model.Caller, id string, page, limit int) (StatementResponse, error)
	Verify(ctx context.Context, caller model.Caller, id string) (VerifyAccountResponse, error)
	Summary(ctx context.Context, caller model.Caller, id, from, to string) (AccountSummaryResponse, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	reportRepo  repository.ReportRepository
	ledger      LedgerService
	settings    SettingsProvider
	txManager   repository.TransactionManager
	observers   Observers
	now         func() time.Time
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	reportRepo repository.ReportRepository,
	ledger LedgerService,
	settings SettingsProvider,
	txManager repository.TransactionManager,
	observers Observers,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		reportRepo:  reportRepo,
		ledger:      ledger,
		settings:    settings,
		txManager:   txManager,
		observers:   observers.withDefaults(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// --- Implementation ---

func (s *accountService) OpenAccount(ctx context.Context, caller model.Caller, req OpenAccountRequest) (AccountResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return AccountResponse{}, err
	}
	kind := model.OwnerKind(req.OwnerKind)
	if !kind.Valid() {
		return AccountResponse{}, apperrors.Validation("owner_kind must be admin, branch, staff or customer")
	}
	ownerID, err := parseID("owner_id", req.OwnerID)
	if err != nil {
		return AccountResponse{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		settings, err := s.settings.Current(ctx)
		if err != nil {
			return AccountResponse{}, err
		}
		currency = settings.Currency
	}

	account := model.Account{
		OwnerKind: kind,
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		IsActive:  true,
	}
	if err := s.accountRepo.Create(ctx, &account); err != nil {
		return AccountResponse{}, fail(ctx, "account already exists for this owner and currency", err)
	}

	res := toAccountResponse(&account)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionOpenAccount,
		EntityKind: model.EntityAccount,
		EntityID:   account.ID.String(),
		After:      res,
	}, "", nil)
	return res, nil
}

// Deactivate freezes the account. Its entries and balance are kept.
func (s *accountService) Deactivate(ctx context.Context, caller model.Caller, id string) (AccountResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return AccountResponse{}, err
	}
	accountID, err := parseID("account id", id)
	if err != nil {
		return AccountResponse{}, err
	}

	var account model.Account
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.accountRepo.LockByIDs(txCtx, []uuid.UUID{accountID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return apperrors.NotFound("account %s not found", accountID)
		}
		account = locked[0]
		if !account.IsActive {
			return apperrors.InvalidState("account %s is already inactive", accountID)
		}
		if err := s.accountRepo.SetActive(txCtx, accountID, false); err != nil {
			return err
		}
		account.IsActive = false
		return nil
	})
	if err != nil {
		return AccountResponse{}, fail(ctx, "deactivate account", err)
	}

	res := toAccountResponse(&account)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionDeactivateAccount,
		EntityKind: model.EntityAccount,
		EntityID:   account.ID.String(),
		Before:     map[string]bool{"is_active": true},
		After:      map[string]bool{"is_active": false},
	}, "", nil)
	return res, nil
}

func (s *accountService) Statement(ctx context.Context, caller model.Caller, id string, page, limit int) (StatementResponse, error) {
	account, err := s.readable(ctx, caller, id)
	if err != nil {
		return StatementResponse{}, err
	}

	entries, total, err := s.accountRepo.ListEntries(ctx, account.ID, page, limit)
	if err != nil {
		return StatementResponse{}, fail(ctx, "list ledger entries", err)
	}

	res := StatementResponse{
		Account: toAccountResponse(account),
		Entries: make([]LedgerEntryResponse, 0, len(entries)),
		Total:   total,
		Page:    page,
		Limit:   limit,
	}
	for _, e := range entries {
		res.Entries = append(res.Entries, LedgerEntryResponse{
			ID:            e.ID.String(),
			TransferID:    e.TransferID.String(),
			SignedAmount:  money(e.SignedAmount),
			EntryKind:     string(e.EntryKind),
			ReferenceKind: e.ReferenceKind,
			ReferenceID:   e.ReferenceID.String(),
			OccurredAt:    e.OccurredAt.Format(timeLayout),
		})
	}
	return res, nil
}

// Verify recomputes the balance from the entries and fails with an invariant
// violation when the cached balance disagrees.
func (s *accountService) Verify(ctx context.Context, caller model.Caller, id string) (VerifyAccountResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return VerifyAccountResponse{}, err
	}
	accountID, err := parseID("account id", id)
	if err != nil {
		return VerifyAccountResponse{}, err
	}

	account, sum, err := s.ledger.Verify(ctx, accountID)
	if err != nil {
		return VerifyAccountResponse{}, fail(ctx, "account not found", err)
	}
	return VerifyAccountResponse{
		AccountID: account.ID.String(),
		Balance:   money(account.Balance),
		EntrySum:  money(sum),
	}, nil
}

// Summary totals an account's postings per entry kind over [from, to].
// Both bounds are dates; the range defaults to the current month.
func (s *accountService) Summary(ctx context.Context, caller model.Caller, id, from, to string) (AccountSummaryResponse, error) {
	account, err := s.readable(ctx, caller, id)
	if err != nil {
		return AccountSummaryResponse{}, err
	}

	month := model.MonthOf(s.now())
	start, end := month.Start(), month.End()
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return AccountSummaryResponse{}, apperrors.Validation("from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		day, err := time.Parse(dateLayout, to)
		if err != nil {
			return AccountSummaryResponse{}, apperrors.Validation("to must be YYYY-MM-DD")
		}
		end = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		return AccountSummaryResponse{}, apperrors.Validation("from must not be after to")
	}

	rows, err := s.reportRepo.EntryTotals(ctx, account.ID, start, end)
	if err != nil {
		return AccountSummaryResponse{}, fail(ctx, "summarize account", err)
	}

	net := decimal.Zero
	res := AccountSummaryResponse{
		AccountID: account.ID.String(),
		From:      start.Format(dateLayout),
		To:        end.Format(dateLayout),
		Totals:    make([]EntryKindTotal, 0, len(rows)),
	}
	for _, row := range rows {
		debits := row.Debits.Decimal.Round(2)
		credits := row.Credits.Decimal.Round(2)
		rowNet := debits.Add(credits)
		net = net.Add(rowNet)
		res.Totals = append(res.Totals, EntryKindTotal{
			EntryKind: string(row.EntryKind),
			Debits:    money(debits),
			Credits:   money(credits),
			Net:       money(rowNet),
			Count:     row.Count,
		})
	}
	res.Net = money(net)
	return res, nil
}

// readable loads the account if the caller may see it. Branch callers only see
// their own branch's account.
func (s *accountService) readable(ctx context.Context, caller model.Caller, id string) (*model.Account, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant, model.RoleStaff, model.RoleBranch); err != nil {
		return nil, err
	}
	accountID, err := parseID("account id", id)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fail(ctx, "account not found", err)
	}
	if caller.Role == model.RoleBranch {
		if account.OwnerKind != model.OwnerBranch || caller.BranchID == nil || *caller.BranchID != account.OwnerID {
			return nil, apperrors.Forbidden("branch callers can only read their own branch account")
		}
	}
	return account, nil
}

func toAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		OwnerKind: string(a.OwnerKind),
		OwnerID:   a.OwnerID.String(),
		Currency:  a.Currency,
		Balance:   money(a.Balance),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt.Format(timeLayout),
	}
}
