package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"backoffice/internal/audit"
	"backoffice/internal/database"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCurrency = "VND"

var (
	adminCaller      = model.Caller{UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Role: model.RoleAdmin}
	accountantCaller = model.Caller{UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Role: model.RoleAccountant}
	staffCaller      = model.Caller{UserID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Role: model.RoleStaff}
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Publish(event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// env wires every service against a private in-memory SQLite database.
type env struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	accountRepo  repository.AccountRepository
	orderRepo    repository.OrderRepository
	shipmentRepo repository.ShipmentRepository
	customerRepo repository.CustomerRepository
	branchRepo   repository.BranchRepository
	staffRepo    repository.StaffRepository
	settingsRepo repository.SettingsRepository

	ledger    LedgerService
	settings  SettingsProvider
	shipments ShipmentService
	rates     RateService
	orders    OrderService
	invoices  InvoiceService
	accounts  AccountService
	salaries  SalaryService

	audit    *recordingAudit
	notifier *recordingNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, testCurrency))

	e := &env{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		accountRepo:  repository.NewAccountRepository(db),
		orderRepo:    repository.NewOrderRepository(db),
		shipmentRepo: repository.NewShipmentRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		branchRepo:   repository.NewBranchRepository(db),
		staffRepo:    repository.NewStaffRepository(db),
		settingsRepo: repository.NewSettingsRepository(db),
		audit:        &recordingAudit{},
		notifier:     &recordingNotifier{},
	}

	txManager := repository.NewTransactionManager(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	observers := Observers{Audit: e.audit, Notifier: e.notifier}

	e.settings = NewSettingsProvider(e.settingsRepo, model.Settings{Currency: testCurrency, PointsPrice: decimal.Zero})
	e.ledger = NewLedgerService(e.accountRepo, txManager)
	reconciler := NewReconciler(e.ledger, e.customerRepo)
	e.shipments = NewShipmentService(e.shipmentRepo, e.orderRepo, e.branchRepo, reconciler, e.settings, txManager, observers)
	e.rates = NewRateService(e.shipmentRepo, e.orderRepo, invoiceRepo, reconciler, e.settings, txManager, observers)
	e.orders = NewOrderService(e.orderRepo, e.shipmentRepo, e.customerRepo, e.branchRepo, invoiceRepo, e.ledger, reconciler, e.settings, txManager, observers)
	e.invoices = NewInvoiceService(invoiceRepo, e.orderRepo, txManager, observers)
	e.accounts = NewAccountService(e.accountRepo, repository.NewReportRepository(db), e.ledger, e.settings, txManager, observers)
	e.salaries = NewSalaryService(e.staffRepo, e.ledger, e.settings, txManager, observers)
	return e
}

func (e *env) branch() *model.Branch {
	e.t.Helper()
	b := &model.Branch{Name: "Hanoi"}
	require.NoError(e.t, e.branchRepo.Create(e.ctx, b))
	return b
}

func (e *env) customer() *model.Customer {
	e.t.Helper()
	c := &model.Customer{Name: "Lan", Phone: "0900000000", LoyaltyPoints: decimal.Zero}
	require.NoError(e.t, e.customerRepo.Create(e.ctx, c))
	return c
}

func (e *env) shipment(branchID uuid.UUID, rateKg, rateCbm string) ShipmentResponse {
	e.t.Helper()
	res, err := e.shipments.CreateShipment(e.ctx, adminCaller, CreateShipmentRequest{
		Code:           "SHP-" + uuid.NewString()[:8],
		BranchID:       branchID.String(),
		DefaultRateKg:  rateKg,
		DefaultRateCbm: rateCbm,
	})
	require.NoError(e.t, err)
	return res
}

// order creates the reference order: qty 10 at the shipment's kg rate plus a 3.00 cost.
func (e *env) order(shipmentID string, customerID, branchID uuid.UUID) OrderResponse {
	e.t.Helper()
	res, err := e.orders.CreateOrder(e.ctx, adminCaller, CreateOrderRequest{
		ShipmentID: shipmentID,
		CustomerID: customerID.String(),
		BranchID:   branchID.String(),
		Qty:        "10",
		WeightType: string(model.WeightActual),
		Adjustments: []AdjustmentRequest{
			{Kind: string(model.AdjustmentCost), CalcType: string(model.CalcAmount), Value: "3.00"},
		},
	})
	require.NoError(e.t, err)
	return res
}

// receive walks the order from in_shipment into received_subbranch.
func (e *env) receive(orderID string) OrderChangeResponse {
	e.t.Helper()
	var res OrderChangeResponse
	for _, status := range []model.FulfillmentStatus{model.StatusMainBranch, model.StatusPendingReceipt, model.StatusReceivedSubbranch} {
		var err error
		res, err = e.orders.ChangeStatus(e.ctx, adminCaller, orderID, ChangeOrderStatusRequest{Status: string(status)})
		require.NoError(e.t, err)
	}
	return res
}

func (e *env) balance(kind model.OwnerKind, ownerID uuid.UUID) string {
	e.t.Helper()
	account, err := e.ledger.FindAccount(e.ctx, kind, ownerID, testCurrency)
	require.NoError(e.t, err)
	return account.Balance.StringFixed(2)
}

func (e *env) account(kind model.OwnerKind, ownerID uuid.UUID) *model.Account {
	e.t.Helper()
	account, err := e.ledger.FindAccount(e.ctx, kind, ownerID, testCurrency)
	require.NoError(e.t, err)
	return account
}

// requireLedgerConsistent checks every account's cached balance against its entries.
func (e *env) requireLedgerConsistent() {
	e.t.Helper()
	var accounts []model.Account
	require.NoError(e.t, e.db.Find(&accounts).Error)
	for _, a := range accounts {
		_, _, err := e.ledger.Verify(e.ctx, a.ID)
		require.NoError(e.t, err, "account %s (%s)", a.ID, a.OwnerKind)
	}
}

func (e *env) entryCount(accountID uuid.UUID) int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(&model.LedgerEntry{}).Where("account_id = ?", accountID).Count(&n).Error)
	return n
}
