package service

import (
	"testing"

	"backoffice/internal/apperrors"
	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestChangeShipmentRates_RepricesReceivedOrderByDelta(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order := e.order(s.ID, c.ID, b.ID)
	e.receive(order.ID)
	require.Equal(t, "-53.00", e.balance(model.OwnerCustomer, c.ID))

	res, err := e.rates.ChangeShipmentRates(e.ctx, accountantCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.NoError(t, err)

	require.Len(t, res.Repriced, 1)
	assert.Empty(t, res.Skipped)
	repriced := res.Repriced[0]
	assert.Equal(t, "53.00", repriced.OldTotal)
	assert.Equal(t, "63.00", repriced.NewTotal)
	assert.Equal(t, "10.00", repriced.Delta)
	assert.Equal(t, "adjustment", repriced.Posting.Kind)
	assert.Equal(t, "6", res.DefaultRateKg)
	assert.EqualValues(t, 2, res.Version)

	assert.Equal(t, "-63.00", e.balance(model.OwnerCustomer, c.ID))
	assert.Equal(t, "63.00", e.balance(model.OwnerBranch, b.ID))
	assert.EqualValues(t, 2, e.entryCount(e.account(model.OwnerCustomer, c.ID).ID))

	got, err := e.orders.GetOrder(e.ctx, adminCaller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "63.00", got.TotalPrice)
	e.requireLedgerConsistent()
}

func TestChangeShipmentRates_RederivesPercentageAdjustments(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order, err := e.orders.CreateOrder(e.ctx, adminCaller, CreateOrderRequest{
		ShipmentID: s.ID,
		CustomerID: c.ID.String(),
		BranchID:   b.ID.String(),
		Qty:        "10",
		WeightType: string(model.WeightActual),
		Adjustments: []AdjustmentRequest{
			{Kind: string(model.AdjustmentDiscount), CalcType: string(model.CalcPercentage), Value: "10"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "45.00", order.TotalPrice)
	e.receive(order.ID)
	require.Equal(t, "-45.00", e.balance(model.OwnerCustomer, c.ID))

	res, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.NoError(t, err)
	require.Len(t, res.Repriced, 1)
	assert.Equal(t, "54.00", res.Repriced[0].NewTotal)
	assert.Equal(t, "9.00", res.Repriced[0].Delta)

	got, err := e.orders.GetOrder(e.ctx, adminCaller, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Adjustments, 1)
	assert.Equal(t, "-6.00", got.Adjustments[0].ComputedAmount)
	assert.Equal(t, "54.00", got.TotalPrice)
	assert.Equal(t, "-54.00", e.balance(model.OwnerCustomer, c.ID))
	e.requireLedgerConsistent()
}

func TestChangeShipmentRates_UnchargedOrdersOnlyReprice(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	order := e.order(s.ID, c.ID, b.ID)

	res, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.NoError(t, err)
	require.Len(t, res.Repriced, 1)
	assert.Equal(t, "none", res.Repriced[0].Posting.Kind)
	assert.Equal(t, "0.00", e.balance(model.OwnerCustomer, c.ID))

	// Orders created after the change pick up the new default.
	later := e.order(s.ID, c.ID, b.ID)
	assert.Equal(t, "63.00", later.TotalPrice)
	got, err := e.orders.GetOrder(e.ctx, adminCaller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "63.00", got.TotalPrice)
}

func TestChangeShipmentRates_SkipsCustomRates(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	standard := e.order(s.ID, c.ID, b.ID)
	custom, err := e.orders.CreateOrder(e.ctx, adminCaller, CreateOrderRequest{
		ShipmentID: s.ID, CustomerID: c.ID.String(), BranchID: b.ID.String(),
		Qty: "10", WeightType: string(model.WeightActual), RateKg: strPtr("7"),
	})
	require.NoError(t, err)

	res, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.NoError(t, err)

	require.Len(t, res.Repriced, 1)
	assert.Equal(t, standard.ID, res.Repriced[0].OrderID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SkippedOrder{OrderID: custom.ID, Reason: "custom_rate"}, res.Skipped[0])

	got, err := e.orders.GetOrder(e.ctx, adminCaller, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "70.00", got.TotalPrice)
}

func TestChangeShipmentRates_VersionConflict(t *testing.T) {
	e := newEnv(t)
	b := e.branch()
	s := e.shipment(b.ID, "5", "0")
	stale := s.Version

	_, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6"), ExpectedVersion: &stale})
	require.NoError(t, err)

	_, err = e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("7"), ExpectedVersion: &stale})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestChangeShipmentRates_InvoiceLockRejectsWholeRequest(t *testing.T) {
	e := newEnv(t)
	b, c := e.branch(), e.customer()
	s := e.shipment(b.ID, "5", "0")
	invoiced := e.order(s.ID, c.ID, b.ID)
	free := e.order(s.ID, c.ID, b.ID)
	e.receive(invoiced.ID)

	inv, err := e.invoices.IssueInvoice(e.ctx, accountantCaller, IssueInvoiceRequest{
		CustomerID: c.ID.String(),
		OrderIDs:   []string{invoiced.ID},
	})
	require.NoError(t, err)

	_, err = e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	for _, id := range []string{invoiced.ID, free.ID} {
		got, err := e.orders.GetOrder(e.ctx, adminCaller, id)
		require.NoError(t, err)
		assert.Equal(t, "53.00", got.TotalPrice)
		assert.Equal(t, "5", got.RateKg)
	}
	shipment, err := e.shipmentRepo.FindByID(e.ctx, uuid.MustParse(s.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 1, shipment.Version)
	assert.Equal(t, "-53.00", e.balance(model.OwnerCustomer, c.ID))

	// A single-order reprice is rejected the same way.
	_, err = e.orders.SetOrderRate(e.ctx, adminCaller, invoiced.ID, SetOrderRateRequest{RateKg: strPtr("6")})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Once voided the shipment can move, but the billed order keeps its price.
	_, err = e.invoices.VoidInvoice(e.ctx, accountantCaller, inv.ID)
	require.NoError(t, err)

	res, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	require.NoError(t, err)
	require.Len(t, res.Repriced, 1)
	assert.Equal(t, free.ID, res.Repriced[0].OrderID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, SkippedOrder{OrderID: invoiced.ID, Reason: "invoiced"}, res.Skipped[0])
	assert.Equal(t, "-53.00", e.balance(model.OwnerCustomer, c.ID))
}

func TestChangeShipmentRates_Validation(t *testing.T) {
	e := newEnv(t)
	b := e.branch()
	s := e.shipment(b.ID, "5", "0")

	_, err := e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.rates.ChangeShipmentRates(e.ctx, adminCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("-1")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = e.rates.ChangeShipmentRates(e.ctx, staffCaller, s.ID, ChangeRatesRequest{RateKg: strPtr("6")})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = e.rates.ChangeShipmentRates(e.ctx, adminCaller, uuid.NewString(), ChangeRatesRequest{RateKg: strPtr("6")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
