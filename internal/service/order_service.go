package service

import (
	"context"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/pricing"
	"backoffice/internal/repository"
	"backoffice/internal/websocket"

	"github.com/google/uuid"
)

// --- DTOs ---

type AdjustmentRequest struct {
	Kind     string `json:"kind" binding:"required,oneof=cost discount"`
	CalcType string `json:"calc_type" binding:"required,oneof=amount percentage"`
	Value    string `json:"value" binding:"required"` // Decimal string
	Note     string `json:"note"`
}

type CreateOrderRequest struct {
	ShipmentID  string              `json:"shipment_id" binding:"required"`
	CustomerID  string              `json:"customer_id" binding:"required"`
	BranchID    string              `json:"branch_id" binding:"required"`
	Qty         string              `json:"qty" binding:"required"`
	WeightType  string              `json:"weight_type" binding:"required,oneof=actual volumetric"`
	RateKg      *string             `json:"rate_kg"`  // Optional: overrides the shipment default
	RateCbm     *string             `json:"rate_cbm"` // Optional: overrides the shipment default
	Note        string              `json:"note"`
	Adjustments []AdjustmentRequest `json:"adjustments"`
}

type ChangeOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetOrderRateRequest struct {
	RateKg  *string `json:"rate_kg"`
	RateCbm *string `json:"rate_cbm"`
}

type AdjustmentResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	CalcType       string `json:"calc_type"`
	Value          string `json:"value"`
	ComputedAmount string `json:"computed_amount"`
	Note           string `json:"note"`
}

type OrderResponse struct {
	ID                string               `json:"id"`
	ShipmentID        string               `json:"shipment_id"`
	CustomerID        string               `json:"customer_id"`
	BranchID          string               `json:"branch_id"`
	Qty               string               `json:"qty"`
	WeightType        string               `json:"weight_type"`
	RateKg            string               `json:"rate_kg"`
	RateCbm           string               `json:"rate_cbm"`
	BasePrice         string               `json:"base_price"`
	AdjustmentsTotal  string               `json:"adjustments_total"`
	TotalPrice        string               `json:"total_price"`
	FulfillmentStatus string               `json:"fulfillment_status"`
	Note              string               `json:"note"`
	Adjustments       []AdjustmentResponse `json:"adjustments"`
	CreatedAt         string               `json:"created_at"`
}

// PostingResponse summarizes the ledger effect of an order operation.
type PostingResponse struct {
	Kind          string  `json:"kind"` // none, charge, reversal or adjustment
	Amount        string  `json:"amount"`
	TransferID    *string `json:"transfer_id"`
	PointsApplied string  `json:"points_applied"`
}

type OrderChangeResponse struct {
	Order   OrderResponse   `json:"order"`
	Posting PostingResponse `json:"posting"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, caller model.Caller, req CreateOrderRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, caller model.Caller, id string) (OrderResponse, error)
	ChangeStatus(ctx context.Context, caller model.Caller, id string, req ChangeOrderStatusRequest) (OrderChangeResponse, error)
	SetOrderRate(ctx context.Context, caller model.Caller, id string, req SetOrderRateRequest) (OrderChangeResponse, error)
	AddAdjustment(ctx context.Context, caller model.Caller, id string, req AdjustmentRequest) (OrderChangeResponse, error)
	RemoveAdjustment(ctx context.Context, caller model.Caller, id, adjustmentID string) (OrderChangeResponse, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	shipmentRepo repository.ShipmentRepository
	customerRepo repository.CustomerRepository
	branchRepo   repository.BranchRepository
	invoiceRepo  repository.InvoiceRepository
	ledger       LedgerService
	reconciler   Reconciler
	settings     SettingsProvider
	txManager    repository.TransactionManager
	observers    Observers
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	shipmentRepo repository.ShipmentRepository,
	customerRepo repository.CustomerRepository,
	branchRepo repository.BranchRepository,
	invoiceRepo repository.InvoiceRepository,
	ledger LedgerService,
	reconciler Reconciler,
	settings SettingsProvider,
	txManager repository.TransactionManager,
	observers Observers,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		customerRepo: customerRepo,
		branchRepo:   branchRepo,
		invoiceRepo:  invoiceRepo,
		ledger:       ledger,
		reconciler:   reconciler,
		settings:     settings,
		txManager:    txManager,
		observers:    observers.withDefaults(),
	}
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, caller model.Caller, req CreateOrderRequest) (OrderResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant, model.RoleBranch); err != nil {
		return OrderResponse{}, err
	}

	shipmentID, err := parseID("shipment_id", req.ShipmentID)
	if err != nil {
		return OrderResponse{}, err
	}
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return OrderResponse{}, err
	}
	branchID, err := parseID("branch_id", req.BranchID)
	if err != nil {
		return OrderResponse{}, err
	}
	if err := checkBranchScope(caller, branchID); err != nil {
		return OrderResponse{}, err
	}
	qty, err := parseDecimal("qty", req.Qty)
	if err != nil {
		return OrderResponse{}, err
	}
	if !qty.IsPositive() {
		return OrderResponse{}, apperrors.Validation("qty must be greater than 0")
	}
	weightType := model.WeightType(req.WeightType)
	if !weightType.Valid() {
		return OrderResponse{}, apperrors.Validation("weight_type must be actual or volumetric")
	}

	adjustments := make([]model.OrderAdjustment, 0, len(req.Adjustments))
	for _, a := range req.Adjustments {
		adj, err := buildAdjustment(a)
		if err != nil {
			return OrderResponse{}, err
		}
		adjustments = append(adjustments, adj)
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return OrderResponse{}, err
	}

	var order model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		shipment, err := s.shipmentRepo.FindByID(txCtx, shipmentID)
		if err != nil {
			return apperrors.Translate(err, "shipment not found")
		}
		if !shipment.Status.IsShipmentStage() {
			return apperrors.InvalidState("shipment %s no longer accepts orders", shipment.Code)
		}
		if _, err := s.customerRepo.FindByID(txCtx, customerID); err != nil {
			return apperrors.Translate(err, "customer not found")
		}
		if _, err := s.branchRepo.FindByID(txCtx, branchID); err != nil {
			return apperrors.Translate(err, "branch not found")
		}

		order = model.Order{
			ShipmentID:        shipment.ID,
			CustomerID:        customerID,
			BranchID:          branchID,
			Qty:               qty,
			WeightType:        weightType,
			RateKg:            shipment.DefaultRateKg,
			RateCbm:           shipment.DefaultRateCbm,
			FulfillmentStatus: shipment.Status,
			Note:              req.Note,
			Adjustments:       adjustments,
		}
		if err := applyRateOverrides(&order, req.RateKg, req.RateCbm); err != nil {
			return err
		}
		pricing.Reprice(&order)

		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return err
		}
		if _, err := s.ledger.EnsureAccount(txCtx, model.OwnerCustomer, customerID, settings.Currency); err != nil {
			return err
		}
		if _, err := s.ledger.EnsureAccount(txCtx, model.OwnerBranch, branchID, settings.Currency); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return OrderResponse{}, fail(ctx, "create order", err)
	}

	res := toOrderResponse(&order)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionCreateOrder,
		EntityKind: model.EntityOrder,
		EntityID:   order.ID.String(),
		After:      res,
	}, websocket.EventOrderCreated, res)
	return res, nil
}

func (s *orderService) GetOrder(ctx context.Context, caller model.Caller, id string) (OrderResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant, model.RoleBranch, model.RoleStaff); err != nil {
		return OrderResponse{}, err
	}
	orderID, err := parseID("order id", id)
	if err != nil {
		return OrderResponse{}, err
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderResponse{}, fail(ctx, "order not found", err)
	}
	if err := checkBranchScope(caller, order.BranchID); err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ChangeStatus(ctx context.Context, caller model.Caller, id string, req ChangeOrderStatusRequest) (OrderChangeResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant, model.RoleBranch); err != nil {
		return OrderChangeResponse{}, err
	}
	orderID, err := parseID("order id", id)
	if err != nil {
		return OrderChangeResponse{}, err
	}
	next := model.FulfillmentStatus(req.Status)
	if !next.Valid() {
		return OrderChangeResponse{}, apperrors.Validation("unknown fulfillment status %q", req.Status)
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return OrderChangeResponse{}, err
	}

	var (
		order  *model.Order
		before OrderResponse
		rec    Reconciliation
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return apperrors.Translate(err, "order not found")
		}
		if err := checkBranchScope(caller, order.BranchID); err != nil {
			return err
		}
		before = toOrderResponse(order)

		rec, err = s.reconciler.Transition(txCtx, order, next, settings, caller.ActorID())
		if err != nil {
			return err
		}
		if order.FulfillmentStatus == next {
			return nil
		}
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, next); err != nil {
			return err
		}
		order.FulfillmentStatus = next
		return nil
	})
	if err != nil {
		return OrderChangeResponse{}, fail(ctx, "change order status", err)
	}

	res := OrderChangeResponse{Order: toOrderResponse(order), Posting: toPostingResponse(rec, "")}
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionOrderStatus,
		EntityKind: model.EntityOrder,
		EntityID:   order.ID.String(),
		Before:     before,
		After:      res.Order,
		Extra:      res.Posting,
	}, websocket.EventOrderStatus, res)
	return res, nil
}

func (s *orderService) SetOrderRate(ctx context.Context, caller model.Caller, id string, req SetOrderRateRequest) (OrderChangeResponse, error) {
	if req.RateKg == nil && req.RateCbm == nil {
		return OrderChangeResponse{}, apperrors.Validation("rate_kg or rate_cbm is required")
	}
	return s.reprice(ctx, caller, id, model.ActionOrderRate, func(_ context.Context, order *model.Order) error {
		return applyRateOverrides(order, req.RateKg, req.RateCbm)
	})
}

func (s *orderService) AddAdjustment(ctx context.Context, caller model.Caller, id string, req AdjustmentRequest) (OrderChangeResponse, error) {
	adj, err := buildAdjustment(req)
	if err != nil {
		return OrderChangeResponse{}, err
	}
	return s.reprice(ctx, caller, id, model.ActionAddAdjustment, func(txCtx context.Context, order *model.Order) error {
		adj.OrderID = order.ID
		adj.ComputedAmount = pricing.AdjustmentAmount(order.BasePrice, pricing.Adjustment{Kind: adj.Kind, CalcType: adj.CalcType, Value: adj.Value})
		if err := s.orderRepo.CreateAdjustment(txCtx, &adj); err != nil {
			return err
		}
		order.Adjustments = append(order.Adjustments, adj)
		return nil
	})
}

func (s *orderService) RemoveAdjustment(ctx context.Context, caller model.Caller, id, adjustmentID string) (OrderChangeResponse, error) {
	adjID, err := parseID("adjustment id", adjustmentID)
	if err != nil {
		return OrderChangeResponse{}, err
	}
	return s.reprice(ctx, caller, id, model.ActionRemoveAdjustment, func(txCtx context.Context, order *model.Order) error {
		if err := s.orderRepo.DeleteAdjustment(txCtx, order.ID, adjID); err != nil {
			return apperrors.Translate(err, "adjustment not found")
		}
		kept := order.Adjustments[:0]
		for _, a := range order.Adjustments {
			if a.ID != adjID {
				kept = append(kept, a)
			}
		}
		order.Adjustments = kept
		return nil
	})
}

// reprice runs one locked, invoice-checked pricing change on a single order and
// posts only the resulting delta.
func (s *orderService) reprice(ctx context.Context, caller model.Caller, id, action string, mutate func(context.Context, *model.Order) error) (OrderChangeResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return OrderChangeResponse{}, err
	}
	orderID, err := parseID("order id", id)
	if err != nil {
		return OrderChangeResponse{}, err
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return OrderChangeResponse{}, err
	}

	var (
		order  *model.Order
		before OrderResponse
		rec    Reconciliation
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return apperrors.Translate(err, "order not found")
		}
		locked, err := s.invoiceRepo.LiveLineOrderIDs(txCtx, []uuid.UUID{order.ID})
		if err != nil {
			return err
		}
		if len(locked) > 0 {
			return apperrors.Conflict("order %s is on a live invoice and cannot be repriced", order.ID)
		}
		before = toOrderResponse(order)

		if err := mutate(txCtx, order); err != nil {
			return err
		}
		rec, err = repriceOrder(txCtx, s.orderRepo, s.reconciler, order, settings, caller.ActorID())
		return err
	})
	if err != nil {
		return OrderChangeResponse{}, fail(ctx, "reprice order", err)
	}

	res := OrderChangeResponse{Order: toOrderResponse(order), Posting: toPostingResponse(rec, "adjustment")}
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     action,
		EntityKind: model.EntityOrder,
		EntityID:   order.ID.String(),
		Before:     before,
		After:      res.Order,
		Extra:      res.Posting,
	}, websocket.EventOrderRepriced, res)
	return res, nil
}

// repriceOrder recomputes the order from its current inputs, persists it and
// routes the change in total through the reconciler.
func repriceOrder(ctx context.Context, orderRepo repository.OrderRepository, rec Reconciler, order *model.Order, settings model.Settings, actor *uuid.UUID) (Reconciliation, error) {
	oldTotal := order.TotalPrice
	pricing.Reprice(order)
	if err := orderRepo.UpdatePricing(ctx, order); err != nil {
		return Reconciliation{}, err
	}
	return rec.ApplyDelta(ctx, order, oldTotal, order.TotalPrice, settings, actor)
}

// --- Helpers ---

// checkBranchScope limits branch callers to their own branch.
func checkBranchScope(caller model.Caller, branchID uuid.UUID) error {
	if caller.Role != model.RoleBranch {
		return nil
	}
	if caller.BranchID == nil || *caller.BranchID != branchID {
		return apperrors.Forbidden("branch callers may only act on their own branch")
	}
	return nil
}

func applyRateOverrides(order *model.Order, rateKg, rateCbm *string) error {
	if rateKg != nil {
		v, err := parseNonNegative("rate_kg", *rateKg)
		if err != nil {
			return err
		}
		order.RateKg = v
	}
	if rateCbm != nil {
		v, err := parseNonNegative("rate_cbm", *rateCbm)
		if err != nil {
			return err
		}
		order.RateCbm = v
	}
	return nil
}

func buildAdjustment(req AdjustmentRequest) (model.OrderAdjustment, error) {
	value, err := parseDecimal("adjustment value", req.Value)
	if err != nil {
		return model.OrderAdjustment{}, err
	}
	adj := pricing.Adjustment{
		Kind:     model.AdjustmentKind(req.Kind),
		CalcType: model.CalcType(req.CalcType),
		Value:    value,
	}
	if err := pricing.ValidateAdjustment(adj); err != nil {
		return model.OrderAdjustment{}, err
	}
	return model.OrderAdjustment{Kind: adj.Kind, CalcType: adj.CalcType, Value: adj.Value, Note: req.Note}, nil
}

func toOrderResponse(o *model.Order) OrderResponse {
	adjustments := make([]AdjustmentResponse, 0, len(o.Adjustments))
	for _, a := range o.Adjustments {
		adjustments = append(adjustments, AdjustmentResponse{
			ID:             a.ID.String(),
			Kind:           string(a.Kind),
			CalcType:       string(a.CalcType),
			Value:          a.Value.String(),
			ComputedAmount: money(a.ComputedAmount),
			Note:           a.Note,
		})
	}
	return OrderResponse{
		ID:                o.ID.String(),
		ShipmentID:        o.ShipmentID.String(),
		CustomerID:        o.CustomerID.String(),
		BranchID:          o.BranchID.String(),
		Qty:               o.Qty.String(),
		WeightType:        string(o.WeightType),
		RateKg:            o.RateKg.String(),
		RateCbm:           o.RateCbm.String(),
		BasePrice:         money(o.BasePrice),
		AdjustmentsTotal:  money(o.AdjustmentsTotal),
		TotalPrice:        money(o.TotalPrice),
		FulfillmentStatus: string(o.FulfillmentStatus),
		Note:              o.Note,
		Adjustments:       adjustments,
		CreatedAt:         o.CreatedAt.Format(timeLayout),
	}
}

// toPostingResponse names the posting; deltaKind labels non-zero delta postings.
func toPostingResponse(rec Reconciliation, deltaKind string) PostingResponse {
	kind := "none"
	switch {
	case rec.Posting == model.PostingCharge:
		kind = "charge"
	case rec.Posting == model.PostingReversal:
		kind = "reversal"
	case rec.TransferID != nil && deltaKind != "":
		kind = deltaKind
	}
	res := PostingResponse{
		Kind:          kind,
		Amount:        money(rec.Amount),
		PointsApplied: rec.PointsApplied.String(),
	}
	if rec.TransferID != nil {
		tid := rec.TransferID.String()
		res.TransferID = &tid
	}
	return res
}
