package service

import (
	"context"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/websocket"
)

// --- DTOs ---

type CreateShipmentRequest struct {
	Code           string `json:"code" binding:"required"`
	BranchID       string `json:"branch_id" binding:"required"`
	DefaultRateKg  string `json:"default_rate_kg" binding:"required"`  // Decimal string
	DefaultRateCbm string `json:"default_rate_cbm" binding:"required"` // Decimal string
}

type ChangeShipmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=in_shipment main_branch pending_receipt"`
}

type ShipmentResponse struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	BranchID       string `json:"branch_id"`
	DefaultRateKg  string `json:"default_rate_kg"`
	DefaultRateCbm string `json:"default_rate_cbm"`
	Status         string `json:"status"`
	Version        int64  `json:"version"`
	CreatedAt      string `json:"created_at"`
}

type OrderStatusOutcome struct {
	OrderID    string          `json:"order_id"`
	FromStatus string          `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	Posting    PostingResponse `json:"posting"`
}

type ShipmentStatusResponse struct {
	Shipment ShipmentResponse     `json:"shipment"`
	Moved    []OrderStatusOutcome `json:"moved"`
	Skipped  []SkippedOrder       `json:"skipped"`
}

// --- Interface ---

type ShipmentService interface {
	CreateShipment(ctx context.Context, caller model.Caller, req CreateShipmentRequest) (ShipmentResponse, error)
	ChangeStatus(ctx context.Context, caller model.Caller, id string, req ChangeShipmentStatusRequest) (ShipmentStatusResponse, error)
}

type shipmentService struct {
	shipmentRepo repository.ShipmentRepository
	orderRepo    repository.OrderRepository
	branchRepo   repository.BranchRepository
	reconciler   Reconciler
	settings     SettingsProvider
	txManager    repository.TransactionManager
	observers    Observers
}

func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	orderRepo repository.OrderRepository,
	branchRepo repository.BranchRepository,
	reconciler Reconciler,
	settings SettingsProvider,
	txManager repository.TransactionManager,
	observers Observers,
) ShipmentService {
	return &shipmentService{
		shipmentRepo: shipmentRepo,
		orderRepo:    orderRepo,
		branchRepo:   branchRepo,
		reconciler:   reconciler,
		settings:     settings,
		txManager:    txManager,
		observers:    observers.withDefaults(),
	}
}

// --- Implementation ---

func (s *shipmentService) CreateShipment(ctx context.Context, caller model.Caller, req CreateShipmentRequest) (ShipmentResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return ShipmentResponse{}, err
	}
	if req.Code == "" {
		return ShipmentResponse{}, apperrors.Validation("code is required")
	}
	branchID, err := parseID("branch_id", req.BranchID)
	if err != nil {
		return ShipmentResponse{}, err
	}
	rateKg, err := parseNonNegative("default_rate_kg", req.DefaultRateKg)
	if err != nil {
		return ShipmentResponse{}, err
	}
	rateCbm, err := parseNonNegative("default_rate_cbm", req.DefaultRateCbm)
	if err != nil {
		return ShipmentResponse{}, err
	}

	shipment := model.Shipment{
		Code:           req.Code,
		BranchID:       branchID,
		DefaultRateKg:  rateKg,
		DefaultRateCbm: rateCbm,
		Status:         model.StatusInShipment,
		Version:        1,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.branchRepo.FindByID(txCtx, branchID); err != nil {
			return apperrors.Translate(err, "branch not found")
		}
		return s.shipmentRepo.Create(txCtx, &shipment)
	})
	if err != nil {
		return ShipmentResponse{}, fail(ctx, "create shipment", err)
	}

	res := toShipmentResponse(&shipment)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionCreateShipment,
		EntityKind: model.EntityShipment,
		EntityID:   shipment.ID.String(),
		After:      res,
	}, "", nil)
	return res, nil
}

// ChangeStatus moves the shipment and every order that can follow it. Orders in
// a terminal status, or that the transition table does not allow, stay put.
// A forward move never pulls back orders that are already further along; only a
// reset to an earlier stage does, reversing their charges.
func (s *shipmentService) ChangeStatus(ctx context.Context, caller model.Caller, id string, req ChangeShipmentStatusRequest) (ShipmentStatusResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return ShipmentStatusResponse{}, err
	}
	shipmentID, err := parseID("shipment id", id)
	if err != nil {
		return ShipmentStatusResponse{}, err
	}
	next := model.FulfillmentStatus(req.Status)
	if !next.IsShipmentStage() {
		return ShipmentStatusResponse{}, apperrors.Validation("shipments can only move to in_shipment, main_branch or pending_receipt")
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return ShipmentStatusResponse{}, err
	}

	var (
		res        ShipmentStatusResponse
		fromStatus model.FulfillmentStatus
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		shipment, err := s.shipmentRepo.FindByIDForUpdate(txCtx, shipmentID)
		if err != nil {
			return apperrors.Translate(err, "shipment not found")
		}
		fromStatus = shipment.Status
		if !shipment.Status.CanTransition(next) {
			return apperrors.InvalidState("shipment %s cannot move from %s to %s", shipment.Code, shipment.Status, next)
		}

		orders, err := s.orderRepo.ListByShipmentForUpdate(txCtx, shipment.ID)
		if err != nil {
			return err
		}
		forward := next.IsAfter(fromStatus)
		res.Moved = []OrderStatusOutcome{}
		res.Skipped = []SkippedOrder{}
		for i := range orders {
			order := &orders[i]
			current := order.FulfillmentStatus
			if current == next {
				continue
			}
			if current.IsTerminal() || (forward && current.IsAfter(next)) || !current.CanTransition(next) {
				res.Skipped = append(res.Skipped, SkippedOrder{OrderID: order.ID.String(), Reason: string(current)})
				continue
			}
			rec, err := s.reconciler.Transition(txCtx, order, next, settings, caller.ActorID())
			if err != nil {
				return err
			}
			if err := s.orderRepo.UpdateStatus(txCtx, order.ID, next); err != nil {
				return err
			}
			res.Moved = append(res.Moved, OrderStatusOutcome{
				OrderID:    order.ID.String(),
				FromStatus: string(order.FulfillmentStatus),
				ToStatus:   string(next),
				Posting:    toPostingResponse(rec, ""),
			})
		}

		if err := s.shipmentRepo.UpdateStatus(txCtx, shipment.ID, next); err != nil {
			return err
		}
		shipment.Status = next
		res.Shipment = toShipmentResponse(shipment)
		return nil
	})
	if err != nil {
		return ShipmentStatusResponse{}, fail(ctx, "change shipment status", err)
	}

	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionShipmentStatus,
		EntityKind: model.EntityShipment,
		EntityID:   res.Shipment.ID,
		Before:     map[string]string{"status": string(fromStatus)},
		After:      map[string]string{"status": res.Shipment.Status},
		Extra:      map[string]any{"moved": res.Moved, "skipped": res.Skipped},
	}, websocket.EventShipmentStatus, res)
	return res, nil
}

func toShipmentResponse(s *model.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:             s.ID.String(),
		Code:           s.Code,
		BranchID:       s.BranchID.String(),
		DefaultRateKg:  s.DefaultRateKg.String(),
		DefaultRateCbm: s.DefaultRateCbm.String(),
		Status:         string(s.Status),
		Version:        s.Version,
		CreatedAt:      s.CreatedAt.Format(timeLayout),
	}
}
