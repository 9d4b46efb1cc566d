package service

import (
	"context"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type ChangeRatesRequest struct {
	RateKg          *string `json:"rate_kg"`          // Decimal string; nil leaves the axis unchanged
	RateCbm         *string `json:"rate_cbm"`         // Decimal string; nil leaves the axis unchanged
	ExpectedVersion *int64  `json:"expected_version"` // Optional optimistic concurrency token
}

type RepricedOrder struct {
	OrderID  string          `json:"order_id"`
	OldTotal string          `json:"old_total"`
	NewTotal string          `json:"new_total"`
	Delta    string          `json:"delta"`
	Posting  PostingResponse `json:"posting"`
}

type SkippedOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"` // custom_rate or invoiced
}

type ChangeRatesResponse struct {
	ShipmentID     string          `json:"shipment_id"`
	DefaultRateKg  string          `json:"default_rate_kg"`
	DefaultRateCbm string          `json:"default_rate_cbm"`
	Version        int64           `json:"version"`
	Repriced       []RepricedOrder `json:"repriced"`
	Skipped        []SkippedOrder  `json:"skipped"`
}

const (
	skipCustomRate = "custom_rate"
	skipInvoiced   = "invoiced"
)

// --- Interface ---

type RateService interface {
	ChangeShipmentRates(ctx context.Context, caller model.Caller, shipmentID string, req ChangeRatesRequest) (ChangeRatesResponse, error)
}

type rateService struct {
	shipmentRepo repository.ShipmentRepository
	orderRepo    repository.OrderRepository
	invoiceRepo  repository.InvoiceRepository
	reconciler   Reconciler
	settings     SettingsProvider
	txManager    repository.TransactionManager
	observers    Observers
}

func NewRateService(
	shipmentRepo repository.ShipmentRepository,
	orderRepo repository.OrderRepository,
	invoiceRepo repository.InvoiceRepository,
	reconciler Reconciler,
	settings SettingsProvider,
	txManager repository.TransactionManager,
	observers Observers,
) RateService {
	return &rateService{
		shipmentRepo: shipmentRepo,
		orderRepo:    orderRepo,
		invoiceRepo:  invoiceRepo,
		reconciler:   reconciler,
		settings:     settings,
		txManager:    txManager,
		observers:    observers.withDefaults(),
	}
}

// --- Implementation ---

// ChangeShipmentRates moves the shipment's default rates and carries the change
// to every order still priced at the old default. Any live invoice line under
// the shipment rejects the whole request before anything is written.
func (s *rateService) ChangeShipmentRates(ctx context.Context, caller model.Caller, shipmentID string, req ChangeRatesRequest) (ChangeRatesResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return ChangeRatesResponse{}, err
	}
	id, err := parseID("shipment id", shipmentID)
	if err != nil {
		return ChangeRatesResponse{}, err
	}
	if req.RateKg == nil && req.RateCbm == nil {
		return ChangeRatesResponse{}, apperrors.Validation("rate_kg or rate_cbm is required")
	}
	var newKg, newCbm *decimal.Decimal
	if req.RateKg != nil {
		v, err := parseNonNegative("rate_kg", *req.RateKg)
		if err != nil {
			return ChangeRatesResponse{}, err
		}
		newKg = &v
	}
	if req.RateCbm != nil {
		v, err := parseNonNegative("rate_cbm", *req.RateCbm)
		if err != nil {
			return ChangeRatesResponse{}, err
		}
		newCbm = &v
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return ChangeRatesResponse{}, err
	}

	var (
		res    ChangeRatesResponse
		before map[string]any
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		shipment, err := s.shipmentRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperrors.Translate(err, "shipment not found")
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != shipment.Version {
			return apperrors.Conflict("shipment %s is at version %d, expected %d", shipment.Code, shipment.Version, *req.ExpectedVersion)
		}
		before = shipmentRates(shipment)

		locked, err := s.invoiceRepo.HasLiveLinesForShipment(txCtx, shipment.ID)
		if err != nil {
			return err
		}
		if locked {
			return apperrors.Conflict("shipment %s has invoiced orders, rates are frozen", shipment.Code)
		}

		oldKg, oldCbm := shipment.DefaultRateKg, shipment.DefaultRateCbm
		kgChanged := newKg != nil && !newKg.Equal(oldKg)
		cbmChanged := newCbm != nil && !newCbm.Equal(oldCbm)

		orders, err := s.orderRepo.ListByShipmentForUpdate(txCtx, shipment.ID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		invoiced, err := s.invoiceRepo.InvoicedOrderIDs(txCtx, ids)
		if err != nil {
			return err
		}

		res.Repriced = []RepricedOrder{}
		res.Skipped = []SkippedOrder{}
		for i := range orders {
			order := &orders[i]
			matchesKg := kgChanged && order.RateKg.Equal(oldKg)
			matchesCbm := cbmChanged && order.RateCbm.Equal(oldCbm)
			if !matchesKg && !matchesCbm {
				if kgChanged || cbmChanged {
					res.Skipped = append(res.Skipped, SkippedOrder{OrderID: order.ID.String(), Reason: skipCustomRate})
				}
				continue
			}
			if invoiced[order.ID] {
				res.Skipped = append(res.Skipped, SkippedOrder{OrderID: order.ID.String(), Reason: skipInvoiced})
				continue
			}

			if matchesKg {
				order.RateKg = *newKg
			}
			if matchesCbm {
				order.RateCbm = *newCbm
			}
			oldTotal := order.TotalPrice
			rec, err := repriceOrder(txCtx, s.orderRepo, s.reconciler, order, settings, caller.ActorID())
			if err != nil {
				return err
			}
			res.Repriced = append(res.Repriced, RepricedOrder{
				OrderID:  order.ID.String(),
				OldTotal: money(oldTotal),
				NewTotal: money(order.TotalPrice),
				Delta:    money(order.TotalPrice.Sub(oldTotal)),
				Posting:  toPostingResponse(rec, "adjustment"),
			})
		}

		if newKg != nil {
			shipment.DefaultRateKg = *newKg
		}
		if newCbm != nil {
			shipment.DefaultRateCbm = *newCbm
		}
		shipment.Version++
		if err := s.shipmentRepo.UpdateRates(txCtx, shipment); err != nil {
			return err
		}

		res.ShipmentID = shipment.ID.String()
		res.DefaultRateKg = shipment.DefaultRateKg.String()
		res.DefaultRateCbm = shipment.DefaultRateCbm.String()
		res.Version = shipment.Version
		return nil
	})
	if err != nil {
		return ChangeRatesResponse{}, fail(ctx, "change shipment rates", err)
	}

	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionChangeRates,
		EntityKind: model.EntityShipment,
		EntityID:   res.ShipmentID,
		Before:     before,
		After:      map[string]any{"default_rate_kg": res.DefaultRateKg, "default_rate_cbm": res.DefaultRateCbm, "version": res.Version},
		Extra:      map[string]any{"repriced": res.Repriced, "skipped": res.Skipped},
	}, websocket.EventShipmentRatesChanged, res)
	return res, nil
}

func shipmentRates(s *model.Shipment) map[string]any {
	return map[string]any{
		"default_rate_kg":  s.DefaultRateKg.String(),
		"default_rate_cbm": s.DefaultRateCbm.String(),
		"version":          s.Version,
	}
}
