package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"backoffice/internal/apperrors"
	"backoffice/internal/audit"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type IssueInvoiceRequest struct {
	CustomerID string   `json:"customer_id" binding:"required"`
	OrderIDs   []string `json:"order_ids" binding:"required,min=1"`
	Note       string   `json:"note"`
}

type InvoiceLineResponse struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  string `json:"amount"`
	IsVoid  bool   `json:"is_void"`
}

type InvoiceResponse struct {
	ID         string                `json:"id"`
	InvoiceNo  string                `json:"invoice_no"`
	CustomerID string                `json:"customer_id"`
	Status     string                `json:"status"`
	Total      string                `json:"total"`
	Note       string                `json:"note"`
	Lines      []InvoiceLineResponse `json:"lines"`
	VoidedAt   *string               `json:"voided_at"`
	CreatedAt  string                `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	IssueInvoice(ctx context.Context, caller model.Caller, req IssueInvoiceRequest) (InvoiceResponse, error)
	VoidInvoice(ctx context.Context, caller model.Caller, id string) (InvoiceResponse, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	orderRepo   repository.OrderRepository
	txManager   repository.TransactionManager
	observers   Observers
	now         func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
	txManager repository.TransactionManager,
	observers Observers,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		txManager:   txManager,
		observers:   observers.withDefaults(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// --- Implementation ---

// IssueInvoice bills the customer for the given orders at their current totals.
// Each live line freezes the pricing inputs of its order.
func (s *invoiceService) IssueInvoice(ctx context.Context, caller model.Caller, req IssueInvoiceRequest) (InvoiceResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return InvoiceResponse{}, err
	}
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if len(req.OrderIDs) == 0 {
		return InvoiceResponse{}, apperrors.Validation("order_ids must not be empty")
	}
	seen := make(map[uuid.UUID]bool, len(req.OrderIDs))
	orderIDs := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, raw := range req.OrderIDs {
		id, err := parseID("order_id", raw)
		if err != nil {
			return InvoiceResponse{}, err
		}
		if seen[id] {
			return InvoiceResponse{}, apperrors.Validation("order %s is listed twice", id)
		}
		seen[id] = true
		orderIDs = append(orderIDs, id)
	}

	var invoice model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		orders := make([]*model.Order, 0, len(orderIDs))
		for _, id := range sortedIDs(orderIDs) {
			order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
			if err != nil {
				return apperrors.Translate(err, fmt.Sprintf("order %s not found", id))
			}
			if order.CustomerID != customerID {
				return apperrors.Validation("order %s does not belong to customer %s", id, customerID)
			}
			orders = append(orders, order)
		}

		live, err := s.invoiceRepo.LiveLineOrderIDs(txCtx, orderIDs)
		if err != nil {
			return err
		}
		if len(live) > 0 {
			return apperrors.Conflict("order %s is already on a live invoice", live[0])
		}

		invoiceNo, err := s.generateInvoiceNo(txCtx)
		if err != nil {
			return err
		}

		invoice = model.Invoice{
			InvoiceNo:  invoiceNo,
			CustomerID: customerID,
			Status:     model.InvoiceIssued,
			Total:      sumTotals(orders),
			Note:       req.Note,
			IssuedBy:   caller.ActorID(),
		}
		for _, o := range orders {
			invoice.Lines = append(invoice.Lines, model.InvoiceLineItem{OrderID: o.ID, Amount: o.TotalPrice})
		}
		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("invoice number %s was taken by a concurrent issue, retry the request", invoiceNo)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, fail(ctx, "issue invoice", err)
	}

	res := toInvoiceResponse(&invoice)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionIssueInvoice,
		EntityKind: model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		After:      res,
	}, websocket.EventInvoiceIssued, res)
	return res, nil
}

// VoidInvoice releases the invoice lock on every order it billed.
func (s *invoiceService) VoidInvoice(ctx context.Context, caller model.Caller, id string) (InvoiceResponse, error) {
	if err := requireRole(caller, model.RoleAdmin, model.RoleAccountant); err != nil {
		return InvoiceResponse{}, err
	}
	invoiceID, err := parseID("invoice id", id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return apperrors.Translate(err, "invoice not found")
		}
		if invoice.Status == model.InvoiceVoid {
			return apperrors.InvalidState("invoice %s is already void", invoice.InvoiceNo)
		}
		at := s.now()
		if err := s.invoiceRepo.MarkVoid(txCtx, invoice.ID, at); err != nil {
			return err
		}
		invoice.Status = model.InvoiceVoid
		invoice.VoidedAt = &at
		for i := range invoice.Lines {
			invoice.Lines[i].IsVoid = true
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, fail(ctx, "void invoice", err)
	}

	res := toInvoiceResponse(invoice)
	s.observers.committed(ctx, audit.Entry{
		Actor:      caller.ActorID(),
		Action:     model.ActionVoidInvoice,
		EntityKind: model.EntityInvoice,
		EntityID:   invoice.ID.String(),
		Before:     map[string]string{"status": model.InvoiceIssued},
		After:      map[string]string{"status": model.InvoiceVoid},
	}, websocket.EventInvoiceVoided, res)
	return res, nil
}

// generateInvoiceNo numbers invoices per day as count+1. Two concurrent issues
// can draw the same number; the unique index rejects the later one.
func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	prefix := "INV-" + s.now().Format("20060102") + "-"

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- Helpers ---

func toInvoiceResponse(inv *model.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, InvoiceLineResponse{
			ID:      l.ID.String(),
			OrderID: l.OrderID.String(),
			Amount:  money(l.Amount),
			IsVoid:  l.IsVoid,
		})
	}
	res := InvoiceResponse{
		ID:         inv.ID.String(),
		InvoiceNo:  inv.InvoiceNo,
		CustomerID: inv.CustomerID.String(),
		Status:     inv.Status,
		Total:      money(inv.Total),
		Note:       inv.Note,
		Lines:      lines,
		CreatedAt:  inv.CreatedAt.Format(timeLayout),
	}
	if inv.VoidedAt != nil {
		v := inv.VoidedAt.Format(timeLayout)
		res.VoidedAt = &v
	}
	return res
}

// sortedIDs orders ids so row locks are always taken in the same sequence.
func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sumTotals(orders []*model.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalPrice)
	}
	return total.Round(2)
}
