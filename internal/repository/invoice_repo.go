package repository

import (
	"context"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	MarkVoid(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	HasLiveLinesForShipment(ctx context.Context, shipmentID uuid.UUID) (bool, error)
	LiveLineOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]uuid.UUID, error)
	InvoicedOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	db := GetDB(ctx, r.db)

	var invoice model.Invoice
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("invoice_id = ?", invoice.ID).Order("created_at, id").Find(&invoice.Lines).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkVoid voids the invoice and every one of its lines.
func (r *invoiceRepository) MarkVoid(ctx context.Context, id uuid.UUID, at time.Time) error {
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":    model.InvoiceVoid,
		"voided_at": at,
	}).Error; err != nil {
		return err
	}
	return db.Model(&model.InvoiceLineItem{}).Where("invoice_id = ?", id).Update("is_void", true).Error
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("invoice_no LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// liveLines selects line items that are not void on an invoice that is not void.
func (r *invoiceRepository) liveLines(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).
		Model(&model.InvoiceLineItem{}).
		Joins("JOIN invoices ON invoices.id = invoice_line_items.invoice_id").
		Where("invoice_line_items.is_void = ? AND invoices.status <> ?", false, model.InvoiceVoid)
}

func (r *invoiceRepository) HasLiveLinesForShipment(ctx context.Context, shipmentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.liveLines(ctx).
		Joins("JOIN orders ON orders.id = invoice_line_items.order_id").
		Where("orders.shipment_id = ?", shipmentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *invoiceRepository) LiveLineOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(orderIDs) == 0 {
		return ids, nil
	}
	if err := r.liveLines(ctx).
		Where("invoice_line_items.order_id IN ?", orderIDs).
		Distinct().
		Pluck("invoice_line_items.order_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// InvoicedOrderIDs reports which orders appear on any invoice line, live or void.
func (r *invoiceRepository) InvoicedOrderIDs(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(orderIDs) == 0 {
		return result, nil
	}
	var ids []uuid.UUID
	if err := GetDB(ctx, r.db).
		Model(&model.InvoiceLineItem{}).
		Where("order_id IN ?", orderIDs).
		Distinct().
		Pluck("order_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
