package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateAdjustment(ctx context.Context, adjustment *model.OrderAdjustment) error
	DeleteAdjustment(ctx context.Context, orderID, adjustmentID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByShipmentForUpdate(ctx context.Context, shipmentID uuid.UUID) ([]model.Order, error)
	UpdatePricing(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) CreateAdjustment(ctx context.Context, adjustment *model.OrderAdjustment) error {
	return GetDB(ctx, r.db).Create(adjustment).Error
}

func (r *orderRepository) DeleteAdjustment(ctx context.Context, orderID, adjustmentID uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND order_id = ?", adjustmentID, orderID).Delete(&model.OrderAdjustment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Adjustments", orderAdjustments).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	db := GetDB(ctx, r.db)

	var order model.Order
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := orderAdjustments(db.Where("order_id = ?", order.ID)).Find(&order.Adjustments).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByShipmentForUpdate locks every order of the shipment in id order and loads their adjustments.
func (r *orderRepository) ListByShipmentForUpdate(ctx context.Context, shipmentID uuid.UUID) ([]model.Order, error) {
	db := GetDB(ctx, r.db)

	var orders []model.Order
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shipment_id = ?", shipmentID).
		Order("id").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	var adjustments []model.OrderAdjustment
	if err := orderAdjustments(db.Where("order_id IN ?", ids)).Find(&adjustments).Error; err != nil {
		return nil, err
	}
	for _, a := range adjustments {
		i := index[a.OrderID]
		orders[i].Adjustments = append(orders[i].Adjustments, a)
	}
	return orders, nil
}

// UpdatePricing persists rates, derived prices and every adjustment's computed amount.
func (r *orderRepository) UpdatePricing(ctx context.Context, order *model.Order) error {
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"rate_kg":           order.RateKg,
			"rate_cbm":          order.RateCbm,
			"base_price":        order.BasePrice,
			"adjustments_total": order.AdjustmentsTotal,
			"total_price":       order.TotalPrice,
		}).Error; err != nil {
		return err
	}
	for _, a := range order.Adjustments {
		if err := db.Model(&model.OrderAdjustment{}).
			Where("id = ?", a.ID).
			Update("computed_amount", a.ComputedAmount).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("fulfillment_status", status).Error
}

func orderAdjustments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at, id")
}
