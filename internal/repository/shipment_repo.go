package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShipmentRepository interface {
	Create(ctx context.Context, shipment *model.Shipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	UpdateRates(ctx context.Context, shipment *model.Shipment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus) error
}

type shipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) Create(ctx context.Context, shipment *model.Shipment) error {
	return GetDB(ctx, r.db).Omit("Orders").Create(shipment).Error
}

func (r *shipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := GetDB(ctx, r.db).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateRates writes the default rates together with the bumped version.
func (r *shipmentRepository) UpdateRates(ctx context.Context, shipment *model.Shipment) error {
	return GetDB(ctx, r.db).Model(&model.Shipment{}).
		Where("id = ?", shipment.ID).
		Updates(map[string]interface{}{
			"default_rate_kg":  shipment.DefaultRateKg,
			"default_rate_cbm": shipment.DefaultRateCbm,
			"version":          shipment.Version,
		}).Error
}

func (r *shipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FulfillmentStatus) error {
	return GetDB(ctx, r.db).Model(&model.Shipment{}).Where("id = ?", id).Update("status", status).Error
}
