package database

import (
	"fmt"
	"log/slog"

	"backoffice/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warn("failed to auto-migrate models", "error", err)
	}

	return db, nil
}

// Migrate creates or updates every table the back office owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Account{},
		&model.Transfer{},
		&model.LedgerEntry{},
		&model.Branch{},
		&model.Customer{},
		&model.Shipment{},
		&model.Order{},
		&model.OrderAdjustment{},
		&model.Invoice{},
		&model.InvoiceLineItem{},
		&model.StaffMember{},
		&model.StaffExpense{},
		&model.AuditLog{},
		&model.CompanySetting{},
	)
}

// Seed makes sure the company admin account exists in the base currency.
func Seed(db *gorm.DB, currency string) error {
	admin := model.Account{
		OwnerKind: model.OwnerAdmin,
		OwnerID:   model.AdminOwnerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		IsActive:  true,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_kind"}, {Name: "owner_id"}, {Name: "currency"}},
		DoNothing: true,
	}).Create(&admin).Error
	if err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	return nil
}
