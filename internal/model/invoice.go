package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceStatus enum constants
const (
	InvoiceIssued = "ISSUED"
	InvoiceVoid   = "VOID"
)

// Invoice bills a customer for one or more orders. While any of its lines is
// live, the pricing inputs of the referenced orders are frozen.
type Invoice struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNo  string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerID uuid.UUID         `gorm:"type:uuid;not null;index" json:"customer_id"`
	Status     string            `gorm:"type:varchar(20);not null;default:'ISSUED';index" json:"status"`
	Total      decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"total"`
	Note       string            `gorm:"type:text" json:"note"`
	Lines      []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"lines"`
	IssuedBy   *uuid.UUID        `gorm:"type:uuid" json:"issued_by"`
	VoidedAt   *time.Time        `json:"voided_at"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceLineItem references an order at the total it was billed for.
type InvoiceLineItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	IsVoid    bool            `gorm:"not null;default:false" json:"is_void"`
	CreatedAt time.Time       `json:"created_at"`
}

func (l *InvoiceLineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
