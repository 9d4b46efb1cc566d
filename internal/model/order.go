package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WeightType selects which rate prices an order.
type WeightType string

const (
	WeightActual     WeightType = "actual"
	WeightVolumetric WeightType = "volumetric"
)

func (w WeightType) Valid() bool {
	return w == WeightActual || w == WeightVolumetric
}

// AdjustmentKind enum constants
type AdjustmentKind string

const (
	AdjustmentCost     AdjustmentKind = "cost"
	AdjustmentDiscount AdjustmentKind = "discount"
)

// CalcType enum constants
type CalcType string

const (
	CalcAmount     CalcType = "amount"
	CalcPercentage CalcType = "percentage"
)

// Shipment is a consolidated cargo load. Its default rates are the template new
// orders copy; Version guards concurrent rate edits.
type Shipment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string            `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	BranchID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"branch_id"`
	DefaultRateKg  decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"default_rate_kg"`
	DefaultRateCbm decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"default_rate_cbm"`
	Status         FulfillmentStatus `gorm:"type:varchar(30);not null;default:'in_shipment'" json:"status"`
	Version        int64             `gorm:"not null;default:1" json:"version"`
	Orders         []Order           `gorm:"foreignKey:ShipmentID" json:"orders,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (s *Shipment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Order is one customer's parcel inside a shipment.
type Order struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ShipmentID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"shipment_id"`
	CustomerID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"customer_id"`
	BranchID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"branch_id"` // receiving branch credited on charge
	Qty               decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"qty"`
	WeightType        WeightType        `gorm:"type:varchar(20);not null" json:"weight_type"`
	RateKg            decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"rate_kg"`
	RateCbm           decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"rate_cbm"`
	BasePrice         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"base_price"`
	AdjustmentsTotal  decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"adjustments_total"`
	TotalPrice        decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"total_price"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:varchar(30);not null;index" json:"fulfillment_status"`
	Note              string            `gorm:"type:text" json:"note"`
	Adjustments       []OrderAdjustment `gorm:"foreignKey:OrderID" json:"adjustments"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderAdjustment is an itemized cost or discount. ComputedAmount is derived by
// pricing and is never taken from input.
type OrderAdjustment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Kind           AdjustmentKind  `gorm:"type:varchar(20);not null" json:"kind"`
	CalcType       CalcType        `gorm:"type:varchar(20);not null" json:"calc_type"`
	Value          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"value"`
	ComputedAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"computed_amount"`
	Note           string          `gorm:"type:text" json:"note"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (a *OrderAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Customer is billed for orders; its balance is read through its account.
type Customer struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Phone         string          `gorm:"type:varchar(50)" json:"phone"`
	LoyaltyPoints decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"loyalty_points"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Branch receives orders and is credited when its customers are charged.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsMain    bool      `gorm:"not null;default:false" json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
