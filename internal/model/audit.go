package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateShipment     = "CREATE_SHIPMENT"
	ActionChangeRates        = "CHANGE_SHIPMENT_RATES"
	ActionShipmentStatus     = "CHANGE_SHIPMENT_STATUS"
	ActionCreateOrder        = "CREATE_ORDER"
	ActionOrderStatus        = "CHANGE_ORDER_STATUS"
	ActionOrderRate          = "CHANGE_ORDER_RATE"
	ActionAddAdjustment      = "ADD_ORDER_ADJUSTMENT"
	ActionRemoveAdjustment   = "REMOVE_ORDER_ADJUSTMENT"
	ActionIssueInvoice       = "ISSUE_INVOICE"
	ActionVoidInvoice        = "VOID_INVOICE"
	ActionOpenAccount        = "OPEN_ACCOUNT"
	ActionDeactivateAccount  = "DEACTIVATE_ACCOUNT"
	ActionRecordStaffExpense = "RECORD_STAFF_EXPENSE"
	ActionPaySalary          = "PAY_SALARY"
)

// Entity kinds used in audit rows
const (
	EntityShipment     = "shipment"
	EntityOrder        = "order"
	EntityInvoice      = "invoice"
	EntityAccount      = "account"
	EntityStaffExpense = "staff_expense"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // Nullable for automated actions
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityKind string         `gorm:"type:varchar(30);not null;index" json:"entity_kind"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	Before     datatypes.JSON `gorm:"type:jsonb" json:"before"`
	After      datatypes.JSON `gorm:"type:jsonb" json:"after"`
	Extra      datatypes.JSON `gorm:"type:jsonb" json:"extra"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
