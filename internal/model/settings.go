package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Setting keys stored in company_settings
const (
	SettingPointsPrice = "points_price"
)

// CompanySetting is a company-wide key/value override.
type CompanySetting struct {
	Key       string    `gorm:"type:varchar(50);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is resolved once per request and passed explicitly to the core.
type Settings struct {
	Currency    string
	PointsPrice decimal.Decimal // money per loyalty point; zero disables points
}

// Caller roles
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleBranch     = "branch"
	RoleStaff      = "staff"
)

// Caller is the resolved identity behind a request.
type Caller struct {
	UserID   uuid.UUID
	Role     string
	BranchID *uuid.UUID
}

func (c Caller) HasRole(roles ...string) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// ActorID is the audit/creator id, nil for anonymous callers.
func (c Caller) ActorID() *uuid.UUID {
	if c.UserID == uuid.Nil {
		return nil
	}
	id := c.UserID
	return &id
}
