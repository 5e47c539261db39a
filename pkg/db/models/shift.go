package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// Shift is one operator's bounded work period. The closing fields are
// snapshots written at close; the ShiftOperation ledger stays the source of
// truth for reconciliation.
type Shift struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OperatorID          uuid.UUID         `gorm:"column:operator_id;type:uuid;not null;index"`
	SectorID            *uuid.UUID        `gorm:"column:sector_id;type:uuid"`
	DeviceID            *string           `gorm:"column:device_id"`
	Status              enums.ShiftStatus `gorm:"column:status;type:shift_status;not null;default:'open'"`
	OpenedAt            time.Time         `gorm:"column:opened_at;not null"`
	ClosedAt            *time.Time        `gorm:"column:closed_at"`
	OpeningFloat        decimal.Decimal   `gorm:"column:opening_float;type:numeric(12,2);not null"`
	ClosingDeclaredCash *decimal.Decimal  `gorm:"column:closing_declared_cash;type:numeric(12,2)"`
	CashOverShort       *decimal.Decimal  `gorm:"column:cash_over_short;type:numeric(12,2)"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
