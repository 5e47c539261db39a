package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// Debt is an unpaid obligation against a plate. Session-originated debts are
// created when a session is force-closed without payment; only a settle
// operation mutates the row afterwards.
type Debt struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Plate           string           `gorm:"column:plate;not null;index"`
	Origin          enums.DebtOrigin `gorm:"column:origin;type:debt_origin;not null"`
	PrincipalAmount decimal.Decimal  `gorm:"column:principal_amount;type:numeric(12,2);not null"`
	Status          enums.DebtStatus `gorm:"column:status;type:debt_status;not null;default:'pending'"`
	SessionID       *uuid.UUID       `gorm:"column:session_id;type:uuid;index"`
	SettledAt       *time.Time       `gorm:"column:settled_at"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
