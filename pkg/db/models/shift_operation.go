package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// ShiftOperation is an append-only ledger row. Rows are never updated or
// deleted; corrections are inverse adjustment entries.
type ShiftOperation struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShiftID     uuid.UUID                `gorm:"column:shift_id;type:uuid;not null;index"`
	Kind        enums.ShiftOperationKind `gorm:"column:kind;type:shift_operation_kind;not null"`
	Method      *enums.PaymentMethod     `gorm:"column:method;type:payment_method"`
	Amount      *decimal.Decimal         `gorm:"column:amount;type:numeric(12,2)"`
	At          time.Time                `gorm:"column:at;not null"`
	ReferenceID *uuid.UUID               `gorm:"column:reference_id;type:uuid"`
	Reason      *string                  `gorm:"column:reason"`
	ApprovedBy  *uuid.UUID               `gorm:"column:approved_by;type:uuid"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
}
