package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// Sale is the billed outcome of a paid session, the row receipt rendering
// reads from.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID     uuid.UUID           `gorm:"column:session_id;type:uuid;not null;uniqueIndex"`
	ShiftID       *uuid.UUID          `gorm:"column:shift_id;type:uuid;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	SoldAt        time.Time           `gorm:"column:sold_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
