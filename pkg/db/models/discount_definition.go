package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// DiscountDefinition describes a discount a session may redeem at checkout.
// Amount/percentage variants use Value and MaxAmount; the pricing_profile
// variant substitutes a flat rate model (MinuteValue, MinAmount,
// MinimumDuration) for the whole session.
type DiscountDefinition struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType    enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	Value           *decimal.Decimal   `gorm:"column:value;type:numeric(12,2)"`
	MaxAmount       *decimal.Decimal   `gorm:"column:max_amount;type:numeric(12,2)"`
	MinuteValue     *decimal.Decimal   `gorm:"column:minute_value;type:numeric(12,2)"`
	MinAmount       *decimal.Decimal   `gorm:"column:min_amount;type:numeric(12,2)"`
	MinimumDuration *int64             `gorm:"column:minimum_duration"`
	Priority        int                `gorm:"column:priority;not null;default:0"`
	ValidFrom       *time.Time         `gorm:"column:valid_from"`
	ValidUntil      *time.Time         `gorm:"column:valid_until"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
