package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// Payment records the money received for a sale. Tendered and Change are
// populated for cash only.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID     uuid.UUID           `gorm:"column:sale_id;type:uuid;not null;index"`
	Method     enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Tendered   *decimal.Decimal    `gorm:"column:tendered;type:numeric(12,2)"`
	Change     *decimal.Decimal    `gorm:"column:change;type:numeric(12,2)"`
	ReceivedAt time.Time           `gorm:"column:received_at;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
