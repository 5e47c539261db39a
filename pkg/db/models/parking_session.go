package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// ParkingSession is the billing aggregate for one parked vehicle. Sessions
// are never deleted; every transition leaves the row behind as audit trail.
type ParkingSession struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Plate          string               `gorm:"column:plate;not null;index"`
	SectorID       uuid.UUID            `gorm:"column:sector_id;type:uuid;not null;index"`
	StreetID       *uuid.UUID           `gorm:"column:street_id;type:uuid"`
	OperatorID     uuid.UUID            `gorm:"column:operator_id;type:uuid;not null"`
	DeviceID       *string              `gorm:"column:device_id"`
	Status         enums.SessionStatus  `gorm:"column:status;type:session_status;not null;default:'active'"`
	StartedAt      time.Time            `gorm:"column:started_at;not null"`
	EndedAt        *time.Time           `gorm:"column:ended_at"`
	SecondsTotal   *int64               `gorm:"column:seconds_total"`
	GrossAmount    *decimal.Decimal     `gorm:"column:gross_amount;type:numeric(12,2)"`
	DiscountAmount *decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2)"`
	NetAmount      *decimal.Decimal     `gorm:"column:net_amount;type:numeric(12,2)"`
	DiscountID     *uuid.UUID           `gorm:"column:discount_id;type:uuid"`
	PaymentMethod  *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
