package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// PricingRule is one tariff band inside a pricing profile. Rules are
// read-only inputs to evaluation; the engine never mutates them.
type PricingRule struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID          uuid.UUID        `gorm:"column:profile_id;type:uuid;not null;index"`
	RuleType           enums.RuleType   `gorm:"column:rule_type;type:rule_type;not null"`
	MinDurationMinutes int64            `gorm:"column:min_duration_minutes;not null;default:0"`
	MaxDurationMinutes *int64           `gorm:"column:max_duration_minutes"`
	PricePerMinute     *decimal.Decimal `gorm:"column:price_per_minute;type:numeric(12,2)"`
	FixedPrice         *decimal.Decimal `gorm:"column:fixed_price;type:numeric(12,2)"`
	DailyMaxAmount     *decimal.Decimal `gorm:"column:daily_max_amount;type:numeric(12,2)"`
	MinAmount          *decimal.Decimal `gorm:"column:min_amount;type:numeric(12,2)"`
	MinAmountIsBase    bool             `gorm:"column:min_amount_is_base;not null;default:false"`
	DaysOfWeek         pq.Int64Array    `gorm:"column:days_of_week;type:smallint[];not null"`
	StartTime          string           `gorm:"column:start_time;type:time;not null"`
	EndTime            string           `gorm:"column:end_time;type:time;not null"`
	Priority           int              `gorm:"column:priority;not null;default:0"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
