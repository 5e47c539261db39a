package models

import (
	"time"

	"github.com/google/uuid"
)

// PricingProfile owns the ordered rule set for a sector during an activity
// window. At most one profile should be active per sector at any quoting
// instant; resolving which profile applies is the caller's job.
type PricingProfile struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SectorID   uuid.UUID     `gorm:"column:sector_id;type:uuid;not null;index"`
	Name       string        `gorm:"column:name;not null"`
	ActiveFrom time.Time     `gorm:"column:active_from;not null"`
	ActiveTo   *time.Time    `gorm:"column:active_to"`
	IsActive   bool          `gorm:"column:is_active;not null;default:true"`
	Rules      []PricingRule `gorm:"foreignKey:ProfileID"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the profile's activity window covers the instant.
func (p PricingProfile) ActiveAt(at time.Time) bool {
	if !p.IsActive || at.Before(p.ActiveFrom) {
		return false
	}
	return p.ActiveTo == nil || !at.After(*p.ActiveTo)
}
