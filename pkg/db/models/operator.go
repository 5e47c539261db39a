package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// Operator is a street agent who opens shifts and collects payments. PinHash
// holds the argon2id hash used to countersign withdrawals.
type Operator struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string             `gorm:"column:name;not null"`
	SectorID  *uuid.UUID         `gorm:"column:sector_id;type:uuid"`
	Role      enums.OperatorRole `gorm:"column:role;type:operator_role;not null;default:'operator'"`
	PinHash   string             `gorm:"column:pin_hash;not null"`
	IsActive  bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
