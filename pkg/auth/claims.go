package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	OperatorID uuid.UUID
	Role       enums.OperatorRole
	SectorID   *uuid.UUID
	DeviceID   *string
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to operator devices.
type AccessTokenClaims struct {
	OperatorID uuid.UUID          `json:"operator_id"`
	Role       enums.OperatorRole `json:"role"`
	SectorID   *uuid.UUID         `json:"sector_id,omitempty"`
	DeviceID   *string            `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}
