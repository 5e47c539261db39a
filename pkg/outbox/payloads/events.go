package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
)

// SessionCheckedInEvent signals a vehicle starting a parking session.
type SessionCheckedInEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Plate      string    `json:"plate"`
	SectorID   uuid.UUID `json:"sector_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	StartedAt  time.Time `json:"started_at"`
}

// SessionCheckedOutEvent carries the billed amounts of a paid session.
type SessionCheckedOutEvent struct {
	SessionID      uuid.UUID           `json:"session_id"`
	Plate          string              `json:"plate"`
	SectorID       uuid.UUID           `json:"sector_id"`
	OperatorID     uuid.UUID           `json:"operator_id"`
	ShiftID        *uuid.UUID          `json:"shift_id,omitempty"`
	EndedAt        time.Time           `json:"ended_at"`
	SecondsTotal   int64               `json:"seconds_total"`
	GrossAmount    decimal.Decimal     `json:"gross_amount"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	NetAmount      decimal.Decimal     `json:"net_amount"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
}

// SessionForceClosedEvent reports a session closed without payment.
type SessionForceClosedEvent struct {
	SessionID uuid.UUID       `json:"session_id"`
	Plate     string          `json:"plate"`
	SectorID  uuid.UUID       `json:"sector_id"`
	EndedAt   time.Time       `json:"ended_at"`
	NetAmount decimal.Decimal `json:"net_amount"`
	DebtID    uuid.UUID       `json:"debt_id"`
	Reason    string          `json:"reason,omitempty"`
}

// SessionCanceledEvent is emitted when an active session is voided.
type SessionCanceledEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Plate      string    `json:"plate"`
	SectorID   uuid.UUID `json:"sector_id"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// SessionExpiredEvent reports the cron worker sweeping an abandoned session.
type SessionExpiredEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Plate     string    `json:"plate"`
	StartedAt time.Time `json:"started_at"`
	ExpiredAt time.Time `json:"expired_at"`
	TTLHours  int       `json:"ttl_hours"`
}

// ShiftOpenedEvent signals an operator starting a drawer.
type ShiftOpenedEvent struct {
	ShiftID      uuid.UUID       `json:"shift_id"`
	OperatorID   uuid.UUID       `json:"operator_id"`
	SectorID     *uuid.UUID      `json:"sector_id,omitempty"`
	DeviceID     *string         `json:"device_id,omitempty"`
	OpenedAt     time.Time       `json:"opened_at"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// ShiftClosedEvent carries the reconciliation outcome of a closed shift.
type ShiftClosedEvent struct {
	ShiftID       uuid.UUID       `json:"shift_id"`
	OperatorID    uuid.UUID       `json:"operator_id"`
	ClosedAt      time.Time       `json:"closed_at"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	DeclaredCash  decimal.Decimal `json:"declared_cash"`
	CashOverShort decimal.Decimal `json:"cash_over_short"`
}

// DebtCreatedEvent is emitted whenever a plate accrues an obligation.
type DebtCreatedEvent struct {
	DebtID          uuid.UUID        `json:"debt_id"`
	Plate           string           `json:"plate"`
	Origin          enums.DebtOrigin `json:"origin"`
	PrincipalAmount decimal.Decimal  `json:"principal_amount"`
	SessionID       *uuid.UUID       `json:"session_id,omitempty"`
}

// DebtSettledEvent reports a debt paid off.
type DebtSettledEvent struct {
	DebtID        uuid.UUID           `json:"debt_id"`
	Plate         string              `json:"plate"`
	SettledAt     time.Time           `json:"settled_at"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ShiftID       *uuid.UUID          `json:"shift_id,omitempty"`
}
