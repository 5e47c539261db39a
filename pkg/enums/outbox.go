package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateParkingSession OutboxAggregateType = "parking_session"
	AggregateShift          OutboxAggregateType = "shift"
	AggregateDebt           OutboxAggregateType = "debt"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateParkingSession,
	AggregateShift,
	AggregateDebt,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventSessionCheckedIn   OutboxEventType = "session_checked_in"
	EventSessionCheckedOut  OutboxEventType = "session_checked_out"
	EventSessionForceClosed OutboxEventType = "session_force_closed"
	EventSessionCanceled    OutboxEventType = "session_canceled"
	EventSessionExpired     OutboxEventType = "session_expired"
	EventShiftOpened        OutboxEventType = "shift_opened"
	EventShiftClosed        OutboxEventType = "shift_closed"
	EventDebtCreated        OutboxEventType = "debt_created"
	EventDebtSettled        OutboxEventType = "debt_settled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSessionCheckedIn,
	EventSessionCheckedOut,
	EventSessionForceClosed,
	EventSessionCanceled,
	EventSessionExpired,
	EventShiftOpened,
	EventShiftClosed,
	EventDebtCreated,
	EventDebtSettled,
}

// OutboxDLQErrorReason classifies why a row was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
