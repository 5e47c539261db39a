package enums

import "fmt"

// SessionStatus maps to the session_status enum in Postgres.
type SessionStatus string

const (
	// SessionStatusCreated is a transient pre-state; check-in promotes it immediately.
	SessionStatusCreated  SessionStatus = "created"
	SessionStatusActive   SessionStatus = "active"
	SessionStatusToPay    SessionStatus = "to_pay"
	SessionStatusPaid     SessionStatus = "paid"
	SessionStatusClosed   SessionStatus = "closed"
	SessionStatusCanceled SessionStatus = "canceled"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusCreated,
	SessionStatusActive,
	SessionStatusToPay,
	SessionStatusPaid,
	SessionStatusClosed,
	SessionStatusCanceled,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave the status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusClosed || s == SessionStatusCanceled
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
