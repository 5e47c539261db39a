package enums

import "fmt"

// ShiftStatus maps to the shift_status enum in Postgres.
type ShiftStatus string

const (
	ShiftStatusOpen     ShiftStatus = "open"
	ShiftStatusClosed   ShiftStatus = "closed"
	ShiftStatusCanceled ShiftStatus = "canceled"
)

var validShiftStatuses = []ShiftStatus{
	ShiftStatusOpen,
	ShiftStatusClosed,
	ShiftStatusCanceled,
}

// IsValid reports whether the value is a known ShiftStatus.
func (s ShiftStatus) IsValid() bool {
	for _, candidate := range validShiftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShiftStatus converts raw input into a ShiftStatus.
func ParseShiftStatus(value string) (ShiftStatus, error) {
	for _, candidate := range validShiftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift status %q", value)
}

// ShiftOperationKind maps to the shift_operation_kind enum in Postgres.
// The ledger is append-only; reconciliation replays these rows.
type ShiftOperationKind string

const (
	ShiftOperationOpen       ShiftOperationKind = "open"
	ShiftOperationClose      ShiftOperationKind = "close"
	ShiftOperationAdjustment ShiftOperationKind = "adjustment"
	ShiftOperationWithdrawal ShiftOperationKind = "withdrawal"
	ShiftOperationDeposit    ShiftOperationKind = "deposit"
	// ShiftOperationCollection records a session payment taken during the shift.
	ShiftOperationCollection ShiftOperationKind = "collection"
)

var validShiftOperationKinds = []ShiftOperationKind{
	ShiftOperationOpen,
	ShiftOperationClose,
	ShiftOperationAdjustment,
	ShiftOperationWithdrawal,
	ShiftOperationDeposit,
	ShiftOperationCollection,
}

// IsValid reports whether the value is a known ShiftOperationKind.
func (k ShiftOperationKind) IsValid() bool {
	for _, candidate := range validShiftOperationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseShiftOperationKind converts raw input into a ShiftOperationKind.
func ParseShiftOperationKind(value string) (ShiftOperationKind, error) {
	for _, candidate := range validShiftOperationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift operation kind %q", value)
}
