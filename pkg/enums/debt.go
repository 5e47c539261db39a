package enums

import "fmt"

// DebtOrigin maps to the debt_origin enum in Postgres.
type DebtOrigin string

const (
	DebtOriginSession DebtOrigin = "session"
	DebtOriginFine    DebtOrigin = "fine"
	DebtOriginManual  DebtOrigin = "manual"
)

var validDebtOrigins = []DebtOrigin{
	DebtOriginSession,
	DebtOriginFine,
	DebtOriginManual,
}

// IsValid reports whether the value is a known DebtOrigin.
func (o DebtOrigin) IsValid() bool {
	for _, candidate := range validDebtOrigins {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseDebtOrigin converts raw input into a DebtOrigin.
func ParseDebtOrigin(value string) (DebtOrigin, error) {
	for _, candidate := range validDebtOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid debt origin %q", value)
}

// DebtStatus maps to the debt_status enum in Postgres.
type DebtStatus string

const (
	DebtStatusPending   DebtStatus = "pending"
	DebtStatusSettled   DebtStatus = "settled"
	DebtStatusCancelled DebtStatus = "cancelled"
)

var validDebtStatuses = []DebtStatus{
	DebtStatusPending,
	DebtStatusSettled,
	DebtStatusCancelled,
}

// IsValid reports whether the value is a known DebtStatus.
func (s DebtStatus) IsValid() bool {
	for _, candidate := range validDebtStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDebtStatus converts raw input into a DebtStatus.
func ParseDebtStatus(value string) (DebtStatus, error) {
	for _, candidate := range validDebtStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid debt status %q", value)
}
