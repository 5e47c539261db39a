package enums

import "fmt"

// DiscountType maps to the discount_type enum in Postgres.
type DiscountType string

const (
	DiscountTypeAmount DiscountType = "amount"
	// DiscountTypePercentage discounts a percentage of the gross, optionally capped.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypePricingProfile re-prices the session with a substitute flat rate.
	DiscountTypePricingProfile DiscountType = "pricing_profile"
)

var validDiscountTypes = []DiscountType{
	DiscountTypeAmount,
	DiscountTypePercentage,
	DiscountTypePricingProfile,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
