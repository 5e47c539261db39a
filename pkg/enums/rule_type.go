package enums

import "fmt"

// RuleType maps to the rule_type enum in Postgres.
type RuleType string

const (
	RuleTypeFixed  RuleType = "fixed"
	RuleTypeHourly RuleType = "hourly"
)

var validRuleTypes = []RuleType{
	RuleTypeFixed,
	RuleTypeHourly,
}

// String implements fmt.Stringer.
func (r RuleType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RuleType.
func (r RuleType) IsValid() bool {
	for _, candidate := range validRuleTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRuleType converts raw input into a RuleType.
func ParseRuleType(value string) (RuleType, error) {
	for _, candidate := range validRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule type %q", value)
}
