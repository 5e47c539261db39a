package enums

import "fmt"

// OperatorRole scopes what an authenticated principal may do.
type OperatorRole string

const (
	// RoleOperator works sessions and a cash drawer in the street.
	RoleOperator OperatorRole = "operator"
	// RoleSupervisor additionally approves withdrawals and force-closes.
	RoleSupervisor OperatorRole = "supervisor"
	// RoleAdmin manages pricing, discounts and operators.
	RoleAdmin OperatorRole = "admin"
)

var validOperatorRoles = []OperatorRole{
	RoleOperator,
	RoleSupervisor,
	RoleAdmin,
}

// IsValid reports whether the value is a known OperatorRole.
func (r OperatorRole) IsValid() bool {
	for _, candidate := range validOperatorRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// ParseOperatorRole converts raw input into an OperatorRole.
func ParseOperatorRole(value string) (OperatorRole, error) {
	for _, candidate := range validOperatorRoles {
		if value == string(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operator role %q", value)
}
