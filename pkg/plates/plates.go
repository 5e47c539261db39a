// Package plates normalizes vehicle plate input. Every plate stored or
// queried goes through Normalize so lookups never miss on formatting.
package plates

import (
	"strings"

	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

const (
	minLen = 4
	maxLen = 8
)

// Normalize uppercases the plate and strips separators. Plates must be 4 to
// 8 alphanumeric characters after normalization.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.':
			// separators are formatting noise
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "plate contains invalid characters")
		}
	}
	plate := b.String()
	if len(plate) < minLen || len(plate) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "plate must be 4 to 8 alphanumeric characters")
	}
	return plate, nil
}
