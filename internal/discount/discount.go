// Package discount applies a single discount definition to an already-priced
// quote. The engine is pure; validity windows are checked against the instant
// the caller passes in, never the wall clock.
package discount

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// Definition is the evaluation-time view of a discount.
type Definition struct {
	ID              uuid.UUID
	Code            string
	Type            enums.DiscountType
	Value           *decimal.Decimal
	MaxAmount       *decimal.Decimal
	MinuteValue     *decimal.Decimal
	MinAmount       *decimal.Decimal
	MinimumDuration *int64
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	Active          bool
}

// Validate rejects malformed definitions before any application runs.
func (d Definition) Validate() error {
	if !d.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: unknown type %q", d.ID, d.Type))
	}
	switch d.Type {
	case enums.DiscountTypeAmount, enums.DiscountTypePercentage:
		if d.Value == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: missing value", d.ID))
		}
		if d.Value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: negative value", d.ID))
		}
		if d.MaxAmount != nil && d.MaxAmount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: negative max amount", d.ID))
		}
	case enums.DiscountTypePricingProfile:
		if d.MinuteValue == nil || d.MinAmount == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: substitute rate requires minute value and min amount", d.ID))
		}
		if d.MinuteValue.IsNegative() || d.MinAmount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: negative substitute rate", d.ID))
		}
	}
	if d.ValidFrom != nil && d.ValidUntil != nil && d.ValidUntil.Before(*d.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("discount %s: validity window inverted", d.ID))
	}
	return nil
}

// FromModel converts a stored discount row into its evaluation form.
func FromModel(m models.DiscountDefinition) (Definition, error) {
	def := Definition{
		ID:              m.ID,
		Code:            m.Code,
		Type:            m.DiscountType,
		Value:           m.Value,
		MaxAmount:       m.MaxAmount,
		MinuteValue:     m.MinuteValue,
		MinAmount:       m.MinAmount,
		MinimumDuration: m.MinimumDuration,
		ValidFrom:       m.ValidFrom,
		ValidUntil:      m.ValidUntil,
		Active:          m.IsActive,
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Result carries the applied discount and the resulting net.
type Result struct {
	DiscountAmount decimal.Decimal
	NetAmount      decimal.Decimal
}

// Apply computes the discount for a pre-discount gross amount.
//
// The pricing_profile variant is a full re-pricing with a substitute flat
// rate, not a delta; when the substitute rate exceeds the original charge the
// discount clamps to zero because a discount must never increase the charge.
func Apply(def Definition, gross decimal.Decimal, durationMinutes int64, at time.Time) (Result, error) {
	if err := def.Validate(); err != nil {
		return Result{}, err
	}
	if !def.Active {
		return Result{}, pkgerrors.New(pkgerrors.CodeDiscountInactive, fmt.Sprintf("discount %s is inactive", def.Code))
	}
	if def.ValidFrom != nil && at.Before(*def.ValidFrom) {
		return Result{}, pkgerrors.New(pkgerrors.CodeDiscountExpired, fmt.Sprintf("discount %s not yet valid", def.Code))
	}
	if def.ValidUntil != nil && at.After(*def.ValidUntil) {
		return Result{}, pkgerrors.New(pkgerrors.CodeDiscountExpired, fmt.Sprintf("discount %s expired", def.Code))
	}

	var amount decimal.Decimal
	switch def.Type {
	case enums.DiscountTypeAmount:
		amount = *def.Value
		if amount.GreaterThan(gross) {
			amount = gross
		}
	case enums.DiscountTypePercentage:
		amount = gross.Mul(*def.Value).Div(oneHundred)
		if def.MaxAmount != nil && amount.GreaterThan(*def.MaxAmount) {
			amount = *def.MaxAmount
		}
		if amount.GreaterThan(gross) {
			amount = gross
		}
	case enums.DiscountTypePricingProfile:
		substitute := substituteNet(def, durationMinutes)
		amount = gross.Sub(substitute)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
	}

	net := gross.Sub(amount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Result{DiscountAmount: amount, NetAmount: net}, nil
}

func substituteNet(def Definition, durationMinutes int64) decimal.Decimal {
	billable := durationMinutes
	if def.MinimumDuration != nil {
		billable -= *def.MinimumDuration
	}
	if billable < 0 {
		billable = 0
	}
	return def.MinAmount.Add(def.MinuteValue.Mul(decimal.NewFromInt(billable)))
}
