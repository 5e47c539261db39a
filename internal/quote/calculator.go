// Package quote orchestrates rule evaluation and discount application into a
// priced quote for a session interval. Quotes are computed projections, never
// persisted; calling twice with the same inputs yields the same output.
package quote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/pricing"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Quote is the priced projection for a session interval. Breakdown preserves
// per-rule lines for receipt rendering.
type Quote struct {
	DurationMinutes int64                     `json:"duration_minutes"`
	GrossAmount     decimal.Decimal           `json:"gross_amount"`
	DiscountAmount  decimal.Decimal           `json:"discount_amount"`
	NetAmount       decimal.Decimal           `json:"net_amount"`
	Breakdown       []pricing.RuleApplication `json:"breakdown"`
	Warnings        []pricing.Warning         `json:"warnings,omitempty"`
}

// Calculate prices the interval [startedAt, endedAt] against the rule set and
// optionally applies a discount. Fractional minutes round up so the charge
// never undercounts elapsed time.
func Calculate(startedAt, endedAt time.Time, rules []pricing.Rule, disc *discount.Definition) (Quote, error) {
	if endedAt.Before(startedAt) {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout precedes check-in")
	}

	durationMinutes := ceilMinutes(endedAt.Sub(startedAt))

	eval, err := pricing.Evaluate(rules, pricing.Interval{Start: startedAt, End: endedAt})
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		DurationMinutes: durationMinutes,
		GrossAmount:     eval.Gross,
		DiscountAmount:  decimal.Zero,
		NetAmount:       eval.Gross,
		Breakdown:       eval.Breakdown,
		Warnings:        eval.Warnings,
	}

	if disc != nil {
		res, err := discount.Apply(*disc, eval.Gross, durationMinutes, endedAt)
		if err != nil {
			return Quote{}, err
		}
		q.DiscountAmount = res.DiscountAmount
		q.NetAmount = res.NetAmount
	}

	return q, nil
}

func ceilMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}
