package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// TimeWindow is an inclusive time-of-day window in minutes since midnight.
type TimeWindow struct {
	StartMinute int
	EndMinute   int
}

// Overlaps reports whether the window intersects [fromMinute, toMinute].
func (w TimeWindow) Overlaps(fromMinute, toMinute int) bool {
	return w.StartMinute <= toMinute && fromMinute <= w.EndMinute
}

// Rule is the evaluation-time view of a pricing rule. It is immutable once
// built; Evaluate never writes to it.
type Rule struct {
	ID                 uuid.UUID
	Type               enums.RuleType
	MinDurationMinutes int64
	MaxDurationMinutes *int64
	PricePerMinute     *decimal.Decimal
	FixedPrice         *decimal.Decimal
	DailyMaxAmount     *decimal.Decimal
	MinAmount          *decimal.Decimal
	MinAmountIsBase    bool
	Days               DaySet
	Window             TimeWindow
	Priority           int
	Active             bool
}

// Validate rejects malformed definitions before any evaluation runs.
func (r Rule) Validate() error {
	if !r.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: unknown rule type %q", r.ID, r.Type))
	}
	if r.MinDurationMinutes < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative min duration", r.ID))
	}
	if r.MaxDurationMinutes != nil && *r.MaxDurationMinutes < r.MinDurationMinutes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: max duration below min duration", r.ID))
	}
	switch r.Type {
	case enums.RuleTypeHourly:
		if r.PricePerMinute == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: hourly rule missing price per minute", r.ID))
		}
		if r.PricePerMinute.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative price per minute", r.ID))
		}
		if r.MinAmountIsBase && r.MinAmount == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: min_amount_is_base without min amount", r.ID))
		}
	case enums.RuleTypeFixed:
		if r.FixedPrice == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: fixed rule missing fixed price", r.ID))
		}
		if r.FixedPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative fixed price", r.ID))
		}
	}
	if r.MinAmount != nil && r.MinAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative min amount", r.ID))
	}
	if r.DailyMaxAmount != nil && r.DailyMaxAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: negative daily max", r.ID))
	}
	if r.Days.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: empty day set", r.ID))
	}
	if r.Window.StartMinute < 0 || r.Window.EndMinute >= 24*60 || r.Window.EndMinute < r.Window.StartMinute {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("rule %s: invalid time window", r.ID))
	}
	return nil
}

// RuleFromModel converts a stored rule row into its evaluation form.
func RuleFromModel(m models.PricingRule) (Rule, error) {
	days, err := DaySetFromInts(m.DaysOfWeek)
	if err != nil {
		return Rule{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("rule %s: days of week", m.ID))
	}
	start, err := parseClockMinute(m.StartTime)
	if err != nil {
		return Rule{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("rule %s: start time", m.ID))
	}
	end, err := parseClockMinute(m.EndTime)
	if err != nil {
		return Rule{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("rule %s: end time", m.ID))
	}
	rule := Rule{
		ID:                 m.ID,
		Type:               m.RuleType,
		MinDurationMinutes: m.MinDurationMinutes,
		MaxDurationMinutes: m.MaxDurationMinutes,
		PricePerMinute:     m.PricePerMinute,
		FixedPrice:         m.FixedPrice,
		DailyMaxAmount:     m.DailyMaxAmount,
		MinAmount:          m.MinAmount,
		MinAmountIsBase:    m.MinAmountIsBase,
		Days:               days,
		Window:             TimeWindow{StartMinute: start, EndMinute: end},
		Priority:           m.Priority,
		Active:             m.IsActive,
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// RulesFromModels converts a profile's rule rows, failing on the first
// malformed definition.
func RulesFromModels(rows []models.PricingRule) ([]Rule, error) {
	rules := make([]Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := RuleFromModel(row)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// parseClockMinute parses "HH:MM" or "HH:MM:SS" into minutes since midnight.
func parseClockMinute(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("malformed clock time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock time %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock time %q out of range", value)
	}
	return hour*60 + minute, nil
}
