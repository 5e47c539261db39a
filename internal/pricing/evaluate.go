package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Interval is the elapsed span being priced.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted intervals.
func (i Interval) Validate() error {
	if i.End.Before(i.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "interval end precedes start")
	}
	return nil
}

// RuleApplication is one line of the quote breakdown, in evaluation order.
// Receipt rendering consumes it verbatim.
type RuleApplication struct {
	RuleID  uuid.UUID       `json:"rule_id"`
	Day     time.Time       `json:"day"`
	Minutes int64           `json:"minutes"`
	Rate    *decimal.Decimal `json:"rate,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// Warning flags a sub-interval no rule covered. Mis-configured tariffs must
// not block closing a session, so this is surfaced instead of returned as an
// error.
type Warning struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Evaluation is the outcome of pricing an interval against a rule set.
type Evaluation struct {
	Gross     decimal.Decimal
	Breakdown []RuleApplication
	Warnings  []Warning
}

type daySegment struct {
	day   time.Time
	start time.Time
	end   time.Time
}

// Evaluate prices the interval against the profile's rules. Multi-day
// intervals are split at midnight and each day is priced independently, so a
// rule bound to a weekday window never double-charges across a day boundary.
// Pure and safe for concurrent use.
func Evaluate(rules []Rule, interval Interval) (Evaluation, error) {
	if err := interval.Validate(); err != nil {
		return Evaluation{}, err
	}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return Evaluation{}, err
		}
	}

	out := Evaluation{Gross: decimal.Zero}
	if !interval.End.After(interval.Start) {
		return out, nil
	}

	for _, seg := range splitByDay(interval) {
		dayMinutes := ceilMinutes(seg.end.Sub(seg.start))
		if dayMinutes == 0 {
			continue
		}

		applicable := applicableRules(rules, seg)
		if len(applicable) == 0 {
			out.Warnings = append(out.Warnings, Warning{Start: seg.start, End: seg.end})
			continue
		}

		dayTotal := decimal.Zero
		dayLines := make([]RuleApplication, 0, len(applicable))
		for _, rule := range applicable {
			line, ok := applyRule(rule, seg.day, dayMinutes)
			if !ok {
				continue
			}
			dayLines = append(dayLines, line)
			dayTotal = dayTotal.Add(line.Amount)
		}

		if len(dayLines) == 0 {
			out.Warnings = append(out.Warnings, Warning{Start: seg.start, End: seg.end})
			continue
		}

		if limit, capRule, ok := dailyCap(applicable); ok && dayTotal.GreaterThan(limit) {
			dayLines = append(dayLines, RuleApplication{
				RuleID: capRule,
				Day:    seg.day,
				Amount: limit.Sub(dayTotal),
			})
			dayTotal = limit
		}

		out.Breakdown = append(out.Breakdown, dayLines...)
		out.Gross = out.Gross.Add(dayTotal)
	}

	return out, nil
}

// splitByDay cuts the interval at local midnights.
func splitByDay(interval Interval) []daySegment {
	var segments []daySegment
	cursor := interval.Start
	for cursor.Before(interval.End) {
		day := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location())
		next := day.AddDate(0, 0, 1)
		end := interval.End
		if next.Before(end) {
			end = next
		}
		segments = append(segments, daySegment{day: day, start: cursor, end: end})
		cursor = next
	}
	return segments
}

// applicableRules filters to active rules whose day set and time-of-day
// window overlap the segment, ordered by priority then shorter duration
// threshold. The sort is stable so equal-priority overlaps evaluate
// deterministically.
func applicableRules(rules []Rule, seg daySegment) []Rule {
	fromMinute := seg.start.Hour()*60 + seg.start.Minute()
	toMinute := 24*60 - 1
	if seg.end.After(seg.day) && seg.end.Before(seg.day.AddDate(0, 0, 1)) {
		toMinute = seg.end.Hour()*60 + seg.end.Minute()
	}

	var out []Rule
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		if !rule.Days.Contains(seg.day.Weekday()) {
			continue
		}
		if !rule.Window.Overlaps(fromMinute, toMinute) {
			continue
		}
		out = append(out, rule)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].MinDurationMinutes < out[j].MinDurationMinutes
	})
	return out
}

// applyRule computes one rule's contribution for a day's elapsed minutes.
func applyRule(rule Rule, day time.Time, dayMinutes int64) (RuleApplication, bool) {
	if rule.Type == enums.RuleTypeFixed {
		return applyFixed(rule, day, dayMinutes)
	}
	return applyHourly(rule, day, dayMinutes)
}

func applyFixed(rule Rule, day time.Time, dayMinutes int64) (RuleApplication, bool) {
	if dayMinutes < rule.MinDurationMinutes {
		return RuleApplication{}, false
	}
	if rule.MaxDurationMinutes != nil && dayMinutes > *rule.MaxDurationMinutes {
		return RuleApplication{}, false
	}
	return RuleApplication{
		RuleID:  rule.ID,
		Day:     day,
		Minutes: dayMinutes,
		Amount:  *rule.FixedPrice,
	}, true
}

func applyHourly(rule Rule, day time.Time, dayMinutes int64) (RuleApplication, bool) {
	rate := *rule.PricePerMinute

	if rule.MinAmountIsBase {
		// The flat min amount covers the base window; only minutes beyond it
		// accrue the per-minute rate.
		baseEnd := rule.MinDurationMinutes
		if rule.MaxDurationMinutes != nil && *rule.MaxDurationMinutes > baseEnd {
			baseEnd = *rule.MaxDurationMinutes
		}
		extra := dayMinutes - baseEnd
		if extra < 0 {
			extra = 0
		}
		amount := rule.MinAmount.Add(rate.Mul(decimal.NewFromInt(extra)))
		return RuleApplication{
			RuleID:  rule.ID,
			Day:     day,
			Minutes: extra,
			Rate:    &rate,
			Amount:  amount,
		}, true
	}

	from := rule.MinDurationMinutes
	to := dayMinutes
	if rule.MaxDurationMinutes != nil && *rule.MaxDurationMinutes < to {
		to = *rule.MaxDurationMinutes
	}
	charged := to - from
	if charged <= 0 {
		return RuleApplication{}, false
	}
	amount := rate.Mul(decimal.NewFromInt(charged))
	if rule.MinAmount != nil && amount.LessThan(*rule.MinAmount) {
		amount = *rule.MinAmount
	}
	return RuleApplication{
		RuleID:  rule.ID,
		Day:     day,
		Minutes: charged,
		Rate:    &rate,
		Amount:  amount,
	}, true
}

// dailyCap returns the tightest daily max among the day's applicable rules.
func dailyCap(rules []Rule) (decimal.Decimal, uuid.UUID, bool) {
	var (
		limit decimal.Decimal
		owner uuid.UUID
		found bool
	)
	for _, rule := range rules {
		if rule.DailyMaxAmount == nil {
			continue
		}
		if !found || rule.DailyMaxAmount.LessThan(limit) {
			limit = *rule.DailyMaxAmount
			owner = rule.ID
			found = true
		}
	}
	return limit, owner, found
}

func ceilMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}
