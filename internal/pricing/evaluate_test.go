package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func allDayWindow() TimeWindow {
	return TimeWindow{StartMinute: 0, EndMinute: 24*60 - 1}
}

func hourlyRule(rate string) Rule {
	return Rule{
		ID:             uuid.New(),
		Type:           enums.RuleTypeHourly,
		PricePerMinute: decPtr(rate),
		Days:           EveryDay(),
		Window:         allDayWindow(),
		Active:         true,
	}
}

// Tuesday 2025-06-10, a plain weekday.
var tuesday = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestEvaluateZeroDuration(t *testing.T) {
	start := at(tuesday, 10, 0)
	eval, err := Evaluate([]Rule{hourlyRule("50")}, Interval{Start: start, End: start})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Gross.IsZero() {
		t.Fatalf("expected zero gross, got %s", eval.Gross)
	}
	if len(eval.Breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %d lines", len(eval.Breakdown))
	}
}

func TestEvaluateSimpleHourly(t *testing.T) {
	rule := hourlyRule("50")
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 11, 30)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("4500"); !eval.Gross.Equal(want) {
		t.Fatalf("expected gross %s, got %s", want, eval.Gross)
	}
	if len(eval.Breakdown) != 1 {
		t.Fatalf("expected one breakdown line, got %d", len(eval.Breakdown))
	}
	if eval.Breakdown[0].Minutes != 90 {
		t.Fatalf("expected 90 minutes charged, got %d", eval.Breakdown[0].Minutes)
	}
	if eval.Breakdown[0].RuleID != rule.ID {
		t.Fatalf("breakdown should carry the contributing rule id")
	}
}

func TestEvaluateHourlyWithBaseMinimum(t *testing.T) {
	// 60-minute base window charged flat at 1000, 50/min beyond it.
	rule := Rule{
		ID:                 uuid.New(),
		Type:               enums.RuleTypeHourly,
		MinDurationMinutes: 0,
		MaxDurationMinutes: int64Ptr(60),
		MinAmount:          decPtr("1000"),
		MinAmountIsBase:    true,
		PricePerMinute:     decPtr("50"),
		Days:               EveryDay(),
		Window:             allDayWindow(),
		Active:             true,
	}

	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 9, 0), End: at(tuesday, 10, 30)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("2500"); !eval.Gross.Equal(want) {
		t.Fatalf("expected gross %s (1000 base + 30x50), got %s", want, eval.Gross)
	}
	if eval.Breakdown[0].Minutes != 30 {
		t.Fatalf("expected 30 metered minutes, got %d", eval.Breakdown[0].Minutes)
	}
}

func TestEvaluateFixedRuleBand(t *testing.T) {
	rule := Rule{
		ID:                 uuid.New(),
		Type:               enums.RuleTypeFixed,
		MinDurationMinutes: 0,
		MaxDurationMinutes: int64Ptr(120),
		FixedPrice:         decPtr("1500"),
		Days:               EveryDay(),
		Window:             allDayWindow(),
		Active:             true,
	}

	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 8, 0), End: at(tuesday, 9, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("1500"); !eval.Gross.Equal(want) {
		t.Fatalf("expected fixed charge %s, got %s", want, eval.Gross)
	}

	// Outside the band the fixed rule contributes nothing.
	eval, err = Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 8, 0), End: at(tuesday, 11, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Gross.IsZero() {
		t.Fatalf("expected zero gross outside band, got %s", eval.Gross)
	}
}

func TestEvaluateDailyCap(t *testing.T) {
	rule := hourlyRule("100")
	rule.DailyMaxAmount = decPtr("5000")

	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 8, 0), End: at(tuesday, 12, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	// Naive total would be 240 x 100 = 24000; the day must contribute exactly the cap.
	if want := dec("5000"); !eval.Gross.Equal(want) {
		t.Fatalf("expected capped gross %s, got %s", want, eval.Gross)
	}

	var sum decimal.Decimal
	for _, line := range eval.Breakdown {
		sum = sum.Add(line.Amount)
	}
	if !sum.Equal(eval.Gross) {
		t.Fatalf("breakdown must reconcile with gross: %s vs %s", sum, eval.Gross)
	}
}

func TestEvaluateDailyCapAppliesPerDay(t *testing.T) {
	rule := hourlyRule("100")
	rule.DailyMaxAmount = decPtr("5000")

	// Two full calendar days: each day capped independently.
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 20, 0), End: at(tuesday.AddDate(0, 0, 1), 20, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("10000"); !eval.Gross.Equal(want) {
		t.Fatalf("expected per-day cap sum %s, got %s", want, eval.Gross)
	}
}

func TestEvaluateMidnightSplit(t *testing.T) {
	rule := hourlyRule("10")
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 23, 0), End: at(tuesday.AddDate(0, 0, 1), 1, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("1200"); !eval.Gross.Equal(want) {
		t.Fatalf("expected gross %s across midnight, got %s", want, eval.Gross)
	}
	if len(eval.Breakdown) != 2 {
		t.Fatalf("expected one line per day, got %d", len(eval.Breakdown))
	}
	if eval.Breakdown[0].Minutes != 60 || eval.Breakdown[1].Minutes != 60 {
		t.Fatalf("expected 60+60 minutes, got %d+%d", eval.Breakdown[0].Minutes, eval.Breakdown[1].Minutes)
	}
}

func TestEvaluateWeekdayRuleSkipsOtherDays(t *testing.T) {
	rule := hourlyRule("50")
	rule.Days = NewDaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

	saturday := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(saturday, 10, 0), End: at(saturday, 11, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Gross.IsZero() {
		t.Fatalf("weekday rule charged on saturday: %s", eval.Gross)
	}
	if len(eval.Warnings) != 1 {
		t.Fatalf("uncovered interval must be flagged, got %d warnings", len(eval.Warnings))
	}
}

func TestEvaluateTimeWindowFilter(t *testing.T) {
	rule := hourlyRule("50")
	rule.Window = TimeWindow{StartMinute: 8 * 60, EndMinute: 18 * 60}

	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 20, 0), End: at(tuesday, 21, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Gross.IsZero() {
		t.Fatalf("rule outside its window charged: %s", eval.Gross)
	}
	if len(eval.Warnings) != 1 {
		t.Fatalf("expected uncovered warning, got %d", len(eval.Warnings))
	}
}

func TestEvaluateDeterministicForEqualPriority(t *testing.T) {
	a := hourlyRule("50")
	b := hourlyRule("80")
	interval := Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 10, 30)}

	first, err := Evaluate([]Rule{a, b}, interval)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Evaluate([]Rule{a, b}, interval)
		if err != nil {
			t.Fatalf("Evaluate error: %v", err)
		}
		if !again.Gross.Equal(first.Gross) || len(again.Breakdown) != len(first.Breakdown) {
			t.Fatalf("evaluation is not deterministic")
		}
		for j := range again.Breakdown {
			if again.Breakdown[j].RuleID != first.Breakdown[j].RuleID {
				t.Fatalf("breakdown order changed between runs")
			}
		}
	}
}

func TestEvaluatePriorityOrdering(t *testing.T) {
	low := hourlyRule("50")
	low.Priority = 10
	high := hourlyRule("80")
	high.Priority = 1

	eval, err := Evaluate([]Rule{low, high}, Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 10, 30)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if len(eval.Breakdown) != 2 {
		t.Fatalf("expected two lines, got %d", len(eval.Breakdown))
	}
	if eval.Breakdown[0].RuleID != high.ID {
		t.Fatalf("lower priority value must evaluate first")
	}
}

func TestEvaluateRejectsMalformedRule(t *testing.T) {
	bad := Rule{
		ID:     uuid.New(),
		Type:   enums.RuleTypeHourly,
		Days:   EveryDay(),
		Window: allDayWindow(),
		Active: true,
	}
	_, err := Evaluate([]Rule{bad}, Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 11, 0)})
	if err == nil {
		t.Fatal("expected validation error for hourly rule without rate")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestEvaluateFractionalMinutesRoundUp(t *testing.T) {
	rule := hourlyRule("50")
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 10, 0).Add(30*time.Second + 10*time.Minute)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if want := dec("550"); !eval.Gross.Equal(want) {
		t.Fatalf("fractional minute must round up: want %s got %s", want, eval.Gross)
	}
}

func TestEvaluateInactiveRuleIgnored(t *testing.T) {
	rule := hourlyRule("50")
	rule.Active = false
	eval, err := Evaluate([]Rule{rule}, Interval{Start: at(tuesday, 10, 0), End: at(tuesday, 11, 0)})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Gross.IsZero() {
		t.Fatalf("inactive rule charged: %s", eval.Gross)
	}
}
