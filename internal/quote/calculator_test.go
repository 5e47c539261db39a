package quote

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/pkg/enums"
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

func hourlyRule(rate string) pricing.Rule {
	return pricing.Rule{
		ID:             uuid.New(),
		Type:           enums.RuleTypeHourly,
		PricePerMinute: decPtr(rate),
		Days:           pricing.EveryDay(),
		Window:         pricing.TimeWindow{StartMinute: 0, EndMinute: 24*60 - 1},
		Active:         true,
	}
}

var start = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func TestCalculateWithoutDiscount(t *testing.T) {
	q, err := Calculate(start, start.Add(90*time.Minute), []pricing.Rule{hourlyRule("50")}, nil)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if q.DurationMinutes != 90 {
		t.Fatalf("expected 90 minutes, got %d", q.DurationMinutes)
	}
	if !q.GrossAmount.Equal(dec("4500")) || !q.NetAmount.Equal(dec("4500")) {
		t.Fatalf("unexpected amounts: gross %s net %s", q.GrossAmount, q.NetAmount)
	}
	if !q.DiscountAmount.IsZero() {
		t.Fatalf("expected zero discount, got %s", q.DiscountAmount)
	}
	if len(q.Breakdown) != 1 {
		t.Fatalf("expected one breakdown line, got %d", len(q.Breakdown))
	}
}

func TestCalculateRoundsFractionalMinutesUp(t *testing.T) {
	q, err := Calculate(start, start.Add(61*time.Second), []pricing.Rule{hourlyRule("50")}, nil)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if q.DurationMinutes != 2 {
		t.Fatalf("61s must bill as 2 minutes, got %d", q.DurationMinutes)
	}
}

func TestCalculateWithPercentageDiscount(t *testing.T) {
	disc := &discount.Definition{
		ID:        uuid.New(),
		Code:      "PCT20",
		Type:      enums.DiscountTypePercentage,
		Value:     decPtr("20"),
		MaxAmount: decPtr("1500"),
		Active:    true,
	}

	// 200 minutes at 50/min = 10000 gross.
	q, err := Calculate(start, start.Add(200*time.Minute), []pricing.Rule{hourlyRule("50")}, disc)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if !q.GrossAmount.Equal(dec("10000")) {
		t.Fatalf("expected gross 10000, got %s", q.GrossAmount)
	}
	if !q.DiscountAmount.Equal(dec("1500")) {
		t.Fatalf("expected capped discount 1500, got %s", q.DiscountAmount)
	}
	if !q.NetAmount.Equal(dec("8500")) {
		t.Fatalf("expected net 8500, got %s", q.NetAmount)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	rules := []pricing.Rule{hourlyRule("50")}
	end := start.Add(73 * time.Minute)

	first, err := Calculate(start, end, rules, nil)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	second, err := Calculate(start, end, rules, nil)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if !first.GrossAmount.Equal(second.GrossAmount) ||
		!first.NetAmount.Equal(second.NetAmount) ||
		first.DurationMinutes != second.DurationMinutes ||
		len(first.Breakdown) != len(second.Breakdown) {
		t.Fatalf("quote is not idempotent: %+v vs %+v", first, second)
	}
}

func TestCalculateZeroDuration(t *testing.T) {
	q, err := Calculate(start, start, []pricing.Rule{hourlyRule("50")}, nil)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if q.DurationMinutes != 0 || !q.GrossAmount.IsZero() || !q.NetAmount.IsZero() {
		t.Fatalf("expected zero quote, got %+v", q)
	}
}

func TestCalculateRejectsInvertedInterval(t *testing.T) {
	if _, err := Calculate(start, start.Add(-time.Minute), []pricing.Rule{hourlyRule("50")}, nil); err == nil {
		t.Fatal("expected error for inverted interval")
	}
}

func TestCalculateSurfacesUncoveredWarning(t *testing.T) {
	rule := hourlyRule("50")
	rule.Window = pricing.TimeWindow{StartMinute: 8 * 60, EndMinute: 9 * 60}

	q, err := Calculate(start.Add(12*time.Hour), start.Add(13*time.Hour), []pricing.Rule{rule}, nil)
	if err != nil {
		t.Fatalf("uncovered interval must not error: %v", err)
	}
	if !q.GrossAmount.IsZero() {
		t.Fatalf("expected zero gross, got %s", q.GrossAmount)
	}
	if len(q.Warnings) != 1 {
		t.Fatalf("expected a coverage warning, got %d", len(q.Warnings))
	}
}
