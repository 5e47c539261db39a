package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/internal/debts"
	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	sessions map[uuid.UUID]*models.ParkingSession
	sales    []models.Sale
	payments []models.Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: map[uuid.UUID]*models.ParkingSession{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, session *models.ParkingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ParkingSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) FindActiveByPlate(_ context.Context, plate string) (*models.ParkingSession, error) {
	for _, session := range f.sessions {
		if session.Plate == plate && session.Status == enums.SessionStatusActive {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Update(_ context.Context, session *models.ParkingSession) error {
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) ListByPlate(_ context.Context, plate string, _ int) ([]models.ParkingSession, error) {
	var out []models.ParkingSession
	for _, session := range f.sessions {
		if session.Plate == plate {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListActiveStartedBefore(_ context.Context, cutoff time.Time) ([]models.ParkingSession, error) {
	var out []models.ParkingSession
	for _, session := range f.sessions {
		if session.Status == enums.SessionStatusActive && session.StartedAt.Before(cutoff) {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSale(_ context.Context, sale *models.Sale) error {
	f.sales = append(f.sales, *sale)
	return nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, payment *models.Payment) error {
	f.payments = append(f.payments, *payment)
	return nil
}

type fakePublisher struct {
	events []outbox.DomainEvent
}

func (f *fakePublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) lastOfType(eventType enums.OutboxEventType) *outbox.DomainEvent {
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].EventType == eventType {
			return &f.events[i]
		}
	}
	return nil
}

type fakeDrawer struct {
	openShift   *models.Shift
	collections []shifts.CollectionInput
}

func (f *fakeDrawer) OpenShiftFor(_ context.Context, operatorID uuid.UUID) (*models.Shift, error) {
	if f.openShift == nil || f.openShift.OperatorID != operatorID {
		return nil, pkgerrors.New(pkgerrors.CodeNoOpenShift, "operator has no open shift")
	}
	copied := *f.openShift
	return &copied, nil
}

func (f *fakeDrawer) RecordCollection(_ context.Context, _ *gorm.DB, input shifts.CollectionInput) (*models.ShiftOperation, error) {
	f.collections = append(f.collections, input)
	return &models.ShiftOperation{ID: uuid.New(), ShiftID: input.ShiftID}, nil
}

type fakeRules struct {
	rules []pricing.Rule
}

func (f *fakeRules) ActiveRulesFor(_ context.Context, _ uuid.UUID, _ time.Time) ([]pricing.Rule, error) {
	return f.rules, nil
}

type fakeDiscounts struct {
	byCode map[string]*discount.Definition
}

func (f *fakeDiscounts) FindByCode(_ context.Context, code string) (*discount.Definition, error) {
	if def, ok := f.byCode[code]; ok {
		return def, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
}

type fakeDebts struct {
	created []debts.CreateDebtInput
}

func (f *fakeDebts) CreateInTx(_ context.Context, _ *gorm.DB, input debts.CreateDebtInput) (*models.Debt, error) {
	f.created = append(f.created, input)
	return &models.Debt{
		ID:              uuid.New(),
		Plate:           input.Plate,
		Origin:          input.Origin,
		PrincipalAmount: input.PrincipalAmount,
		Status:          enums.DebtStatusPending,
		SessionID:       input.SessionID,
	}, nil
}

type fixture struct {
	svc       Service
	repo      *fakeRepo
	drawers   *fakeDrawer
	debts     *fakeDebts
	publisher *fakePublisher
	clk       *clock.FakeClock
}

func decPtr(v string) *decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return &d
}

// flat 25 per minute, every day, all day
func flatRules() []pricing.Rule {
	return []pricing.Rule{{
		ID:             uuid.New(),
		Type:           enums.RuleTypeHourly,
		PricePerMinute: decPtr("25"),
		Days:           pricing.EveryDay(),
		Window:         pricing.TimeWindow{StartMinute: 0, EndMinute: 24*60 - 1},
		Active:         true,
	}}
}

func newFixture(t *testing.T, discountDefs map[string]*discount.Definition) *fixture {
	t.Helper()
	repo := newFakeRepo()
	drawers := &fakeDrawer{}
	debtWriter := &fakeDebts{}
	publisher := &fakePublisher{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if discountDefs == nil {
		discountDefs = map[string]*discount.Definition{}
	}
	svc, err := NewService(
		stubTxRunner{},
		repo,
		&fakeRules{rules: flatRules()},
		&fakeDiscounts{byCode: discountDefs},
		drawers,
		debtWriter,
		publisher,
		clk,
		24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, repo: repo, drawers: drawers, debts: debtWriter, publisher: publisher, clk: clk}
}

func (fx *fixture) checkIn(t *testing.T, plate string) *models.ParkingSession {
	t.Helper()
	session, err := fx.svc.CheckIn(context.Background(), CheckInInput{
		Plate:      plate,
		SectorID:   uuid.New(),
		OperatorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	return session
}

func (fx *fixture) openDrawer(operatorID uuid.UUID) *models.Shift {
	shift := &models.Shift{ID: uuid.New(), OperatorID: operatorID, Status: enums.ShiftStatusOpen}
	fx.drawers.openShift = shift
	return shift
}

func TestCheckInNormalizesAndGuardsDuplicates(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	session := fx.checkIn(t, "gh-jk 12")
	if session.Plate != "GHJK12" {
		t.Fatalf("plate not normalized: %q", session.Plate)
	}
	if session.Status != enums.SessionStatusActive {
		t.Fatalf("expected active, got %s", session.Status)
	}
	if ev := fx.publisher.lastOfType(enums.EventSessionCheckedIn); ev == nil {
		t.Fatal("expected session_checked_in event")
	}

	_, err := fx.svc.CheckIn(ctx, CheckInInput{
		Plate:      "GHJK12",
		SectorID:   uuid.New(),
		OperatorID: uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for duplicate active plate, got %v", err)
	}
}

func TestQuoteRoundsFractionalMinutesUp(t *testing.T) {
	fx := newFixture(t, nil)
	session := fx.checkIn(t, "GHJK12")

	fx.clk.Advance(61 * time.Second)
	q, err := fx.svc.Quote(context.Background(), QuoteInput{SessionID: session.ID})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.DurationMinutes != 2 {
		t.Fatalf("expected 61s to bill as 2 minutes, got %d", q.DurationMinutes)
	}
	if !q.NetAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected net 50, got %s", q.NetAmount)
	}
}

func TestQuoteAppliesDiscountCode(t *testing.T) {
	half := decimal.NewFromInt(50)
	fx := newFixture(t, map[string]*discount.Definition{
		"PROMO50": {
			ID:     uuid.New(),
			Code:   "PROMO50",
			Type:   enums.DiscountTypePercentage,
			Value:  &half,
			Active: true,
		},
	})
	session := fx.checkIn(t, "GHJK12")

	fx.clk.Advance(time.Hour)
	q, err := fx.svc.Quote(context.Background(), QuoteInput{SessionID: session.ID, DiscountCode: "PROMO50"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.GrossAmount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected gross 1500, got %s", q.GrossAmount)
	}
	if !q.NetAmount.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected net 750 after 50%% discount, got %s", q.NetAmount)
	}

	_, err = fx.svc.Quote(context.Background(), QuoteInput{SessionID: session.ID, DiscountCode: "NOPE"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown code, got %v", err)
	}
}

func TestCheckoutCashWithChange(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	session := fx.checkIn(t, "GHJK12")
	operatorID := uuid.New()
	shift := fx.openDrawer(operatorID)

	fx.clk.Advance(time.Hour)
	tendered := decimal.NewFromInt(2000)
	result, err := fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCash,
		Tendered:   &tendered,
		OperatorID: operatorID,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if result.Session.Status != enums.SessionStatusPaid {
		t.Fatalf("expected paid, got %s", result.Session.Status)
	}
	if !result.Quote.NetAmount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected net 1500, got %s", result.Quote.NetAmount)
	}
	if result.Change == nil || !result.Change.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected change 500, got %v", result.Change)
	}
	if result.Sale == nil || result.Sale.ShiftID == nil || *result.Sale.ShiftID != shift.ID {
		t.Fatalf("sale not linked to shift: %+v", result.Sale)
	}
	if result.Payment == nil || result.Payment.Tendered == nil || !result.Payment.Tendered.Equal(tendered) {
		t.Fatalf("payment tendered mismatch: %+v", result.Payment)
	}
	if len(fx.drawers.collections) != 1 || !fx.drawers.collections[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected one drawer collection of 1500, got %+v", fx.drawers.collections)
	}
	ev := fx.publisher.lastOfType(enums.EventSessionCheckedOut)
	if ev == nil {
		t.Fatal("expected session_checked_out event")
	}
}

func TestCheckoutCashGuards(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	session := fx.checkIn(t, "GHJK12")
	operatorID := uuid.New()

	fx.clk.Advance(time.Hour)
	_, err := fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCash,
		OperatorID: operatorID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNoOpenShift) {
		t.Fatalf("expected NO_OPEN_SHIFT, got %v", err)
	}

	fx.openDrawer(operatorID)
	_, err = fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCash,
		OperatorID: operatorID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing tendered, got %v", err)
	}

	short := decimal.NewFromInt(1000)
	_, err = fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCash,
		Tendered:   &short,
		OperatorID: operatorID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientPayment) {
		t.Fatalf("expected INSUFFICIENT_PAYMENT, got %v", err)
	}
}

func TestCheckoutTwiceRejected(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	session := fx.checkIn(t, "GHJK12")
	operatorID := uuid.New()
	fx.openDrawer(operatorID)

	fx.clk.Advance(30 * time.Minute)
	if _, err := fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCard,
		OperatorID: operatorID,
	}); err != nil {
		t.Fatalf("first Checkout: %v", err)
	}

	_, err := fx.svc.Checkout(ctx, CheckoutInput{
		SessionID:  session.ID,
		Method:     enums.PaymentMethodCard,
		OperatorID: operatorID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestForceCheckoutCreatesDebt(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	session := fx.checkIn(t, "GHJK12")

	fx.clk.Advance(2 * time.Hour)
	result, err := fx.svc.ForceCheckout(ctx, ForceCheckoutInput{
		SessionID: session.ID,
		Reason:    "vehicle left without paying",
	})
	if err != nil {
		t.Fatalf("ForceCheckout: %v", err)
	}

	if result.Session.Status != enums.SessionStatusClosed {
		t.Fatalf("expected closed, got %s", result.Session.Status)
	}
	if result.Debt == nil || !result.Debt.PrincipalAmount.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected debt of 3000, got %+v", result.Debt)
	}
	if len(fx.debts.created) != 1 || fx.debts.created[0].Origin != enums.DebtOriginSession {
		t.Fatalf("debt creation mismatch: %+v", fx.debts.created)
	}
	ev := fx.publisher.lastOfType(enums.EventSessionForceClosed)
	if ev == nil {
		t.Fatal("expected session_force_closed event")
	}
}

func TestCancelActiveOnly(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	session := fx.checkIn(t, "GHJK12")

	canceled, err := fx.svc.Cancel(ctx, CancelInput{SessionID: session.ID, Reason: "duplicate entry"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != enums.SessionStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.NetAmount != nil {
		t.Fatalf("canceled session must not bill, got net %s", canceled.NetAmount)
	}
	if ev := fx.publisher.lastOfType(enums.EventSessionCanceled); ev == nil {
		t.Fatal("expected session_canceled event")
	}

	if _, err := fx.svc.Cancel(ctx, CancelInput{SessionID: session.ID}); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestExpireStaleSweepsOldSessions(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	stale := fx.checkIn(t, "GHJK12")
	fx.clk.Advance(25 * time.Hour)
	fresh := fx.checkIn(t, "XZWV34")

	swept, err := fx.svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept session, got %d", swept)
	}

	closed, err := fx.svc.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if closed.Status != enums.SessionStatusClosed {
		t.Fatalf("stale session not closed: %s", closed.Status)
	}
	if closed.EndedAt == nil || !closed.EndedAt.Equal(stale.StartedAt.Add(24*time.Hour)) {
		t.Fatalf("stale session must bill up to the cap, got %v", closed.EndedAt)
	}
	if len(fx.debts.created) != 1 {
		t.Fatalf("expected the swept session to leave a debt, got %d", len(fx.debts.created))
	}
	if ev := fx.publisher.lastOfType(enums.EventSessionExpired); ev == nil {
		t.Fatal("expected session_expired event")
	}

	untouched, err := fx.svc.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != enums.SessionStatusActive {
		t.Fatalf("fresh session must stay active, got %s", untouched.Status)
	}
}
